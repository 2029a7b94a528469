package daemon_test

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/api"
	"cargoport/internal/broadcast"
	"cargoport/internal/cargo"
	"cargoport/internal/news"
	"cargoport/internal/testsupport"
)

var jpegBytes = []byte{0xFF, 0xD8, 0xFF, 0xE0, 0x00, 0x10, 'J', 'F', 'I', 'F', 0x00, 0xFF, 0xD9}

func intakeRequest(t *testing.T, cargoType, paintTime string, file []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if cargoType != "" {
		_ = writer.WriteField("cargoType", cargoType)
	}
	if paintTime != "" {
		_ = writer.WriteField("paintTime", paintTime)
	}
	if file != nil {
		part, err := writer.CreateFormFile("file", "texture.jpg")
		require.NoError(t, err)
		_, err = part.Write(file)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/cargo", &body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func serve(d http.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	d.ServeHTTP(rec, req)
	return rec
}

func TestAPIIntakeCreatesCargo(t *testing.T) {
	cfg := testConfig(t)
	d, st := newDaemon(t, cfg)

	rec := serve(d.Handler(), intakeRequest(t, "cake", "12.5", jpegBytes))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	resp := decode[api.IntakeResponse](t, rec)
	assert.Equal(t, cargo.TypeCake, resp.Cargo.Type)
	assert.Equal(t, cargo.StatusShipping, resp.Cargo.Status)
	assert.Equal(t, 12.5, resp.Cargo.PaintTime)
	assert.Equal(t, "http://cargo.test/api/storage/texture/"+resp.Cargo.ID+".jpg", resp.TextureURL)

	stored, err := st.GetByID(context.Background(), resp.Cargo.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored)

	texture := serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/storage/texture/"+resp.Cargo.ID+".jpg", nil))
	require.Equal(t, http.StatusOK, texture.Code)
	assert.Equal(t, jpegBytes, texture.Body.Bytes())
	assert.Equal(t, "image/jpeg", texture.Header().Get("Content-Type"))
}

func TestAPIIntakeRejectsInvalidUploads(t *testing.T) {
	cfg := testConfig(t)
	d, st := newDaemon(t, cfg)

	cases := map[string]*http.Request{
		"unknown type":  intakeRequest(t, "spaceship", "1", jpegBytes),
		"missing type":  intakeRequest(t, "", "1", jpegBytes),
		"bad paintTime": intakeRequest(t, "cake", "soon", jpegBytes),
		"not a jpeg":    intakeRequest(t, "cake", "1", []byte("plain text body")),
		"missing file":  intakeRequest(t, "cake", "1", nil),
	}
	for name, req := range cases {
		rec := serve(d.Handler(), req)
		require.Equal(t, http.StatusBadRequest, rec.Code, "%s: %s", name, rec.Body.String())
		assert.NotEmpty(t, decode[api.ErrorResponse](t, rec).Error, name)
	}

	items, err := st.ListRecent(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, items, "no cargo created")
}

func TestAPIMutatingRoutesRequireToken(t *testing.T) {
	cfg := testConfig(t, testsupport.WithAPIToken("secret"))
	d, st := newDaemon(t, cfg)
	item := testsupport.NewCargo(t, st, cargo.TypeCake)

	rec := serve(d.Handler(), intakeRequest(t, "cake", "1", jpegBytes))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "intake without token")

	body := `{"id":"` + item.ID + `","name":"Cake","description":"Sweet"}`
	rec = serve(d.Handler(), httptest.NewRequest(http.MethodPost, "/api/cargo/info", strings.NewReader(body)))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "edit without token")

	req := httptest.NewRequest(http.MethodPost, "/api/cargo/info", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer wrong")
	assert.Equal(t, http.StatusUnauthorized, serve(d.Handler(), req).Code, "edit with wrong token")

	req = httptest.NewRequest(http.MethodPost, "/api/cargo/info", strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer secret")
	rec = serve(d.Handler(), req)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	// reads stay open
	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/cargo", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestAPIEditText(t *testing.T) {
	cfg := testConfig(t)
	d, st := newDaemon(t, cfg)
	item := testsupport.NewCargo(t, st, cargo.TypeCake)

	body := `{"id":"` + item.ID + `","name":"  Birthday cake ","description":"Three layers"}`
	rec := serve(d.Handler(), httptest.NewRequest(http.MethodPost, "/api/cargo-info", strings.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	resp := decode[api.CargoResponse](t, rec)
	require.NotNil(t, resp.Cargo.Name)
	assert.Equal(t, "Birthday cake", *resp.Cargo.Name)

	unknown := `{"id":"` + uuid.NewString() + `","name":"x","description":"y"}`
	rec = serve(d.Handler(), httptest.NewRequest(http.MethodPost, "/api/cargo/info", strings.NewReader(unknown)))
	assert.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodPost, "/api/cargo/info", strings.NewReader(`{"id":"nope"}`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid body")

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodPost, "/api/cargo/info", strings.NewReader(`{`)))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "malformed json")
}

func TestAPICargoReads(t *testing.T) {
	cfg := testConfig(t)
	d, st := newDaemon(t, cfg)
	first := testsupport.NewCargo(t, st, cargo.TypeCake)
	testsupport.NewCargo(t, st, cargo.TypeCake)

	rec := serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/cargo", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[api.CargoListResponse](t, rec).Cargo, 2)

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/cargo/today", nil))
	assert.Len(t, decode[api.CargoListResponse](t, rec).Cargo, 2)

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/cargo/"+first.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, first.ID, decode[api.CargoResponse](t, rec).Cargo.ID)

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/cargo/"+uuid.NewString(), nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "unknown id")

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/cargo/not-a-uuid", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code, "invalid id")

	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/storage/texture/"+first.ID+".png", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "non-jpg texture")
	rec = serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/storage/texture/"+first.ID+".jpg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code, "missing texture")
}

func TestAPINews(t *testing.T) {
	cfg := testConfig(t)
	d, st := newDaemon(t, cfg)
	now := time.Now().UTC()
	_, err := st.UpsertNews(context.Background(), []news.Item{
		{Link: "https://example.org/a", Title: "A", PublishedAt: now.Add(-time.Hour)},
		{Link: "https://example.org/b", Title: "B", PublishedAt: now},
	})
	require.NoError(t, err)

	rec := serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/news?limit=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	items := decode[api.NewsResponse](t, rec).News
	require.Len(t, items, 1)
	assert.Equal(t, "B", items[0].Title)
}

func TestAPIStatus(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newDaemon(t, cfg)

	rec := serve(d.Handler(), httptest.NewRequest(http.MethodGet, "/api/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	status := decode[api.StatusResponse](t, rec)
	assert.False(t, status.Running, "not running before Start")
	assert.Equal(t, "sqlite", status.Store.Driver)
	assert.True(t, status.Store.Reachable)
}

func TestAPIWebsocketReceivesIntake(t *testing.T) {
	cfg := testConfig(t)
	d, _ := newDaemon(t, cfg)
	server := httptest.NewServer(d.Handler())
	t.Cleanup(server.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(server.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool {
		return d.Status(context.Background()).Subscribers > 0
	}, 2*time.Second, 10*time.Millisecond, "subscriber never registered")

	rec := serve(d.Handler(), intakeRequest(t, "cake", "3", jpegBytes))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[api.IntakeResponse](t, rec)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var envelope struct {
		Type broadcast.Kind             `json:"type"`
		Data broadcast.CargoCreatedData `json:"data"`
	}
	require.NoError(t, conn.ReadJSON(&envelope))
	assert.Equal(t, broadcast.KindCargo, envelope.Type)
	assert.Equal(t, created.Cargo.ID, envelope.Data.ID)
	assert.Equal(t, created.TextureURL, envelope.Data.TextureURL)
}
