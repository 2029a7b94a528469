package weather_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cargoport/internal/services"
	"cargoport/internal/services/weather"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "25.033", r.URL.Query().Get("latitude"))
		assert.Equal(t, "121.5654", r.URL.Query().Get("longitude"))
		assert.Contains(t, r.URL.Query().Get("current"), "precipitation")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestIsRaining(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{"dry", `{"current":{"precipitation":0,"rain":0,"showers":0}}`, false},
		{"rain", `{"current":{"precipitation":0.4,"rain":0.4,"showers":0}}`, true},
		{"showers only", `{"current":{"showers":1.2}}`, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := serve(t, http.StatusOK, tc.body)
			client := weather.NewHTTPClient(srv.URL, 25.033, 121.5654, srv.Client())
			got, err := client.IsRaining(context.Background())
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestIsRainingErrors(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		srv := serve(t, http.StatusBadGateway, "")
		_, err := weather.NewHTTPClient(srv.URL, 25.033, 121.5654, srv.Client()).IsRaining(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, services.ErrExternalTool))
	})
	t.Run("missing current", func(t *testing.T) {
		srv := serve(t, http.StatusOK, `{"hourly":{}}`)
		_, err := weather.NewHTTPClient(srv.URL, 25.033, 121.5654, srv.Client()).IsRaining(context.Background())
		require.Error(t, err)
	})
	t.Run("empty base url", func(t *testing.T) {
		_, err := weather.NewHTTPClient("", 0, 0, nil).IsRaining(context.Background())
		assert.ErrorIs(t, err, services.ErrConfiguration)
	})
}
