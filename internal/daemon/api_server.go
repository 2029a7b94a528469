package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"cargoport/internal/api"
	"cargoport/internal/assets"
	"cargoport/internal/config"
	"cargoport/internal/logging"
	"cargoport/internal/services"
)

// multipart overhead on top of the texture itself
const maxIntakeBytes = assets.MaxTextureBytes + 1<<20

type apiServer struct {
	bind    string
	token   string
	logger  *slog.Logger
	daemon  *Daemon
	handler http.Handler

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	srv := &apiServer{
		bind:   strings.TrimSpace(cfg.Paths.APIBind),
		token:  strings.TrimSpace(cfg.Paths.APIToken),
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/cargo", authMiddleware(srv.token, srv.handleIntake))
	mux.HandleFunc("GET /api/cargo", srv.handleRecent)
	mux.HandleFunc("GET /api/cargo/today", srv.handleToday)
	mux.HandleFunc("GET /api/cargo/{id}", srv.handleCargo)
	mux.HandleFunc("POST /api/cargo/info", authMiddleware(srv.token, srv.handleEditText))
	mux.HandleFunc("POST /api/cargo-info", authMiddleware(srv.token, srv.handleEditText))
	mux.HandleFunc("GET /api/news", srv.handleNews)
	mux.HandleFunc("GET /api/storage/texture/{file}", srv.handleTexture)
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /ws", d.hub.ServeWS)

	srv.handler = requestIDMiddleware(mux)
	return srv
}

func (s *apiServer) start(ctx context.Context) error {
	if s.bind == "" {
		s.logger.Info("api disabled (paths.api_bind is empty)")
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	server := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return context.WithoutCancel(ctx) },
	}
	s.mu.Lock()
	s.listener = listener
	s.server = server
	s.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	s.mu.Lock()
	server := s.server
	listener := s.listener
	s.server = nil
	s.listener = nil
	s.mu.Unlock()

	if server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}
	if listener != nil {
		_ = listener.Close()
	}
}

func (s *apiServer) addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleIntake(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxIntakeBytes)
	if err := r.ParseMultipartForm(1 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		s.writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()

	req := api.IntakeRequest{CargoType: r.FormValue("cargoType")}
	if raw := strings.TrimSpace(r.FormValue("paintTime")); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "paintTime must be a number")
			return
		}
		req.PaintTime = value
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	resp, err := s.daemon.cargoSvc.Intake(r.Context(), req, file)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("cargo received",
		logging.String(logging.FieldCargoID, resp.Cargo.ID),
		logging.String("type", string(resp.Cargo.Type)),
	)
	s.writeJSON(w, http.StatusCreated, resp)
}

func (s *apiServer) handleRecent(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.cargoSvc.Recent(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CargoListResponse{Cargo: items})
}

func (s *apiServer) handleToday(w http.ResponseWriter, r *http.Request) {
	items, err := s.daemon.cargoSvc.Today(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CargoListResponse{Cargo: items})
}

func (s *apiServer) handleCargo(w http.ResponseWriter, r *http.Request) {
	view, err := s.daemon.cargoSvc.Describe(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if view == nil {
		s.writeError(w, http.StatusNotFound, "cargo not found")
		return
	}
	s.writeJSON(w, http.StatusOK, api.CargoResponse{Cargo: *view})
}

func (s *apiServer) handleEditText(w http.ResponseWriter, r *http.Request) {
	var req api.EditTextRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid json body")
		return
	}
	view, err := s.daemon.cargoSvc.EditText(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.CargoResponse{Cargo: view})
}

func (s *apiServer) handleNews(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	items, err := s.daemon.newsSvc.Latest(r.Context(), limit)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, api.NewsResponse{News: items})
}

func (s *apiServer) handleTexture(w http.ResponseWriter, r *http.Request) {
	id, ok := strings.CutSuffix(r.PathValue("file"), ".jpg")
	if !ok {
		s.writeError(w, http.StatusNotFound, "texture not found")
		return
	}
	path, err := s.daemon.textures.Path(id)
	if err != nil {
		s.writeError(w, http.StatusNotFound, "texture not found")
		return
	}
	w.Header().Set("Content-Type", assets.MediaType)
	w.Header().Set("Cache-Control", "public, max-age=86400, immutable")
	http.ServeFile(w, r, path)
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.daemon.Status(r.Context()))
}

func (s *apiServer) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, services.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, services.ErrConfiguration):
		status = http.StatusServiceUnavailable
	}
	if status >= http.StatusInternalServerError {
		logging.ErrorWithContext(logging.WithContext(r.Context(), s.logger), "api request failed", "api_request_failed",
			logging.String("path", r.URL.Path),
			logging.Error(err),
		)
	}
	s.writeError(w, status, err.Error())
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

// requestIDMiddleware tags each request with a correlation id for logs.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), requestID)))
	})
}
