// Package server exposes the calculator over JSON/HTTP and serves the web UI.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/roach88/voicecalc/internal/calc"
	"github.com/roach88/voicecalc/internal/store"
)

const (
	// ReadHeaderTimeout limits how long the server waits for request headers.
	ReadHeaderTimeout = 5 * time.Second

	// ShutdownTimeout limits how long in-flight requests may run during
	// graceful shutdown.
	ShutdownTimeout = 5 * time.Second

	maxBodyBytes = 1 << 20
)

// History is the persistence the handlers need.
type History interface {
	AddCalculation(ctx context.Context, expression, result string, voice bool) (int64, error)
	History(ctx context.Context, limit int) ([]store.Calculation, error)
	VoiceHistory(ctx context.Context, limit int) ([]store.Calculation, error)
	Last(ctx context.Context) (store.Calculation, bool, error)
	DeleteCalculation(ctx context.Context, id int64) (bool, error)
	ClearHistory(ctx context.Context) (int64, error)
	Setting(ctx context.Context, key, def string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
}

// Speaker generates and locates audio files.
type Speaker interface {
	Generate(ctx context.Context, text, lang string, slow bool) (string, error)
	Path(name string) (string, error)
}

// Config controls the HTTP server.
type Config struct {
	Addr string
	// StaticDir serves UI assets from disk. Empty serves the embedded page.
	StaticDir string
	// TTSLang and TTSSlow are used when a TTS request omits them.
	TTSLang string
	TTSSlow bool

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Deps are the collaborators behind the handlers. Speaker may be nil, in
// which case text-to-speech requests fail with 503.
type Deps struct {
	Processor *calc.Processor
	History   History
	Speaker   Speaker
	Logger    *zap.Logger

	// NewRequestID overrides request ID generation (for testing).
	NewRequestID func() string
}

// Server is the voicecalc HTTP server.
type Server struct {
	cfg        Config
	processor  *calc.Processor
	history    History
	speaker    Speaker
	logger     *zap.Logger
	newID      func() string
	handler    http.Handler
	httpServer *http.Server
}

// New builds a Server. Processor and History are required.
func New(cfg Config, deps Deps) (*Server, error) {
	if deps.Processor == nil {
		return nil, errors.New("processor is required")
	}
	if deps.History == nil {
		return nil, errors.New("history is required")
	}
	if cfg.ReadHeaderTimeout <= 0 {
		cfg.ReadHeaderTimeout = ReadHeaderTimeout
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = ShutdownTimeout
	}
	if cfg.TTSLang == "" {
		cfg.TTSLang = "en"
	}

	s := &Server{
		cfg:       cfg,
		processor: deps.Processor,
		history:   deps.History,
		speaker:   deps.Speaker,
		logger:    deps.Logger,
		newID:     deps.NewRequestID,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.newID == nil {
		s.newID = uuid.NewString
	}

	static, err := staticHandler(cfg.StaticDir)
	if err != nil {
		return nil, err
	}
	s.handler = s.routes(static)
	s.httpServer = &http.Server{
		Addr:              strings.TrimSpace(cfg.Addr),
		Handler:           s.handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s, nil
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.handler
}

func (s *Server) routes(static http.Handler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("POST /api/calculate", s.handleCalculate)
	mux.HandleFunc("POST /api/voice-process", s.handleVoiceProcess)
	mux.HandleFunc("POST /api/tts", s.handleTTS)
	mux.HandleFunc("GET /audio/{file}", s.handleAudio)

	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("POST /api/history", s.handleHistoryAdd)
	mux.HandleFunc("DELETE /api/history", s.handleHistoryClear)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleHistoryDelete)
	mux.HandleFunc("GET /api/history/voice", s.handleVoiceHistory)

	mux.HandleFunc("GET /api/preferences/theme", s.handleThemeGet)
	mux.HandleFunc("POST /api/preferences/theme", s.handleThemeSet)
	mux.HandleFunc("GET /api/calculation/last", s.handleLastCalculation)

	mux.Handle("GET /", static)

	// Outermost first: request id, tracing, access log, panic recovery.
	return s.withRequestID(s.withTracing(s.withAccessLog(s.withRecover(mux))))
}

// ListenAndServe runs the HTTP server until the context ends.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts connections on ln until the context ends, then shuts
// down gracefully.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	serveErr := make(chan error, 1)
	s.logger.Info("http server listening", zap.String("addr", ln.Addr().String()))
	go func() {
		serveErr <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.logger.Info("http server stopped")
		return nil
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}
