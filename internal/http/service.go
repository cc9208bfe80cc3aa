package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"

	apicontract "github.com/MatheusCampagnolo/kargo/api-contract"
	"github.com/MatheusCampagnolo/kargo/internal/config"
	"github.com/MatheusCampagnolo/kargo/internal/http/apierr"
	"github.com/MatheusCampagnolo/kargo/internal/http/metric"
	"github.com/MatheusCampagnolo/kargo/internal/http/middleware"
	"github.com/MatheusCampagnolo/kargo/internal/http/swagger"
	"github.com/MatheusCampagnolo/kargo/internal/service"
	"github.com/MatheusCampagnolo/kargo/internal/storage/db"
	"github.com/MatheusCampagnolo/kargo/pkg/validator"
	"github.com/MatheusCampagnolo/kargo/pkg/zerror"
)

var tracer = otel.Tracer("internal/http")

var routeNotFoundErr = zerror.NewNotFound("NOT_FOUND", "resource not found")

// Service represents the HTTP service.
type Service struct {
	cfg       config.HTTP
	logger    *slog.Logger
	metrics   *metric.Metrics
	validator validator.Validator

	healthChecker db.HealthChecker
	productSvc    service.ProductService
}

type CleanupFunc func(ctx context.Context) error

// handlerFunc is an http.HandlerFunc that reports failures as an error.
// Errors are turned into responses by handleResponseError.
type handlerFunc func(w http.ResponseWriter, r *http.Request) error

func New(
	cfg config.HTTP,
	log *slog.Logger,
	healthChecker db.HealthChecker,
	productSvc service.ProductService,
) (*Service, error) {
	v, err := validator.NewDefaultValidator()
	if err != nil {
		return nil, fmt.Errorf("new default validator: %w", err)
	}

	return &Service{
		cfg:           cfg,
		logger:        log.With(slog.String("service", "http")),
		metrics:       metric.New(),
		validator:     v,
		healthChecker: healthChecker,
		productSvc:    productSvc,
	}, nil
}

func (s *Service) Run(ctx context.Context) (CleanupFunc, error) {
	handler, err := s.Handler(ctx)
	if err != nil {
		return nil, err
	}

	return s.RunWithServer(ctx, handler)
}

// Handler builds the router with every middleware and route registered.
func (s *Service) Handler(ctx context.Context) (http.Handler, error) {
	r := chi.NewRouter()
	s.RegisterMiddlewares(r)

	if s.cfg.Swagger {
		doc, err := apicontract.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("api contract load: %w", err)
		}
		if err := swagger.Register(r, apicontract.GetSpecBytes(), doc); err != nil {
			return nil, fmt.Errorf("swagger register: %w", err)
		}
	}

	s.RegisterHandlers(r)

	return r, nil
}

func (s *Service) RunWithServer(ctx context.Context, handler http.Handler) (CleanupFunc, error) {
	srv := &http.Server{
		Addr:              s.cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    1 << 16, // 64 KB
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	ln, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", srv.Addr, err)
	}

	go func() {
		if err := srv.Serve(ln); err != nil && err != http.ErrServerClosed {
			panic(err)
		}
	}()

	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}, nil
}

func (s *Service) RegisterMiddlewares(r chi.Router) {
	r.Use(
		middleware.Recoverer(s.logger),
		middleware.Trace(tracer),
		middleware.Metrics(s.metrics),
		middleware.CorrelationID(),
		middleware.Cors(s.cfg.CorsAllowedOrigins),
	)
	if s.cfg.AccessLog {
		r.Use(middleware.Logging(s.logger))
	}
}

func (s *Service) RegisterHandlers(r chi.Router) {
	h := newProductHandler(s.productSvc, s.validator)

	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", s.handle(h.ListProducts))
		r.Post("/", s.handle(h.CreateProduct))
		r.Get("/search", s.handle(h.SearchProducts))
		r.Get("/low-stock", s.handle(h.ListLowStockProducts))
		r.Get("/stats", s.handle(h.GetStats))
		r.Get("/{id}", s.handle(h.GetProduct))
		r.Put("/{id}", s.handle(h.UpdateProduct))
		r.Delete("/{id}", s.handle(h.DeleteProduct))
		r.Patch("/{id}/stock", s.handle(h.AdjustStock))
	})

	r.Get(middleware.HealthPath, s.handleHealth)
	r.Handle(middleware.MetricsPath, s.metrics.Handler(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)))

	r.NotFound(s.handle(func(http.ResponseWriter, *http.Request) error {
		return routeNotFoundErr
	}))
}

func (s *Service) handle(fn handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := fn(w, r); err != nil {
			s.handleResponseError(w, r, err)
		}
	}
}

func (s *Service) handleResponseError(w http.ResponseWriter, r *http.Request, err error) {
	res := apierr.New(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(res.StatusCode)

	logLevel := slog.LevelInfo
	if res.StatusCode >= 500 {
		logLevel = slog.LevelError
	} else if res.StatusCode >= 400 {
		logLevel = slog.LevelWarn
	}
	s.logger.Log(r.Context(), logLevel, "http response error",
		slog.Int("status", res.StatusCode), slog.Any("error", err))

	if err := json.NewEncoder(w).Encode(res); err != nil {
		s.logger.ErrorContext(r.Context(), "error encoding error response",
			slog.Any("error", err))
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	if ok, err := s.healthChecker.IsHealthy(r.Context()); err != nil || !ok {
		s.logger.WarnContext(r.Context(), "health check failed", slog.Any("error", err))
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "DOWN"})
		return
	}

	writeJSON(w, http.StatusOK, healthResponse{Status: "UP"})
}
