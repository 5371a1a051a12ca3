// Package server exposes the deck builder over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"auto_ppt_generator/config"
	"auto_ppt_generator/pptx"
	"auto_ppt_generator/publisher"
)

const (
	pptxMIME       = "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	requestTimeout = 90 * time.Second
	sourceHeader   = "X-Outline-Source"
)

const indexHTML = `<!doctype html><html><head><meta charset="utf-8"><title>Auto PPT Generator</title></head>` +
	`<body><h1>Auto PPT Generator API</h1><p>POST /api/generate or /api/preview_outline</p></body></html>`

// Server wires the publisher to HTTP routes.
type Server struct {
	pub     *publisher.Publisher
	cfg     config.Config
	logger  *zap.Logger
	limiter *RateLimiter
	echo    *echo.Echo
}

// New builds the router. Call Close (or Shutdown) to release the rate
// limiter.
func New(pub *publisher.Publisher, cfg config.Config, logger *zap.Logger) (*Server, error) {
	if pub == nil {
		return nil, errors.New("publisher required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{pub: pub, cfg: cfg, logger: logger, echo: echo.New()}
	if cfg.RateLimitPerMinute > 0 {
		s.limiter = NewRateLimiter(cfg.RateLimitPerMinute, time.Minute)
	}
	s.setup()
	return s, nil
}

func (s *Server) setup() {
	e := s.echo
	e.HideBanner = true
	e.HidePort = true
	e.IPExtractor = echo.ExtractIPFromXFFHeader(
		echo.TrustLoopback(true),
		echo.TrustLinkLocal(false),
		echo.TrustPrivateNet(true),
	)
	e.HTTPErrorHandler = s.httpErrorHandler

	e.Use(middleware.RequestIDWithConfig(middleware.RequestIDConfig{Generator: uuid.NewString}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			s.logger.Info("request",
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
				zap.String("request_id", v.RequestID))
			return nil
		},
	}))
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPost},
		ExposeHeaders: []string{echo.HeaderContentDisposition, sourceHeader},
	}))

	e.GET("/", handleIndex)
	e.HEAD("/", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) })
	e.GET("/healthz", handleHealthz)

	api := e.Group("/api",
		middleware.BodyLimit(fmt.Sprintf("%dM", s.cfg.Limits.MaxFileMB+1)),
		s.rateLimit,
	)
	api.POST("/preview_outline", s.handlePreviewOutline)
	api.POST("/generate", s.handleGenerate)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start listens on addr until Shutdown.
func (s *Server) Start(addr string) error {
	s.logger.Info("starting web server", zap.String("addr", addr))
	err := s.echo.Start(addr)
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests and releases the rate limiter.
func (s *Server) Shutdown(ctx context.Context) error {
	defer s.Close()
	return s.echo.Shutdown(ctx)
}

// Close releases the rate limiter without touching the listener.
func (s *Server) Close() {
	if s.limiter != nil {
		s.limiter.Close()
	}
}

func (s *Server) rateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if s.limiter != nil && !s.limiter.Allow(c.RealIP()) {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, slow down")
		}
		return next(c)
	}
}

// httpErrorHandler answers every error as {"detail": "..."} and logs 5xx.
func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	code := http.StatusInternalServerError
	detail := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if msg, ok := he.Message.(string); ok {
			detail = msg
		} else {
			detail = http.StatusText(code)
		}
	}
	if code >= 500 {
		s.logger.Error("server error", zap.Error(err), zap.String("uri", c.Request().RequestURI))
	}
	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(code)
		return
	}
	_ = c.JSON(code, map[string]string{"detail": detail})
}

func handleIndex(c echo.Context) error {
	return c.HTML(http.StatusOK, indexHTML)
}

func handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"ok": true,
		"ts": time.Now().UTC().Format(time.RFC3339),
	})
}

// requestFromForm reads the shared form fields. text is required.
func requestFromForm(c echo.Context) (publisher.Request, error) {
	params, err := c.FormParams()
	if err != nil {
		return publisher.Request{}, echo.NewHTTPError(http.StatusBadRequest, "malformed form body")
	}
	if _, ok := params["text"]; !ok {
		return publisher.Request{}, echo.NewHTTPError(http.StatusBadRequest, "text is required")
	}
	return publisher.Request{
		Text:         params.Get("text"),
		Guidance:     params.Get("guidance"),
		IncludeNotes: formBool(params.Get("include_notes")),
		APIKey:       params.Get("api_key"),
		Provider:     params.Get("provider"),
		Model:        params.Get("model"),
		BaseURL:      params.Get("base_url"),
	}, nil
}

func formBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

func (s *Server) handlePreviewOutline(c echo.Context) error {
	req, err := requestFromForm(c)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	o, src := s.pub.Outline(ctx, req)
	c.Response().Header().Set(sourceHeader, string(src))
	return c.JSON(http.StatusOK, o)
}

func (s *Server) handleGenerate(c echo.Context) error {
	file, err := c.FormFile("template")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "template file is required")
	}
	ext := strings.ToLower(path.Ext(file.Filename))
	if !s.cfg.AllowsExtension(ext) {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unsupported file type %q; allowed: %s", ext, strings.Join(s.cfg.AllowedExtensions, ", ")))
	}
	limit := s.cfg.Limits.FileLimitBytes()
	tooLarge := echo.NewHTTPError(http.StatusRequestEntityTooLarge,
		fmt.Sprintf("template too large; max is %d MB", s.cfg.Limits.MaxFileMB))
	if file.Size > limit {
		return tooLarge
	}
	req, err := requestFromForm(c)
	if err != nil {
		return err
	}

	src, err := file.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read the uploaded template")
	}
	defer src.Close()
	data, err := io.ReadAll(io.LimitReader(src, limit+1))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "could not read the uploaded template")
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), requestTimeout)
	defer cancel()
	deck, err := s.pub.Build(ctx, req, data)
	if err != nil {
		var unsafe *pptx.UnsafeArchiveError
		var invalid *pptx.InvalidTemplateError
		switch {
		case errors.Is(err, publisher.ErrTemplateTooLarge):
			return tooLarge
		case errors.As(err, &unsafe), errors.As(err, &invalid):
			return echo.NewHTTPError(http.StatusBadRequest, "invalid or unsafe PowerPoint file")
		default:
			return fmt.Errorf("build deck: %w", err)
		}
	}

	name := downloadName(time.Now().UTC(), c.Response().Header().Get(echo.HeaderXRequestID))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	c.Response().Header().Set(sourceHeader, string(deck.Source))
	return c.Blob(http.StatusOK, pptxMIME, deck.Result.Data)
}

// downloadName is a filesystem-safe attachment name.
func downloadName(now time.Time, requestID string) string {
	base := "Auto_PPT_Generator-" + now.Format("20060102-150405")
	if len(requestID) >= 8 {
		base += "-" + requestID[:8]
	}
	return safeFilename(base) + ".pptx"
}

func safeFilename(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case strings.ContainsRune("-_.()", r):
			return r
		}
		return '_'
	}, s)
}
