// Package web serves the QC visualization UI and its JSON API.
package web

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qcviz/internal/chart"
	"qcviz/internal/config"
	"qcviz/internal/qc"
	"qcviz/internal/qc/qartod"
	"qcviz/internal/session"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// previewRows is how many rows of the annotated table the page shows.
const previewRows = 50

// Server holds the single session the UI works against.
type Server struct {
	cfg      *config.Config
	log      *zap.Logger
	holder   *session.Holder
	loader   *session.Loader
	engine   qc.Engine
	renderer chart.Renderer
	defaults session.Variables
}

// NewServer wires a server with the built-in QC engine and the PNG renderer.
func NewServer(cfg *config.Config, log *zap.Logger) *Server {
	return &Server{
		cfg:      cfg,
		log:      log,
		holder:   &session.Holder{},
		loader:   session.NewLoader(cfg.Server.MaxRows),
		engine:   qartod.New(),
		renderer: chart.PNGRenderer{Width: cfg.Chart.Width, Height: cfg.Chart.Height},
		defaults: session.Variables{
			Variable:  cfg.Defaults.Variable,
			Time:      cfg.Defaults.Time,
			Secondary: cfg.Defaults.Secondary,
		},
	}
}

// SetupRoutes builds the gin engine.
func (s *Server) SetupRoutes() *gin.Engine {
	gin.SetMode(s.cfg.Server.Mode)
	r := gin.New()

	r.Use(RequestLogger(s.log))
	r.Use(gin.Recovery())
	r.MaxMultipartMemory = s.cfg.Server.MaxFileSize
	r.SetHTMLTemplate(parseTemplates())

	r.GET("/", s.Index)
	r.POST("/upload", s.Upload)
	r.POST("/example", s.Example)
	r.POST("/run", s.Run)
	r.POST("/download", s.Download)

	api := r.Group("/api")
	if len(s.cfg.Server.CORSOrigins) > 0 {
		api.Use(cors.New(cors.Config{
			AllowOrigins: s.cfg.Server.CORSOrigins,
			AllowMethods: []string{"GET", "POST", "OPTIONS"},
			AllowHeaders: []string{"Origin", "Content-Type", "Accept"},
			MaxAge:       12 * time.Hour,
		}))
	}
	{
		api.GET("/health", s.HealthCheck)
		api.GET("/schema", s.Schema)
		api.POST("/run", s.APIRun)
	}

	return r
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Server.Addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: s.cfg.GetReadHeaderTimeout(),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.log.Info("Starting HTTP server", zap.String("addr", s.cfg.Server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		s.log.Info("Shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return err
		}
		s.log.Info("Server gracefully stopped")
		return nil
	})
	return g.Wait()
}

// RequestLogger logs every request with zap.
func RequestLogger(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Info("request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
		)
	}
}
