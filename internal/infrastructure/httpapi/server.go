package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"RingsideSync/internal/domain"
	"RingsideSync/internal/usecase"
)

const shutdownTimeout = 5 * time.Second

// ArticleService serves the published view.
type ArticleService interface {
	Query(f usecase.ArticleFilter) []domain.Article
	AddEngagement(d domain.SyncDomain, id string, delta domain.Engagement) (domain.Article, error)
}

// SyncService exposes the orchestrator controls.
type SyncService interface {
	Trigger(ctx context.Context, domains ...domain.SyncDomain) (domain.PassResult, error)
	SetInterval(d domain.SyncDomain, interval time.Duration) error
	SetOnline(online bool)
	Online() bool
	State() domain.SyncState
	LastPass() domain.PassResult
	Pending() []domain.PendingMarker
	Schedules() []domain.DomainSchedule
}

// QualityService exposes the quality monitor.
type QualityService interface {
	Metrics() domain.QualityMetrics
	Alerts(activeOnly bool) []domain.QualityAlert
	Resolve(id string) error
	GenerateReport() domain.QualityReport
	SetReliability(source string, value float64) error
}

// Deps are the collaborators behind the API.
type Deps struct {
	Articles ArticleService
	Sync     SyncService
	Quality  QualityService
	Logger   *slog.Logger
	Now      func() time.Time
}

// Server is the JSON read and control API.
type Server struct {
	articles ArticleService
	sync     SyncService
	quality  QualityService
	logger   *slog.Logger
	now      func() time.Time
	engine   *gin.Engine
}

// NewServer builds the router.
func NewServer(deps Deps) *Server {
	if deps.Now == nil {
		deps.Now = time.Now
	}
	s := &Server{
		articles: deps.Articles,
		sync:     deps.Sync,
		quality:  deps.Quality,
		logger:   deps.Logger,
		now:      deps.Now,
	}
	s.engine = s.setupRouter()
	return s
}

// Handler returns the underlying http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()
	if s.logger != nil {
		s.logger.Info("http api listening", "addr", addr)
	}

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) setupRouter() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.requestLogger())

	config := cors.DefaultConfig()
	config.AllowAllOrigins = true
	config.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	config.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "Authorization"}
	r.Use(cors.New(config))

	api := r.Group("/api/v1")
	{
		api.GET("/health", s.health)
		api.GET("/articles", s.listArticles)
		api.POST("/articles/:domain/:id/engagement", s.addEngagement)

		api.GET("/sync", s.syncStatus)
		api.POST("/sync", s.triggerSync)
		api.PUT("/sync/:domain/interval", s.setInterval)
		api.POST("/connectivity", s.setConnectivity)

		q := api.Group("/quality")
		q.GET("/metrics", s.qualityMetrics)
		q.GET("/alerts", s.qualityAlerts)
		q.POST("/alerts/:id/resolve", s.resolveAlert)
		q.GET("/report", s.qualityReport)
		q.PUT("/reliability/:source", s.setReliability)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	return r
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if s.logger == nil {
			return
		}
		s.logger.Debug("http request",
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
