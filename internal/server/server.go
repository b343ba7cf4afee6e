package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/usagehub/internal/config"
	datasetdomain "github.com/smallbiznis/usagehub/internal/dataset/domain"
	factdomain "github.com/smallbiznis/usagehub/internal/fact/domain"
	ingestdomain "github.com/smallbiznis/usagehub/internal/ingest/domain"
	storagedomain "github.com/smallbiznis/usagehub/internal/storage/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func NewEngine(cfg config.Config, log *zap.Logger) *gin.Engine {
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	return r
}

type ServerParam struct {
	fx.In

	Config   config.Config
	Engine   *gin.Engine
	Log      *zap.Logger
	Blob     storagedomain.BlobStore
	Datasets datasetdomain.Service
	Ingest   ingestdomain.Service
	Facts    factdomain.Service
}

type Server struct {
	cfg      config.Config
	engine   *gin.Engine
	log      *zap.Logger
	blob     storagedomain.BlobStore
	datasets datasetdomain.Service
	ingest   ingestdomain.Service
	facts    factdomain.Service
}

func NewServer(p ServerParam) *Server {
	return &Server{
		cfg:      p.Config,
		engine:   p.Engine,
		log:      p.Log.Named("http.server"),
		blob:     p.Blob,
		datasets: p.Datasets,
		ingest:   p.Ingest,
		facts:    p.Facts,
	}
}

func (s *Server) RegisterAPIRoutes() {
	s.engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := s.engine.Group("/v1")
	v1.Use(AccountMiddleware(s.cfg))
	{
		v1.POST("/datasets", s.UploadDataset)
		v1.GET("/datasets", s.ListDatasets)
		v1.GET("/datasets/:id", s.GetDataset)
		v1.POST("/datasets/:id/run", s.RunDataset)
		v1.GET("/datasets/:id/facts", s.ListDatasetFacts)
	}
}

// RunHTTP starts the HTTP listener under the fx lifecycle.
func RunHTTP(lc fx.Lifecycle, cfg config.Config, engine *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			_ = ctx
			go func() {
				log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			return srv.Shutdown(ctx)
		},
	})
}
