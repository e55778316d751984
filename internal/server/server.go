package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paperbuilder/paper-builder/backend/go-services/handlers"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/config"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/events"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/handler"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/service"
	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/store"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/logger"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

const shutdownTimeout = 5 * time.Second

// Server owns the paper store and everything wired around it.
type Server struct {
	cfg       *config.Config
	engine    *gin.Engine
	store     *store.Store
	svc       service.Service
	redis     *redis.Client
	publisher *events.RedisPublisher
	started   time.Time
}

// ConnectRedis returns a pinged client, or nil when no host is configured.
func ConnectRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	if cfg.Host == "" {
		return nil, nil
	}
	client := redis.NewClient(&redis.Options{Addr: cfg.Addr(), Password: cfg.Password, DB: cfg.DB})
	pctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.Addr(), err)
	}
	return client, nil
}

// New builds the store, service and router. rdb may be nil, in which case
// changes are not published and the rate limiter stays in memory.
func New(cfg *config.Config, rdb *redis.Client) (*Server, error) {
	ids, err := store.NewIDGenerator(cfg.Store.IDScheme)
	if err != nil {
		return nil, err
	}
	st := store.New(store.WithIDGenerator(ids))
	if cfg.Store.Seed {
		p := store.Seed(st)
		logger.Infof("seeded sample paper: id=%s title=%q", p.ID, p.Title)
	}

	s := &Server{
		cfg:     cfg,
		store:   st,
		svc:     service.New(st),
		redis:   rdb,
		started: time.Now(),
	}
	if rdb != nil {
		s.publisher = events.NewRedisPublisher(rdb, cfg.Redis.Channel, 0)
		st.Subscribe(s.publisher.Notify)
		logger.Infof("publishing store changes to redis channel %q", cfg.Redis.Channel)
	}
	s.engine = s.routes()
	return s, nil
}

func (s *Server) routes() *gin.Engine {
	if s.cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(cors(), gin.Logger(), gin.Recovery())

	if s.cfg.RateLimit.Enabled {
		if s.cfg.RateLimit.UseRedis && s.redis != nil {
			win := time.Duration(s.cfg.RateLimit.WindowSeconds) * time.Second
			r.Use(middleware.RedisRateLimitMiddleware(s.redis, s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst, win))
		} else {
			if s.cfg.RateLimit.UseRedis {
				logger.Warn("redis rate limiter requested but redis is unavailable; limiting per replica")
			}
			r.Use(middleware.RateLimitMiddleware(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst))
		}
	}

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})
	r.GET("/ready", s.ready)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	handlers.RegisterSwagger(r)
	handler.RegisterPaperRoutes(r, s.svc)
	return r
}

// Lightweight CORS for the builder front-end: set common headers and answer preflight.
func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, "+middleware.ClientIDHeader)
		c.Writer.Header().Set("Access-Control-Expose-Headers", "Content-Length, Retry-After")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	}
}

// ready returns 200 only when every configured dependency answers.
func (s *Server) ready(c *gin.Context) {
	ready := true
	deps := map[string]bool{"store": s.store != nil}
	if !deps["store"] {
		ready = false
	}

	if s.cfg.Redis.Host != "" {
		ok := false
		if s.redis != nil {
			ctx, cancel := context.WithTimeout(c.Request.Context(), time.Second)
			ok = s.redis.Ping(ctx).Err() == nil
			cancel()
		}
		deps["redis"] = ok
		if !ok {
			ready = false
		}
	} else {
		// not configured -> consider OK
		deps["redis"] = true
	}

	status, code := "ready", http.StatusOK
	if !ready {
		status, code = "not_ready", http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":  status,
		"deps":    deps,
		"papers":  len(s.store.Papers()),
		"version": s.store.Snapshot().Version,
		"uptime":  time.Since(s.started).String(),
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.engine }

// Run serves until ctx is cancelled, then shuts down gracefully. Request
// contexts derive from ctx so open event streams end on shutdown.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.cfg.Server.Host, s.cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		BaseContext:  func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Infof("paper builder listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		s.Close()
		return fmt.Errorf("server failed: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(sctx)
	s.Close()
	return err
}

// Close stops the change publisher. The redis client belongs to the caller.
func (s *Server) Close() {
	if s.publisher != nil {
		s.publisher.Close()
	}
}
