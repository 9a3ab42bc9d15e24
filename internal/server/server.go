// Package server exposes the coach over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/abhisek/stepwise/internal/coach"
	"github.com/abhisek/stepwise/internal/logger"
	"github.com/abhisek/stepwise/internal/skillgraph"
)

// Tutor is the part of *coach.Coach the handlers use.
type Tutor interface {
	HandleTurn(ctx context.Context, token, utterance string) (coach.Reply, error)
	CurrentPlan(ctx context.Context, token string) ([]skillgraph.Skill, error)
	Reset(ctx context.Context, token string) error
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(t Tutor, log *logger.Logger) *gin.Engine {
	if log == nil {
		log = logger.Nop()
	}
	h := &handler{tutor: t, log: log.With("service", "http")}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestLogger(log))
	r.Use(Metrics())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowHeaders:    []string{"Content-Type", "X-Requested-With"},
		MaxAge:          12 * time.Hour,
	}))

	r.GET("/", h.root)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.POST("/chat", h.chat)
	r.GET("/plan/:token", h.plan)
	r.DELETE("/session/:token", h.reset)

	return r
}

// Server owns the HTTP listener.
type Server struct {
	srv *http.Server
	log *logger.Logger
}

func New(addr string, t Tutor, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(t, log),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log,
	}
}

// Run serves until ctx is cancelled, then drains in-flight turns.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.log.Info("http server listening", "addr", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.log.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 30*time.Second)
	defer cancel()
	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}
