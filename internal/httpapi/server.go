// Package httpapi serves the works table over HTTP and exposes the sync
// trigger.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/matsen/works/internal/logger"
	"github.com/matsen/works/internal/pipeline"
	"github.com/matsen/works/internal/work"
)

// APIKeyHeader carries the shared secret for POST /update.
const APIKeyHeader = "X-API-Key"

// Reader is the read side of the works store.
type Reader interface {
	GetByID(ctx context.Context, id string) (*work.Work, error)
	ListAll(ctx context.Context, limit int) ([]work.Work, error)
	Search(ctx context.Context, f work.Filter) ([]work.Work, error)
}

// Server wires the store and the sync trigger to gin handlers.
type Server struct {
	store  Reader
	runner pipeline.SyncRunner
	token  string
	log    *zap.Logger
	engine *gin.Engine
}

// New creates a Server. An empty token rejects every update request.
func New(store Reader, runner pipeline.SyncRunner, token string, log *zap.Logger) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{
		store:  store,
		runner: runner,
		token:  token,
		log:    log.Named("http"),
	}

	engine := gin.New()
	engine.Use(logger.RequestID(), logger.GinMiddleware(s.log), logger.Recovery(s.log))
	s.routes(engine)
	s.engine = engine
	return s
}

func (s *Server) routes(r *gin.Engine) {
	r.GET("/healthz", s.health)
	r.GET("/records", s.listRecords)
	r.GET("/records/*id", s.getRecord)
	r.GET("/filter", s.searchRecords)
	r.POST("/update", s.requireToken, s.update)
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Timeouts bounds server reads and writes.
type Timeouts struct {
	Read  time.Duration
	Write time.Duration
}

// ListenAndServe serves on addr until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, t Timeouts) error {
	srv := &http.Server{
		Addr:         addr,
		Handler:      s.engine,
		ReadTimeout:  t.Read,
		WriteTimeout: t.Write,
	}

	s.log.Info("Listening", zap.String("addr", addr))
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	s.log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
