// Package server 通过 HTTP 暴露文档宿主：渲染页面、修改节点、发送开关命令、读写设置。
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/nerdneilsfield/go-page-overlay/internal/engine"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"go.uber.org/zap"
)

// Config 服务依赖
type Config struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration

	Loop       *dom.EventLoop
	Controller *engine.Controller
	Dictionary *dictionary.Dictionary
	Settings   settings.Store
	Logger     *zap.Logger
}

// Server HTTP 宿主
type Server struct {
	addr         string
	readTimeout  time.Duration
	writeTimeout time.Duration

	loop       *dom.EventLoop
	controller *engine.Controller
	dict       *dictionary.Dictionary
	settings   settings.Store
	logger     *zap.Logger
	router     *chi.Mux
}

// New 创建服务并注册路由
func New(cfg Config) (*Server, error) {
	if cfg.Loop == nil || cfg.Controller == nil {
		return nil, errors.New("server: loop and controller are required")
	}
	if cfg.Dictionary == nil {
		cfg.Dictionary = dictionary.New(nil)
	}
	if cfg.Settings == nil {
		cfg.Settings = settings.NewMemory()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	s := &Server{
		addr:         cfg.Addr,
		readTimeout:  cfg.ReadTimeout,
		writeTimeout: cfg.WriteTimeout,
		loop:         cfg.Loop,
		controller:   cfg.Controller,
		dict:         cfg.Dictionary,
		settings:     cfg.Settings,
		logger:       cfg.Logger,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger(cfg.Logger))
	s.routes(r)
	s.router = r
	return s, nil
}

func (s *Server) routes(r chi.Router) {
	r.Get("/healthz", s.handleHealth)
	r.Get("/", s.handleDocument)

	r.Route("/api", func(r chi.Router) {
		r.Post("/message", s.handleMessage)
		r.Get("/state", s.handleState)
		r.Post("/nodes", s.handleInsertNodes)
		r.Delete("/nodes", s.handleRemoveNodes)
		r.Get("/dictionary/search", s.handleSearch)
		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handlePutSettings)
	})
}

// Handler 返回路由，供测试和自定义监听使用
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe 监听直到 ctx 结束，然后优雅关闭
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.router,
		ReadTimeout:  s.readTimeout,
		WriteTimeout: s.writeTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", zap.String("addr", s.addr))
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.logger.Info("shutting down http server")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// requestLogger 用 zap 记录每个请求
func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)))
		})
	}
}
