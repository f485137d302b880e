package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"ownnginx/internal/config"
	"ownnginx/internal/contenttype"
	"ownnginx/internal/resolver"
)

const defaultShutdownTimeout = 5 * time.Second

var ginModeOnce sync.Once

// Server はHTTPサーバーを管理する構造体
type Server struct {
	config     *config.Config
	logger     *zap.Logger
	engine     *gin.Engine
	files      *FileHandler
	httpServer *http.Server
	listener   net.Listener
}

// Option は Server の生成時の設定を変更する
type Option func(*options)

type options struct {
	types *contenttype.Table
}

// WithContentTypes は拡張子と Content-Type の対応表を差し替える
func WithContentTypes(types *contenttype.Table) Option {
	return func(o *options) {
		o.types = types
	}
}

// New は新しいServerインスタンスを作成する
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.types == nil {
		o.types = contenttype.DefaultTable()
	}

	res, err := resolver.New(cfg.Content.Root, cfg.Content.DefaultDocument, cfg.Content.DefaultExtension)
	if err != nil {
		return nil, fmt.Errorf("リゾルバの作成に失敗: %w", err)
	}

	pages, err := loadErrorPages()
	if err != nil {
		return nil, err
	}

	files := &FileHandler{
		resolver: res,
		types:    o.types,
		pages:    pages,
		logger:   logger,
	}

	engine := newEngine(files, pages, logger)

	return &Server{
		config: cfg,
		logger: logger,
		engine: engine,
		files:  files,
		httpServer: &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      engine,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  cfg.Server.IdleTimeout,
			ErrorLog:     zap.NewStdLog(logger),
		},
	}, nil
}

// newEngine はルーティングを設定した gin エンジンを作成する
func newEngine(files *FileHandler, pages *errorPages, logger *zap.Logger) *gin.Engine {
	ginModeOnce.Do(func() {
		gin.SetMode(gin.ReleaseMode)
	})

	engine := gin.New()
	engine.HandleMethodNotAllowed = true
	engine.RedirectTrailingSlash = false
	engine.RedirectFixedPath = false
	_ = engine.SetTrustedProxies(nil)

	engine.Use(requestID(), accessLog(logger), recovery(logger, pages))

	// 静的ファイルは GET と HEAD のみ
	engine.GET("/*filepath", files.Serve)
	engine.HEAD("/*filepath", files.Serve)

	engine.NoMethod(pages.methodNotAllowed)
	engine.NoRoute(pages.notFound)

	return engine
}

// Handler はリクエストを処理する http.Handler を返す
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Listen は設定されたアドレスにバインドする
// バインドに失敗した場合はすぐにエラーを返す
func (s *Server) Listen() error {
	if s.listener != nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("ポートのバインドに失敗 (%s): %w", s.httpServer.Addr, err)
	}
	s.listener = ln
	return nil
}

// Addr はバインドしたアドレスを返す
// Listen の前は nil を返す
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Start はサーバーを起動する
// コンテキストのキャンセルまたは SIGINT / SIGTERM を受けるとグレースフルにシャットダウンする
func (s *Server) Start(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	// サーバーを別ゴルーチンで起動
	g.Go(func() error {
		s.logger.Info("HTTPサーバーを起動しています",
			zap.String("addr", s.listener.Addr().String()),
			zap.String("root", s.files.resolver.Root()),
			zap.Int("content_types", s.files.types.Len()),
		)
		if err := s.httpServer.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("サーバーの実行に失敗: %w", err)
		}
		return nil
	})

	// コンテキストかシグナルを待つ
	g.Go(func() error {
		<-gctx.Done()
		if ctx.Err() != nil {
			s.logger.Info("停止要求を受信しました", zap.Error(context.Cause(ctx)))
		}
		return s.Shutdown()
	})

	return g.Wait()
}

// Shutdown はサーバーをグレースフルにシャットダウンする
// タイムアウトした場合は残りの接続を強制的に閉じる
func (s *Server) Shutdown() error {
	s.logger.Info("サーバーをシャットダウンしています...")

	timeout := s.config.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = defaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		return multierr.Append(
			fmt.Errorf("サーバーのシャットダウンに失敗: %w", err),
			s.httpServer.Close(),
		)
	}

	s.logger.Info("サーバーが正常にシャットダウンされました")
	return nil
}
