package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nerdneilsfield/go-page-overlay/internal/server"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type serveOptions struct {
	addr string
}

func newServeCommand(root *rootOptions) *cobra.Command {
	opts := &serveOptions{}

	cmd := &cobra.Command{
		Use:   "serve page.html",
		Short: "加载页面并通过 HTTP 提供宿主接口",
		Long: `加载 HTML 页面并启动 HTTP 服务。页面按持久化的开关状态翻译，
之后可以通过 /api/nodes 插入或删除节点，通过 /api/message 或 /api/settings 切换翻译。`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()
			if opts.addr != "" {
				cfg.Server.Addr = opts.addr
			}

			dict, err := loadDictionary(cfg, log)
			if err != nil {
				return err
			}
			input, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取页面失败: %w", err)
			}

			store, err := settings.Open(cfg.Settings.Driver, cfg.Settings.Path)
			if err != nil {
				return fmt.Errorf("打开设置存储失败: %w", err)
			}
			defer func() {
				if err := store.Close(); err != nil {
					log.Warn("failed to close settings store", zap.Error(err))
				}
			}()

			p, err := newPage(cfg, dict, store, log)
			if err != nil {
				return err
			}
			srv, err := server.New(server.Config{
				Addr:         cfg.Server.Addr,
				ReadTimeout:  cfg.Server.ReadTimeout,
				WriteTimeout: cfg.Server.WriteTimeout,
				Loop:         p.loop,
				Controller:   p.controller,
				Dictionary:   dict,
				Settings:     store,
				Logger:       log.Named("server"),
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			g, ctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return p.loop.Run(ctx)
			})
			g.Go(func() error {
				// 先注册加载钩子再解析，与页面脚本在文档加载中注入的时机一致
				if err := p.controller.Start(ctx); err != nil {
					return err
				}
				if err := p.load(ctx, bytes.NewReader(input)); err != nil {
					return err
				}
				log.Info("page loaded", zap.String("path", args[0]))
				return nil
			})
			g.Go(func() error {
				return srv.ListenAndServe(ctx)
			})

			if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			log.Info("server stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", "", "监听地址，覆盖配置中的 server.addr")
	return cmd
}
