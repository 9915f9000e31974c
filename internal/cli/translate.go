package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// ErrRoundTrip 关闭翻译后页面与原页面不一致
var ErrRoundTrip = errors.New("restored document differs from the original")

type translateOptions struct {
	verify bool
}

func newTranslateCommand(root *rootOptions) *cobra.Command {
	opts := &translateOptions{}

	cmd := &cobra.Command{
		Use:   "translate input.html [output.html]",
		Short: "翻译一个 HTML 文件",
		Long: `加载 HTML 文件并执行一次整页翻译，结果写入输出文件，未指定输出时写到标准输出。
--verify 会在翻译后关闭翻译，检查恢复后的页面与原页面完全一致。`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			dict, err := loadDictionary(cfg, log)
			if err != nil {
				return err
			}

			input, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("读取输入文件失败: %w", err)
			}

			// 一次性翻译总是开启，不读取持久化的开关
			p, err := newPage(cfg, dict, settings.NewMemory(), log)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()
			go func() {
				_ = p.loop.Run(ctx)
			}()

			if err := p.controller.Start(ctx); err != nil {
				return err
			}
			if err := p.load(ctx, bytes.NewReader(input)); err != nil {
				return err
			}
			if err := p.waitReady(ctx); err != nil {
				return err
			}

			translated, err := p.render(ctx)
			if err != nil {
				return err
			}
			st, err := p.controller.Stats(ctx)
			if err != nil {
				return err
			}

			if len(args) == 2 {
				if err := os.WriteFile(args[1], []byte(translated), 0o644); err != nil {
					return fmt.Errorf("写入输出文件失败: %w", err)
				}
			} else {
				fmt.Fprint(cmd.OutOrStdout(), translated)
			}

			log.Info("translation finished",
				zap.String("input", args[0]),
				zap.Int64("translated", st.Translated),
				zap.Int64("visited", st.Visited))

			if !opts.verify {
				return nil
			}
			return verifyRoundTrip(ctx, cmd, p, string(input))
		},
	}

	cmd.Flags().BoolVar(&opts.verify, "verify", false, "翻译后关闭翻译并检查页面是否完全恢复")
	return cmd
}

// verifyRoundTrip 关闭翻译，比较恢复后的渲染结果与原文档的渲染结果
func verifyRoundTrip(ctx context.Context, cmd *cobra.Command, p *page, input string) error {
	original, err := dom.ParseString(input)
	if err != nil {
		return err
	}
	if err := p.controller.Toggle(ctx, false); err != nil {
		return err
	}
	restored, err := p.render(ctx)
	if err != nil {
		return err
	}

	out := cmd.ErrOrStderr()
	if restored != original.String() {
		color.New(color.FgRed, color.Bold).Fprintln(out, "✗ round trip failed")
		return ErrRoundTrip
	}
	color.New(color.FgGreen).Fprintln(out, "✓ round trip verified")
	return nil
}
