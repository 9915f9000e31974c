package cli

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type importOptions struct {
	output  string
	merge   bool
	delay   time.Duration
	timeout time.Duration
}

func newImportCommand(root *rootOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import url...",
		Short: "从三列词汇表网页（简体、繁体、英语）抓取词条并写入词典文件",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			scraper := dictionary.NewScraper(&http.Client{Timeout: opts.timeout}, log.Named("scraper"), opts.delay)
			scraped, err := scraper.ScrapeAll(cmd.Context(), args)
			if err != nil {
				return err
			}

			var entries []dictionary.Entry
			if opts.merge {
				if _, statErr := os.Stat(opts.output); statErr == nil {
					existing, err := dictionary.LoadFile(opts.output)
					if err != nil {
						return err
					}
					entries = append(entries, existing.AllEntries()...)
				}
			}
			entries = append(entries, scraped...)

			// 经过词典构建完成去重和空值过滤
			dict := dictionary.New(entries, dictionary.WithLogger(log.Named("dictionary")))
			if err := dictionary.Save(opts.output, dictionary.NewFile(dict.Entries())); err != nil {
				return fmt.Errorf("写入词典失败: %w", err)
			}

			log.Info("dictionary imported",
				zap.Int("pages", len(args)),
				zap.Int("scraped", len(scraped)),
				zap.Int("entries", dict.Len()),
				zap.String("output", opts.output))
			color.New(color.FgGreen).Fprintf(cmd.OutOrStdout(), "✓ %d entries written to %s\n", dict.Len(), opts.output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.output, "output", "o", "dictionary.toml", "输出词典文件 (toml/yaml/json)")
	cmd.Flags().BoolVar(&opts.merge, "merge", false, "与已有的输出文件合并")
	cmd.Flags().DurationVar(&opts.delay, "delay", time.Second, "连续请求之间的间隔")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "单个请求超时")
	return cmd
}
