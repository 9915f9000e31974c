package cli

import (
	"fmt"
	"io"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/mattn/go-runewidth"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/spf13/cobra"
)

type searchOptions struct {
	fuzzy bool
	limit int
	width int
}

func newSearchCommand(root *rootOptions) *cobra.Command {
	opts := &searchOptions{}

	cmd := &cobra.Command{
		Use:   "search query",
		Short: "在词典中搜索英文、简体或繁体词条",
		Args:  cobra.ExactArgs(1),
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

			var results []dictionary.Entry
			if opts.fuzzy {
				results = dict.SearchFuzzy(args[0], opts.limit)
			} else {
				results = dict.Search(args[0], opts.limit)
			}

			out := cmd.OutOrStdout()
			if len(results) == 0 {
				fmt.Fprintf(out, "没有找到与 %q 匹配的词条\n", args[0])
				return nil
			}
			renderEntries(out, results, opts.width)
			return nil
		},
	}

	cmd.Flags().BoolVar(&opts.fuzzy, "fuzzy", false, "模糊匹配，按相似度排序")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 20, "最多显示的条数，0 表示不限制")
	cmd.Flags().IntVar(&opts.width, "width", 40, "单元格最大显示宽度")
	return cmd
}

// renderEntries 以表格输出词条，宽字符按显示宽度截断
func renderEntries(w io.Writer, entries []dictionary.Entry, width int) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.AppendHeader(table.Row{"#", "English", "简体中文", "繁體中文"})
	for i, e := range entries {
		tw.AppendRow(table.Row{
			i + 1,
			truncate(e.English, width),
			truncate(e.Simplified, width),
			truncate(e.Traditional, width),
		})
	}
	tw.SetStyle(table.StyleLight)
	tw.Render()
}

func truncate(s string, width int) string {
	if width <= 0 {
		return s
	}
	return runewidth.Truncate(s, width, "…")
}
