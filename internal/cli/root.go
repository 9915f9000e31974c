package cli

import (
	"fmt"

	"github.com/nerdneilsfield/go-page-overlay/internal/config"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// rootOptions 全局标志
type rootOptions struct {
	cfgFile        string
	debugMode      bool
	logLevel       string
	dictionaryPath string
}

// NewRootCommand 创建根命令
func NewRootCommand(version, commit, buildDate string) *cobra.Command {
	opts := &rootOptions{}

	rootCmd := &cobra.Command{
		Use:   "overlay",
		Short: "基于词典的英文到简体中文页面翻译层",
		Long: `overlay 用静态词典把 HTML 页面中的英文可见文本和 title/placeholder/alt/按钮值
替换为简体中文，并记录原值，关闭时可以把页面完整恢复。

页面加载后插入的节点也会被自动翻译。开关状态保存在设置存储中。`,
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&opts.cfgFile, "config", "", "配置文件路径（默认 $HOME/.overlay.yaml 或 ./.overlay.yaml）")
	flags.BoolVar(&opts.debugMode, "debug", false, "启用调试日志")
	flags.StringVar(&opts.logLevel, "log-level", "", "日志级别 (debug/info/warn/error)，覆盖配置")
	flags.StringVarP(&opts.dictionaryPath, "dictionary", "d", "", "词典文件路径 (toml/yaml/json)，覆盖配置")

	rootCmd.AddCommand(
		newTranslateCommand(opts),
		newServeCommand(opts),
		newSearchCommand(opts),
		newImportCommand(opts),
		newSettingsCommand(opts),
		newVersionCommand(version, commit, buildDate),
	)
	return rootCmd
}

// runtime 加载配置并创建日志记录器，命令行标志优先于配置文件
func (o *rootOptions) runtime() (*config.Config, *zap.Logger, error) {
	cfg, err := config.LoadConfig(o.cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	if o.debugMode {
		cfg.Debug = true
	}
	if o.logLevel != "" {
		cfg.LogLevel = o.logLevel
	}
	if o.dictionaryPath != "" {
		cfg.DictionaryPath = o.dictionaryPath
	}

	level := cfg.LogLevel
	if cfg.Debug {
		level = "debug"
	}
	log, err := logger.NewLoggerWithLevel(level)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// loadDictionary 按配置加载词典
func loadDictionary(cfg *config.Config, log *zap.Logger) (*dictionary.Dictionary, error) {
	var opts []dictionary.Option
	opts = append(opts, dictionary.WithLogger(log.Named("dictionary")))
	if cfg.NormalizeDictionary {
		opts = append(opts, dictionary.WithNormalize())
	}

	dict, err := dictionary.Load(cfg.DictionaryPath, opts...)
	if err != nil {
		return nil, fmt.Errorf("加载词典失败: %w", err)
	}
	log.Debug("dictionary loaded",
		zap.String("path", cfg.DictionaryPath),
		zap.Int("entries", dict.Len()))
	return dict, nil
}

func newVersionCommand(version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "显示版本信息",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "overlay %s (commit %s, built %s)\n", version, commit, buildDate)
		},
	}
}
