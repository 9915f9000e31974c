package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-page-overlay/internal/engine"
	"github.com/nerdneilsfield/go-page-overlay/internal/settings"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newSettingsCommand(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "读取或修改翻译开关",
	}
	cmd.AddCommand(newSettingsGetCommand(root), newSettingsSetCommand(root))
	return cmd
}

func newSettingsGetCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get",
		Short: "显示当前翻译开关",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			store, err := settings.Open(cfg.Settings.Driver, cfg.Settings.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			st, err := store.Load(cmd.Context())
			if err != nil {
				return fmt.Errorf("读取设置失败: %w", err)
			}
			printState(cmd.OutOrStdout(), settings.Enabled(st, nil), st.TranslationEnabled != nil)
			return nil
		},
	}
}

type settingsSetOptions struct {
	server string
}

func newSettingsSetCommand(root *rootOptions) *cobra.Command {
	opts := &settingsSetOptions{}

	cmd := &cobra.Command{
		Use:   "set on|off",
		Short: "保存翻译开关，并可选地通知正在运行的页面",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			enabled, err := parseSwitch(args[0])
			if err != nil {
				return err
			}

			cfg, log, err := root.runtime()
			if err != nil {
				return err
			}
			defer func() {
				_ = log.Sync()
			}()

			store, err := settings.Open(cfg.Settings.Driver, cfg.Settings.Path)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Save(cmd.Context(), settings.Settings{TranslationEnabled: settings.Bool(enabled)}); err != nil {
				return fmt.Errorf("保存设置失败: %w", err)
			}
			log.Debug("settings saved",
				zap.String("driver", cfg.Settings.Driver),
				zap.Bool("enabled", enabled))

			if opts.server != "" {
				resp, err := sendToggle(cmd.Context(), opts.server, enabled)
				if err != nil {
					return fmt.Errorf("通知页面失败: %w", err)
				}
				if !resp.Success {
					return errors.New("页面未确认开关命令")
				}
			}
			printState(cmd.OutOrStdout(), enabled, true)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.server, "server", "", "正在运行的 overlay serve 地址，例如 http://127.0.0.1:8080")
	return cmd
}

// parseSwitch 接受 on/off 以及 strconv.ParseBool 能识别的值
func parseSwitch(s string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "on", "enable", "enabled":
		return true, nil
	case "off", "disable", "disabled":
		return false, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid switch value %q: use on or off", s)
	}
	return b, nil
}

// sendToggle 向服务发送开关命令并等待应答
func sendToggle(ctx context.Context, baseURL string, enabled bool) (engine.Response, error) {
	body, err := json.Marshal(engine.Message{Action: engine.ActionToggleTranslation, Enabled: enabled})
	if err != nil {
		return engine.Response{}, err
	}

	url := strings.TrimRight(baseURL, "/") + "/api/message"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return engine.Response{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return engine.Response{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return engine.Response{}, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var out engine.Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return engine.Response{}, fmt.Errorf("invalid response: %w", err)
	}
	return out, nil
}

func printState(w io.Writer, enabled, stored bool) {
	label := color.New(color.FgCyan)
	label.Fprint(w, "translation: ")
	if enabled {
		color.New(color.FgGreen, color.Bold).Fprint(w, "on")
	} else {
		color.New(color.FgRed, color.Bold).Fprint(w, "off")
	}
	if !stored {
		fmt.Fprint(w, " (default)")
	}
	fmt.Fprintln(w)
}
