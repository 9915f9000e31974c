package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/engine"
	"github.com/nerdneilsfield/go-page-overlay/internal/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	color.NoColor = true
}

// workspace 临时目录中的词典和配置文件
type workspace struct {
	dir        string
	config     string
	dictionary string
}

func newWorkspace(t *testing.T, driver string) *workspace {
	t.Helper()
	dir := t.TempDir()

	dictPath := filepath.Join(dir, "dictionary.toml")
	require.NoError(t, dictionary.Save(dictPath, dictionary.NewFile(testutils.SampleEntries())))

	cfg := fmt.Sprintf("log_level: error\nsettings:\n  driver: %s\n", driver)
	if driver != "memory" {
		cfg += fmt.Sprintf("  path: %s\n", filepath.Join(dir, "settings.store"))
	}
	cfgPath := filepath.Join(dir, "overlay.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(cfg), 0o644))

	return &workspace{dir: dir, config: cfgPath, dictionary: dictPath}
}

func (ws *workspace) path(name string) string {
	return filepath.Join(ws.dir, name)
}

// run 执行根命令，返回标准输出和标准错误
func (ws *workspace) run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := NewRootCommand("1.0.0", "abc123", "2024-01-01")
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", ws.config, "--dictionary", ws.dictionary}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestVersionCommand(t *testing.T) {
	ws := newWorkspace(t, "memory")
	out, _, err := ws.run(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "overlay 1.0.0 (commit abc123, built 2024-01-01)\n", out)
}

func TestTranslateCommand(t *testing.T) {
	ws := newWorkspace(t, "memory")
	input := ws.path("page.html")
	require.NoError(t, os.WriteFile(input, []byte(testutils.SamplePage), 0o644))

	t.Run("stdout", func(t *testing.T) {
		out, _, err := ws.run(t, "translate", input)
		require.NoError(t, err)
		assert.Contains(t, out, `<h1 title="首页">你好</h1>`)
		assert.Contains(t, out, `<input type="button" value="搜索"/>`)
		assert.Contains(t, out, `placeholder="输入你的名字" value="Submit"`)
		assert.Contains(t, out, `<title>Home</title>`, "only the body is translated")
		assert.Contains(t, out, `var label = "Submit";`)
	})

	t.Run("output file with verify", func(t *testing.T) {
		output := ws.path("out.html")
		out, errOut, err := ws.run(t, "translate", input, output, "--verify")
		require.NoError(t, err)
		assert.Empty(t, out)
		assert.Contains(t, errOut, "round trip verified")

		content, err := os.ReadFile(output)
		require.NoError(t, err)
		assert.Contains(t, string(content), `<button>取消</button>`)
	})

	t.Run("missing input", func(t *testing.T) {
		_, _, err := ws.run(t, "translate", ws.path("absent.html"))
		assert.Error(t, err)
	})

	t.Run("missing dictionary", func(t *testing.T) {
		cmd := NewRootCommand("dev", "none", "unknown")
		cmd.SetOut(&bytes.Buffer{})
		cmd.SetArgs([]string{"--config", ws.config, "-d", ws.path("absent.toml"), "translate", input})
		assert.Error(t, cmd.Execute())
	})
}

func TestSearchCommand(t *testing.T) {
	ws := newWorkspace(t, "memory")

	out, _, err := ws.run(t, "search", "搜")
	require.NoError(t, err)
	assert.Contains(t, out, "Search")
	assert.Contains(t, out, "搜尋")
	assert.NotContains(t, out, "Cancel")

	out, _, err = ws.run(t, "search", "--fuzzy", "ent nm")
	require.NoError(t, err)
	assert.Contains(t, out, "Enter your name")

	out, _, err = ws.run(t, "search", "zzz")
	require.NoError(t, err)
	assert.Contains(t, out, "没有找到")
}

func TestRenderEntries(t *testing.T) {
	var buf bytes.Buffer
	renderEntries(&buf, []dictionary.Entry{
		{English: "Enter your name", Simplified: "输入你的名字", Traditional: "輸入你的名字"},
	}, 6)

	out := buf.String()
	assert.Contains(t, out, "English")
	assert.Contains(t, out, "Enter…")
	assert.Contains(t, out, "输入…")
	assert.NotContains(t, out, "名字")

	assert.Equal(t, "abc", truncate("abc", 0))
}

func TestSettingsCommands(t *testing.T) {
	for _, driver := range []string{"file", "sqlite"} {
		t.Run(driver, func(t *testing.T) {
			ws := newWorkspace(t, driver)

			out, _, err := ws.run(t, "settings", "get")
			require.NoError(t, err)
			assert.Equal(t, "translation: on (default)\n", out)

			out, _, err = ws.run(t, "settings", "set", "off")
			require.NoError(t, err)
			assert.Equal(t, "translation: off\n", out)

			out, _, err = ws.run(t, "settings", "get")
			require.NoError(t, err)
			assert.Equal(t, "translation: off\n", out)

			_, _, err = ws.run(t, "settings", "set", "maybe")
			assert.Error(t, err)
		})
	}
}

func TestSettingsSetNotifiesServer(t *testing.T) {
	var received engine.Message
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/message" || r.Method != http.MethodPost {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	ws := newWorkspace(t, "memory")
	out, _, err := ws.run(t, "settings", "set", "on", "--server", srv.URL+"/")
	require.NoError(t, err)
	assert.Equal(t, "translation: on\n", out)
	assert.Equal(t, engine.Message{Action: engine.ActionToggleTranslation, Enabled: true}, received)

	t.Run("server rejects", func(t *testing.T) {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "unavailable", http.StatusServiceUnavailable)
		}))
		defer bad.Close()

		_, _, err := ws.run(t, "settings", "set", "off", "--server", bad.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "503")
	})
}

func TestParseSwitch(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"on", true},
		{" Enabled ", true},
		{"true", true},
		{"1", true},
		{"off", false},
		{"disable", false},
		{"false", false},
	}
	for _, tt := range tests {
		got, err := parseSwitch(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}

	_, err := parseSwitch("sometimes")
	assert.Error(t, err)
}

func TestImportCommand(t *testing.T) {
	page := `<table>
<tr><td>简体</td><td>繁體</td><td>English</td></tr>
<tr><td>保存</td><td>保存</td><td>Save</td></tr>
<tr><td>取消</td><td>取消</td><td>Cancel</td></tr>
</table>`
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	ws := newWorkspace(t, "memory")

	t.Run("fresh file", func(t *testing.T) {
		output := ws.path("scraped.yaml")
		out, _, err := ws.run(t, "import", srv.URL, "-o", output, "--delay", "0s")
		require.NoError(t, err)
		assert.Contains(t, out, "2 entries written")

		dict, err := dictionary.Load(output)
		require.NoError(t, err)
		assert.Equal(t, "保存", dict.Lookup("Save"))
	})

	t.Run("merge keeps existing entries", func(t *testing.T) {
		output := ws.path("merged.toml")
		require.NoError(t, dictionary.Save(output, dictionary.NewFile(testutils.SampleEntries())))

		out, _, err := ws.run(t, "import", srv.URL, "-o", output, "--merge", "--delay", "0s")
		require.NoError(t, err)
		assert.True(t, strings.Contains(out, fmt.Sprintf("%d entries written", len(testutils.SampleEntries())+1)), out)

		dict, err := dictionary.Load(output)
		require.NoError(t, err)
		assert.Equal(t, "提交", dict.Lookup("Submit"))
		assert.Equal(t, "保存", dict.Lookup("Save"))
	})
}
