// Package testutils 测试共用的配置、词典和页面辅助函数
package testutils

import (
	"context"
	"testing"
	"time"

	"github.com/nerdneilsfield/go-page-overlay/internal/config"
	"github.com/nerdneilsfield/go-page-overlay/internal/dictionary"
	"github.com/nerdneilsfield/go-page-overlay/internal/dom"
	"github.com/stretchr/testify/require"
)

// CreateTestConfig 创建测试配置：内存设置存储，词典路径由调用方指定
func CreateTestConfig(dictionaryPath string) *config.Config {
	cfg := config.NewDefaultConfig()
	cfg.DictionaryPath = dictionaryPath
	cfg.Settings.Driver = "memory"
	cfg.Settings.Path = ""
	cfg.Server.Addr = "127.0.0.1:0"
	cfg.LogLevel = "error"
	return cfg
}

// SampleEntries 测试词条
func SampleEntries() []dictionary.Entry {
	return []dictionary.Entry{
		{English: "Submit", Simplified: "提交", Traditional: "提交"},
		{English: "Search", Simplified: "搜索", Traditional: "搜尋"},
		{English: "Cancel", Simplified: "取消", Traditional: "取消"},
		{English: "Hello", Simplified: "你好", Traditional: "你好"},
		{English: "Logo", Simplified: "标志", Traditional: "標誌"},
		{English: "Enter your name", Simplified: "输入你的名字", Traditional: "輸入你的名字"},
		{English: "Home", Simplified: "首页", Traditional: "首頁"},
	}
}

// SampleDictionary 由 SampleEntries 构建的词典
func SampleDictionary() *dictionary.Dictionary {
	return dictionary.New(SampleEntries())
}

// SamplePage 含文本、按钮、输入框、图片和脚本的页面
const SamplePage = `<!DOCTYPE html>
<html><head><title>Home</title><script>var label = "Submit";</script></head>
<body>
<h1 title="Home">Hello</h1>
<p> Submit </p>
<input type="button" value="Search">
<input type="text" placeholder="Enter your name" value="Submit">
<img src="logo.png" alt="Logo">
<button>Cancel</button>
<style>.Submit { color: red; }</style>
<p>Untranslated text</p>
</body></html>`

// StartLoop 在后台运行事件循环，测试结束时停止
func StartLoop(t testing.TB, loop *dom.EventLoop) context.Context {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return ctx
}

// WaitClosed 等待通道关闭，超时则测试失败
func WaitClosed(t testing.TB, ch <-chan struct{}) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "timed out waiting for channel to close")
	}
}
