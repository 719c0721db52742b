package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, "vnmc.json"), []byte(content), 0o644); err != nil {
		t.Fatalf("写入配置失败：%v", err)
	}
}

func TestLoadEffective_NoFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()

	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("无配置文件不应报错：%v", err)
	}
	if eff.RateLimit != DefaultRateLimit {
		t.Fatalf("RateLimit=%v，期望默认 %v", eff.RateLimit, DefaultRateLimit)
	}
	if eff.ProxyURL != "" || eff.ImageProxy {
		t.Fatalf("默认配置错误：%+v", eff)
	}
	if eff.ErogameScapeEndpoint != "" || eff.VndbEndpoint != "" {
		t.Fatalf("端点默认应为空（使用内置地址）：%+v", eff)
	}
}

func TestLoadEffective_FileValues(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{
  "proxy": {"url": "http://127.0.0.1:8080"},
  "image_proxy": true,
  "rate_limit_ms": 1000,
  "endpoints": {"erogamescape": "http://localhost:9000/sql", "vndb": "http://localhost:9001/vn"}
}`)

	eff, err := LoadEffective(dir, CLIArgs{})
	if err != nil {
		t.Fatalf("LoadEffective 失败：%v", err)
	}
	if eff.ProxyURL != "http://127.0.0.1:8080" || !eff.ImageProxy {
		t.Fatalf("代理配置错误：%+v", eff)
	}
	if eff.RateLimit != time.Second {
		t.Fatalf("RateLimit=%v", eff.RateLimit)
	}
	if eff.ErogameScapeEndpoint != "http://localhost:9000/sql" || eff.VndbEndpoint != "http://localhost:9001/vn" {
		t.Fatalf("端点覆盖错误：%+v", eff)
	}
	if eff.DlsiteBaseURL != "" || eff.GetchuBaseURL != "" {
		t.Fatalf("未配置的端点应为空：%+v", eff)
	}
}

func TestLoadEffective_CLIOverridesFile(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{"proxy": {"url": "http://file-proxy:8080"}, "image_proxy": true}`)

	eff, err := LoadEffective(dir, CLIArgs{
		Proxy: "", ProxySet: true, // 显式清空必须能覆盖 config
		ImageProxy: false, ImageProxySet: true,
	})
	if err != nil {
		t.Fatalf("LoadEffective 失败：%v", err)
	}
	if eff.ProxyURL != "" {
		t.Fatalf("CLI 显式清空未生效：%q", eff.ProxyURL)
	}
	if eff.ImageProxy {
		t.Fatalf("CLI image_proxy 覆盖未生效")
	}
}

func TestLoadEffective_InvalidJSON(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{not-json`)

	_, err := LoadEffective(dir, CLIArgs{})
	if err == nil {
		t.Fatalf("畸形 JSON 应报错")
	}
	if Code(err) != ErrCodeInvalid {
		t.Fatalf("error_code=%q，期望 %q", Code(err), ErrCodeInvalid)
	}
}
