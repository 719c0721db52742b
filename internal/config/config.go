package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// ErrCodeInvalid 表示配置文件无法读取/解析，或字段不合法。
	ErrCodeInvalid = "config_invalid"
)

const (
	// DefaultRateLimit 是批评空间查询的最小请求间隔（礼貌限速）。
	DefaultRateLimit = 2500 * time.Millisecond
)

// CLIArgs 只包含 CLI 暴露的覆盖项，并保留“是否显式指定”的信息。
// 这能保证覆盖优先级可实现：例如 --proxy "" 必须能清空 config.proxy.url。
type CLIArgs struct {
	Proxy    string
	ProxySet bool

	ImageProxy    bool
	ImageProxySet bool
}

// FileConfig 对应 vnmc.json 的解析结构。文件整体可选：零值即默认行为。
type FileConfig struct {
	Proxy       *ProxyConfig     `json:"proxy"`
	ImageProxy  bool             `json:"image_proxy"`
	RateLimitMs int              `json:"rate_limit_ms"`
	Endpoints   *EndpointsConfig `json:"endpoints"`
}

type ProxyConfig struct {
	URL string `json:"url"`
}

// EndpointsConfig 允许覆盖各上游地址（镜像域名/测试桩）。
type EndpointsConfig struct {
	ErogameScape string `json:"erogamescape"`
	Dlsite       string `json:"dlsite"`
	Getchu       string `json:"getchu"`
	Vndb         string `json:"vndb"`
}

// EffectiveConfig 是合并并做最小规范化后的最终配置
//（实现层直接消费，不再做二次默认/优先级判断）。
type EffectiveConfig struct {
	ProxyURL   string
	ImageProxy bool

	RateLimit time.Duration

	// 各端点为空表示使用内置默认地址。
	ErogameScapeEndpoint string
	DlsiteBaseURL        string
	GetchuBaseURL        string
	VndbEndpoint         string
}

// Error 是配置阶段的结构化错误（带 error_code）。
type Error struct {
	Code string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s：配置文件 %q 无效：%v", e.Code, e.Path, e.Err)
	}
	return fmt.Sprintf("%s：配置文件 %q 无效", e.Code, e.Path)
}

func (e *Error) Unwrap() error { return e.Err }

// Code 从 error 中提取 error_code；若不是 *Error 则返回空串。
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// LoadEffective 读取 <cwd>/vnmc.json（可选）并与 CLI 参数合并为最终配置。
//
// 覆盖优先级（固定）：CLI > config > 内置默认。
func LoadEffective(cwd string, cli CLIArgs) (EffectiveConfig, error) {
	cfgPath := filepath.Join(cwd, "vnmc.json")

	fc, _, err := readFileConfig(cfgPath)
	if err != nil {
		return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: err}
	}

	proxyURL := ""
	if fc.Proxy != nil {
		proxyURL = strings.TrimSpace(fc.Proxy.URL)
	}
	if cli.ProxySet {
		proxyURL = strings.TrimSpace(cli.Proxy)
	}
	if proxyURL != "" {
		if _, err := url.Parse(proxyURL); err != nil {
			return EffectiveConfig{}, &Error{Code: ErrCodeInvalid, Path: cfgPath, Err: fmt.Errorf("proxy.url 无效：%w", err)}
		}
	}

	imageProxy := fc.ImageProxy
	if cli.ImageProxySet {
		imageProxy = cli.ImageProxy
	}

	rateLimit := DefaultRateLimit
	if fc.RateLimitMs > 0 {
		rateLimit = time.Duration(fc.RateLimitMs) * time.Millisecond
	}

	eff := EffectiveConfig{
		ProxyURL:   proxyURL,
		ImageProxy: imageProxy,
		RateLimit:  rateLimit,
	}
	if fc.Endpoints != nil {
		eff.ErogameScapeEndpoint = strings.TrimSpace(fc.Endpoints.ErogameScape)
		eff.DlsiteBaseURL = strings.TrimSpace(fc.Endpoints.Dlsite)
		eff.GetchuBaseURL = strings.TrimSpace(fc.Endpoints.Getchu)
		eff.VndbEndpoint = strings.TrimSpace(fc.Endpoints.Vndb)
	}
	return eff, nil
}

func readFileConfig(path string) (FileConfig, bool, error) {
	var fc FileConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			// 文件不存在不是错误：全部走默认值。
			return fc, false, nil
		}
		return fc, false, err
	}
	if err := json.Unmarshal(b, &fc); err != nil {
		return fc, true, err
	}
	return fc, true, nil
}
