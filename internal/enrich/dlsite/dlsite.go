// Package dlsite 从 DLsite 的商品 JSON 接口补全简介与题材标签。
package dlsite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// DefaultBaseURL 是 DLsite 站点根地址（测试时可替换）。
const DefaultBaseURL = "https://www.dlsite.com"

// Fragment 是 DLsite 能够提供的那部分元数据（局部视图，用完即弃）。
type Fragment struct {
	Description string
	Genres      []string
}

// Enricher 按 workno 拉取商品 JSON 并提取字段。
//
// 约束：
// - 任何 HTTP/解析失败都不致命：记日志、返回空 fragment，绝不向上抛错
// - 字段提取按“逐个字段尽力找”处理，未知/缺失的键一律视为无数据
type Enricher struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// New 构造 DLsite enricher。
func New(baseURL string, client *http.Client, logger *zap.Logger) *Enricher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Logger: logger}
}

// Fetch 拉取一个商品的 JSON 文档并提取 intro_s（短简介）与 genres[].name。
//
// workno 为空 ⇒ 直接返回空 Fragment（没有 DLsite id 的作品是常态）。
// siteDomain 是 DLsite 的站内分区（pro/soft/...），缺省 pro。
func (e *Enricher) Fetch(ctx context.Context, workno, siteDomain string) Fragment {
	var frag Fragment
	if strings.TrimSpace(workno) == "" {
		return frag
	}
	if siteDomain == "" {
		siteDomain = "pro"
	}

	apiURL := fmt.Sprintf("%s/%s/api/=/product.json?workno=%s",
		e.BaseURL, url.PathEscape(siteDomain), url.QueryEscape(workno))
	e.Logger.Debug("请求 DLsite 商品接口", zap.String("url", apiURL))

	body, err := e.get(ctx, apiURL)
	if err != nil {
		if ctx.Err() == nil {
			e.Logger.Warn("DLsite 请求失败", zap.String("workno", workno), zap.Error(err))
		}
		return frag
	}

	// product.json 有时返回对象、有时返回单元素数组；两种形态都尽力找。
	frag.Description = firstString(body, "intro_s", "0.intro_s")
	for _, g := range firstArray(body, "genres", "0.genres") {
		if name := strings.TrimSpace(g.Get("name").String()); name != "" {
			frag.Genres = append(frag.Genres, name)
		}
	}
	return frag
}

func (e *Enricher) get(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("响应体为空")
	}
	return b, nil
}

// firstString 依次尝试多个路径，返回第一个非空字符串。
// gjson 自带 \uXXXX 与 \/ 的反转义，无需手工处理。
func firstString(json []byte, paths ...string) string {
	for _, p := range paths {
		if v := gjson.GetBytes(json, p); v.Type == gjson.String {
			if s := strings.TrimSpace(v.String()); s != "" {
				return s
			}
		}
	}
	return ""
}

// firstArray 依次尝试多个路径，返回第一个非空数组。
func firstArray(json []byte, paths ...string) []gjson.Result {
	for _, p := range paths {
		if v := gjson.GetBytes(json, p); v.IsArray() {
			if arr := v.Array(); len(arr) > 0 {
				return arr
			}
		}
	}
	return nil
}
