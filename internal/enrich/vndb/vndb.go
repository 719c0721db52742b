// Package vndb 通过 VNDB 的 kana API 补全简介、封面与截图。
//
// 两段式解析：
// 1) 按标题做服务端模糊搜索（最多 5 个候选），取第一个规范化后
//    title 或 alttitle 与查询完全相等的条目
// 2) 用命中的 id 拉取详情（简介 + 封面 + 截图，含内容分级分值）
//
// 内容策略：sexual 与 violence 都严格小于 1.0 的图片才可用于展示；
// 与封面同 URL 的截图从背景图列表剔除，避免重复。
package vndb

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/John-Robertt/VNMC/internal/jptext"
)

// DefaultEndpoint 是 VNDB kana API 的 vn 查询端点（测试时可替换）。
const DefaultEndpoint = "https://api.vndb.org/kana/vn"

const (
	searchFields = "title,alttitle"
	detailFields = "title,description,image.url,image.dims,image.sexual,image.violence," +
		"screenshots.url,screenshots.sexual,screenshots.violence"
	searchResults = 5
)

var bbcodeRE = regexp.MustCompile(`\[/?[a-z]+(?:=[^\]]+)?\]`)

// Result 是 VNDB 能够提供的那部分元数据（局部视图，用完即弃）。
type Result struct {
	Description     string
	CoverURL        string
	CoverIsPortrait bool
	ScreenshotURLs  []string
}

// Enricher 负责 VNDB 的两段式查询。
//
// 约束：任一阶段失败都不致命——返回此前已经拿到的部分结果。
type Enricher struct {
	Endpoint string
	Client   *http.Client
	Logger   *zap.Logger
}

// New 构造 VNDB enricher。
func New(endpoint string, client *http.Client, logger *zap.Logger) *Enricher {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{Endpoint: endpoint, Client: client, Logger: logger}
}

// query 是 kana API 的请求信封：filters/fields/results。
type query struct {
	Filters []any  `json:"filters"`
	Fields  string `json:"fields"`
	Results int    `json:"results"`
}

// Fetch 按作品名解析 VNDB 数据；标题对不上或网络失败时返回（可能为空的）部分结果。
func (e *Enricher) Fetch(ctx context.Context, gameName string) Result {
	var res Result
	if strings.TrimSpace(gameName) == "" {
		return res
	}

	vid := e.findIDByTitle(ctx, gameName)
	if vid == "" {
		return res
	}

	body, err := e.post(ctx, query{
		Filters: []any{"id", "=", vid},
		Fields:  detailFields,
		Results: 1,
	})
	if err != nil {
		if ctx.Err() == nil {
			e.Logger.Warn("VNDB 详情获取失败", zap.String("id", vid), zap.Error(err))
		}
		return res
	}

	entry := gjson.GetBytes(body, "results.0")
	if !entry.Exists() {
		return res
	}

	if desc := strings.TrimSpace(entry.Get("description").String()); desc != "" {
		// 简介带 VNDB 自己的行内标记（[i]…[/i] / [url=…]），剥掉后再用。
		res.Description = strings.TrimSpace(bbcodeRE.ReplaceAllString(desc, ""))
	}

	if img := entry.Get("image"); img.Exists() {
		if url, ok := safeImageURL(img); ok {
			res.CoverURL = url
			dims := img.Get("dims").Array()
			if len(dims) == 2 {
				res.CoverIsPortrait = dims[1].Int() > dims[0].Int()
			}
		}
	}

	entry.Get("screenshots").ForEach(func(_, shot gjson.Result) bool {
		url, ok := safeImageURL(shot)
		if !ok || url == res.CoverURL {
			return true
		}
		res.ScreenshotURLs = append(res.ScreenshotURLs, url)
		return true
	})

	e.Logger.Debug("VNDB 解析完成",
		zap.String("id", vid),
		zap.Bool("description", res.Description != ""),
		zap.Bool("cover", res.CoverURL != ""),
		zap.Int("screenshots", len(res.ScreenshotURLs)))
	return res
}

// findIDByTitle 执行搜索阶段：取第一个标题（或别名）规范化后完全相等的候选。
// 没有命中返回空串（模糊搜索命中≠同一作品，宁缺毋滥）。
func (e *Enricher) findIDByTitle(ctx context.Context, gameName string) string {
	body, err := e.post(ctx, query{
		Filters: []any{"search", "=", gameName},
		Fields:  searchFields,
		Results: searchResults,
	})
	if err != nil {
		if ctx.Err() == nil {
			e.Logger.Warn("VNDB 搜索失败", zap.String("keyword", gameName), zap.Error(err))
		}
		return ""
	}

	want := jptext.Normalize(gameName)
	var vid string
	gjson.GetBytes(body, "results").ForEach(func(_, entry gjson.Result) bool {
		title := entry.Get("title").String()
		alt := entry.Get("alttitle").String()
		if jptext.Normalize(title) == want || (alt != "" && jptext.Normalize(alt) == want) {
			vid = entry.Get("id").String()
			return false
		}
		return true
	})
	if vid == "" {
		e.Logger.Debug("VNDB 无标题一致候选", zap.String("keyword", gameName))
	}
	return vid
}

// safeImageURL 校验一张图的内容分级：两个分值都存在且严格小于 1.0 才放行。
// 分值缺失按不安全处理（不能替对方站点做无根据的判断）。
func safeImageURL(img gjson.Result) (string, bool) {
	url := img.Get("url").String()
	if url == "" {
		return "", false
	}
	sexual := img.Get("sexual")
	violence := img.Get("violence")
	if !sexual.Exists() || !violence.Exists() {
		return "", false
	}
	if sexual.Float() >= 1.0 || violence.Float() >= 1.0 {
		return "", false
	}
	return url, true
}

func (e *Enricher) post(ctx context.Context, q query) ([]byte, error) {
	payload, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
