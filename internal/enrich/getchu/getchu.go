// Package getchu 从 Getchu 检索作品并抓取“ストーリー/商品紹介”段落作为简介。
//
// Getchu 是旧式站点：响应为 EUC-JP 编码，且所有请求都要带成年确认 cookie。
package getchu

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"

	"github.com/John-Robertt/VNMC/internal/jptext"
)

// DefaultBaseURL 是 Getchu 站点根地址（测试时可替换）。
const DefaultBaseURL = "https://www.getchu.com"

// ageGateCookie 缺失时 Getchu 会把所有请求重定向到年龄确认页。
const ageGateCookie = "getchu_adalt_flag=getchu.com"

var (
	softIDRE = regexp.MustCompile(`id=(\d+)`)
	brRE     = regexp.MustCompile(`(?i)<br\s*/?>`)
	tagRE    = regexp.MustCompile(`<[^>]+>`)
)

// Enricher 负责 Getchu 的“搜索 → 逐候选取简介”两步流程。
//
// 约束：
// - 候选按文档出现顺序逐个尝试，取第一个非空简介即停（不并发试探，控制对非官方端点的请求量）
// - 任何一步失败都不致命：记日志并继续/返回空串
type Enricher struct {
	BaseURL string
	Client  *http.Client
	Logger  *zap.Logger
}

// New 构造 Getchu enricher。
func New(baseURL string, client *http.Client, logger *zap.Logger) *Enricher {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Enricher{BaseURL: strings.TrimRight(baseURL, "/"), Client: client, Logger: logger}
}

// FetchDescription 按作品名搜索 Getchu 并返回第一个候选的非空简介；找不到返回空串。
func (e *Enricher) FetchDescription(ctx context.Context, gameName string) string {
	if strings.TrimSpace(gameName) == "" {
		return ""
	}

	searchURL := e.BaseURL + "/php/nsearch.phtml?genre=pc_soft&search_type=match&search_keyword=" +
		url.QueryEscape(gameName)
	e.Logger.Debug("Getchu 搜索", zap.String("keyword", gameName))

	doc, err := e.getDoc(ctx, searchURL)
	if err != nil {
		if ctx.Err() == nil {
			e.Logger.Warn("Getchu 搜索失败", zap.String("keyword", gameName), zap.Error(err))
		}
		return ""
	}

	for _, id := range candidateIDs(doc, gameName) {
		if ctx.Err() != nil {
			return ""
		}
		desc, err := e.fetchDetail(ctx, id)
		if err != nil {
			if ctx.Err() == nil {
				e.Logger.Warn("Getchu 详情页抓取失败", zap.String("id", id), zap.Error(err))
			}
			continue
		}
		if desc != "" {
			return desc
		}
	}
	return ""
}

// candidateIDs 从搜索结果页收集标题匹配的 Getchu id（保持文档顺序，去重）。
func candidateIDs(doc *goquery.Document, gameName string) []string {
	var ids []string
	seen := make(map[string]struct{}, 4)

	doc.Find(`a.blueb[href*="soft.phtml?id="]`).Each(func(_ int, a *goquery.Selection) {
		title := strings.TrimSpace(a.Text())
		if !jptext.TitleMatches(title, gameName) {
			return
		}
		href, _ := a.Attr("href")
		m := softIDRE.FindStringSubmatch(href)
		if m == nil {
			return
		}
		if _, ok := seen[m[1]]; ok {
			return
		}
		seen[m[1]] = struct{}{}
		ids = append(ids, m[1])
	})
	return ids
}

// fetchDetail 抓取一个候选的详情页并提取简介。
// 先找「ストーリー」段（新作），找不到再退「商品紹介」段（老作）。
func (e *Enricher) fetchDetail(ctx context.Context, id string) (string, error) {
	pageURL := e.BaseURL + "/soft.phtml?id=" + url.QueryEscape(id)
	doc, err := e.getDoc(ctx, pageURL)
	if err != nil {
		return "", err
	}
	if s := extractSection(doc, "ストーリー"); s != "" {
		return s, nil
	}
	return extractSection(doc, "商品紹介"), nil
}

// extractSection 找到标题包含 sectionTitle 的 <h2 class="tabletitle …">，
// 取其后第一个 tablebody div（优先其中的 span.bootstrap）的纯文本。
func extractSection(doc *goquery.Document, sectionTitle string) string {
	var out string
	doc.Find(`h2[class*="tabletitle"]`).EachWithBreak(func(_ int, h *goquery.Selection) bool {
		if !strings.Contains(strings.TrimSpace(h.Text()), sectionTitle) {
			return true
		}
		body := h.NextAllFiltered(`div[class*="tablebody"]`).First()
		if body.Length() == 0 {
			return true
		}
		node := body.Find("span.bootstrap").First()
		if node.Length() == 0 {
			node = body
		}
		raw, err := node.Html()
		if err != nil {
			return true
		}
		if text := htmlToText(raw); text != "" {
			out = text
			return false
		}
		return true
	})
	return out
}

// htmlToText 把段落 HTML 转为纯文本：<br> → 换行，其余标签剥掉。
// goquery 的 Html() 已把实体解码推迟到文本层，这里统一由 Text 流程处理。
func htmlToText(raw string) string {
	raw = brRE.ReplaceAllString(raw, "\n")
	raw = tagRE.ReplaceAllString(raw, "")
	// 剥完标签后再过一遍 goquery 以解码 &amp; 等实体。
	d, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return strings.TrimSpace(raw)
	}
	return strings.TrimSpace(d.Text())
}

// getDoc 发出带成年确认 cookie 的 GET，并把 EUC-JP 响应解码为 UTF-8 文档。
func (e *Enricher) getDoc(ctx context.Context, u string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Cookie", ageGateCookie)

	resp, err := e.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("HTTP %d", resp.StatusCode)
	}

	decoded := transform.NewReader(resp.Body, japanese.EUCJP.NewDecoder())
	return goquery.NewDocumentFromReader(decoded)
}
