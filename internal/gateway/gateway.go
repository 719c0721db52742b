// Package gateway 封装批评空间的 SQL-over-HTTP 查询入口。
//
// 该入口是对方好意开放的统计页面，不是正式 API：
// - 全进程共享 2.5s 最小请求间隔（礼貌限速属于远端服务，不属于某个调用方）
// - 响应是 HTML 文档，第一张表的首行是列名，其余行是记录
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DefaultEndpoint 是批评空间的 SQL 查询表单地址。
const DefaultEndpoint = "https://erogamescape.dyndns.org/~ap2/ero/toukei_kaiseki/sql_for_erogamer_form.php"

// DefaultMinInterval 是相邻两次请求的最小间隔（礼貌限速）。
const DefaultMinInterval = 2500 * time.Millisecond

// Row 是一条查询结果：列名 → 单元格文本。
type Row map[string]string

// NewLimiter 构造进程级共享的限速器。
//
// burst=1：第一次请求立刻放行，之后每 minInterval 放行一次。
// Wait 内部只在“预约下一时刻”时持锁，睡眠在锁外进行且可被 ctx 取消，
// 因此互不相关的解析请求可以并行推进，同时仍然满足全局间隔。
func NewLimiter(minInterval time.Duration) *rate.Limiter {
	if minInterval <= 0 {
		minInterval = DefaultMinInterval
	}
	return rate.NewLimiter(rate.Every(minInterval), 1)
}

// Gateway 对批评空间发起 SQL 查询并把 HTML 表格还原为行映射。
type Gateway struct {
	endpoint string
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
}

// New 构造 Gateway。limiter 必须是所有 Gateway 使用方共享的那一个实例。
func New(endpoint string, client *http.Client, limiter *rate.Limiter, logger *zap.Logger) *Gateway {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gateway{endpoint: endpoint, client: client, limiter: limiter, logger: logger}
}

// Execute 执行一条 SQL 并返回全部结果行。
//
// 约束：
// - 先过限速器（可取消），再发一次 form POST；不重试
// - 响应中找不到表格 ⇒ 返回空切片（查询无结果是常态，不是错误）
// - 非 2xx ⇒ 返回错误，由调用方决定降级
func (g *Gateway) Execute(ctx context.Context, sql string) ([]Row, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		// 取消/超时从限速等待中解除，原样上抛，不当错误记日志。
		return nil, err
	}

	g.logger.Debug("执行批评空间 SQL", zap.String("sql", sql))

	form := url.Values{"sql": {sql}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("批评空间返回 HTTP %d", resp.StatusCode)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return parseTable(b), nil
}

// parseTable 解析响应中的第一张 <table>：首行列名，其余行记录。
// 单元格数量少于列名时忽略缺失的列；没有表格返回空切片。
func parseTable(html []byte) []Row {
	rows := make([]Row, 0, 16)

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(html)))
	if err != nil {
		return rows
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return rows
	}

	trs := table.Find("tr")
	if trs.Length() == 0 {
		return rows
	}

	var headers []string
	trs.First().Find("th, td").Each(func(_ int, s *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(s.Text()))
	})
	if len(headers) == 0 {
		return rows
	}

	trs.Slice(1, trs.Length()).Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make(Row, len(headers))
		cells.Each(func(i int, td *goquery.Selection) {
			if i < len(headers) {
				row[headers[i]] = strings.TrimSpace(td.Text())
			}
		})
		rows = append(rows, row)
	})
	return rows
}

// EscapeLike 转义 LIKE 模式里的用户输入（转义符固定为 '!'）。
// 单引号按 SQL 规则双写；'!'、'%'、'_' 前加转义符。
func EscapeLike(s string) string {
	r := strings.NewReplacer(
		"'", "''",
		"!", "!!",
		"%", "!%",
		"_", "!_",
	)
	return r.Replace(s)
}
