// Package imgx 负责图片字节的获取与校验。
//
// 上游站点（DMM/VNDB/Getchu）对不存在的图片经常返回 200 + HTML 错误页，
// 因此只有 Content-Type 以 image/ 开头的响应才算有效图片。
package imgx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// Download 抓取一张图片并返回原始字节。
//
// 约束：
// - 非 2xx ⇒ 错误
// - Content-Type 不以 image/ 开头 ⇒ 错误（禁止把 HTML 当图片落盘）
// - 空响应体 ⇒ 错误
func Download(ctx context.Context, c *http.Client, url string) ([]byte, error) {
	if c == nil {
		return nil, errors.New("http client 不能为空")
	}
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("图片 URL 不能为空")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("图片请求返回 HTTP %d", resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if !strings.HasPrefix(strings.TrimSpace(ct), "image/") {
		return nil, fmt.Errorf("响应不是图片（Content-Type=%q）", ct)
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(b) == 0 {
		return nil, errors.New("图片响应体为空")
	}
	return b, nil
}
