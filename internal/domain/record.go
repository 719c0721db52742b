package domain

import (
	"fmt"
	"time"
)

const (
	gamePageURLTemplate = "https://erogamescape.dyndns.org/~ap2/ero/toukei_kaiseki/game.php?game=%d"
	dmmCoverURLTemplate = "https://pics.dmm.co.jp/digital/pcgame/%s/%spl.jpg"
	dlsiteURLTemplate   = "https://www.dlsite.com/%s/work/=/product_id/%s.html"
	dmmStoreURLTemplate = "https://dlsoft.dmm.co.jp/detail/%s/"
)

// GameRecord 是一次解析请求的最终聚合结果。
//
// 约束：
// - Id 来自批评空间，是唯一权威主键
// - 每个可选字段要么来自 merge 策略选定的单一来源，要么为空；不允许两来源拼接
// - 构建完成交给调用方之后不再修改
type GameRecord struct {
	Id       int
	GameName string
	Furigana string

	BrandName string
	BrandURL  string

	// SellDay 为 nil 表示未发售/未公布（占位年份按 TBA 处理）。
	SellDay     *time.Time
	Median      *int
	Average     *int
	ReviewCount *int

	DmmID        string
	DmmSubsc     string
	DlsiteID     string
	DlsiteDomain string

	// OfficialGenre 是批评空间自己的单一分类；Shoukai 可能是纯文本简介，也可能只是一个 URL。
	OfficialGenre string
	Shoukai       string

	Description string
	IsEroge     bool
	SeriesName  string

	Tags     []string
	Genres   []string
	Features []string

	BackgroundImageURLs []string
	VndbCoverURL        string
	VndbCoverIsPortrait bool
}

// CoverImageURL 按固定优先级挑选封面（派生值，不存储）：
// 1) VNDB 纵向封面；2) DMM 包装图（URL 可确定性拼出）；3) VNDB 封面（哪怕横向）；4) 无。
func (g *GameRecord) CoverImageURL() string {
	if g.VndbCoverURL != "" && g.VndbCoverIsPortrait {
		return g.VndbCoverURL
	}
	if u := g.dmmCoverURL(); u != "" {
		return u
	}
	return g.VndbCoverURL
}

func (g *GameRecord) dmmCoverURL() string {
	dmm := g.DmmSubsc
	if dmm == "" {
		dmm = g.DmmID
	}
	if dmm == "" {
		return ""
	}
	return fmt.Sprintf(dmmCoverURLTemplate, dmm, dmm)
}

// PageURL 返回批评空间的作品页（来源回溯链接）。
func (g *GameRecord) PageURL() string {
	return fmt.Sprintf(gamePageURLTemplate, g.Id)
}

// DlsiteURL 返回 DLsite 作品页；无 DLsite id 时为空。
func (g *GameRecord) DlsiteURL() string {
	if g.DlsiteID == "" {
		return ""
	}
	d := g.DlsiteDomain
	if d == "" {
		d = "pro"
	}
	return fmt.Sprintf(dlsiteURLTemplate, d, g.DlsiteID)
}

// DmmURL 返回 DMM 作品页；无 DMM id 时为空。
func (g *GameRecord) DmmURL() string {
	if g.DmmID == "" {
		return ""
	}
	return fmt.Sprintf(dmmStoreURLTemplate, g.DmmID)
}

// SearchCandidate 是搜索阶段的轻量投影，只用于人工/自动消歧，不落盘。
type SearchCandidate struct {
	Id          int
	GameName    string
	Furigana    string
	BrandName   string
	SellDay     *time.Time
	Median      *int
	ReviewCount *int
}
