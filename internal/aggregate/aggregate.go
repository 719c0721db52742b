// Package aggregate 把批评空间的核心记录与三个外部来源的 fragment
// 合并为一条 GameRecord。
//
// 合并是确定性的：字段按固定优先级取第一个非空来源，绝不拼接两来源的内容；
// 两个并发 fetch 的到达顺序不影响结果（合并前必须全部 join）。
package aggregate

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/John-Robertt/VNMC/internal/domain"
	"github.com/John-Robertt/VNMC/internal/enrich/dlsite"
	"github.com/John-Robertt/VNMC/internal/enrich/getchu"
	"github.com/John-Robertt/VNMC/internal/enrich/vndb"
	"github.com/John-Robertt/VNMC/internal/gateway"
)

// tbaYearThreshold：批评空间用远未来年份占位“发售日未定”，按未发售处理。
const tbaYearThreshold = 2030

// tagGroups 是 POV 标签的采信分组（其余分组噪音过大，不进标签）。
var tagGroups = map[string]struct{}{
	"ジャンル": {},
	"背景":   {},
	"傾向":   {},
}

// tagSuffixes 是标签文本的泛化后缀（「SF仕立てのゲーム」→「SF」、「夏ゲー」→「夏」）。
// 顺序即匹配优先级。
var tagSuffixes = []string{
	"仕立てのゲーム", "のゲーム", "ゲーム", "ゲー",
	"なゲーム", "な作品", "系のゲーム", "系ゲーム",
}

// Aggregator 编排一次完整的元数据解析。
type Aggregator struct {
	GW     *gateway.Gateway
	Dlsite *dlsite.Enricher
	Getchu *getchu.Enricher
	Vndb   *vndb.Enricher
	Logger *zap.Logger
}

// New 构造 Aggregator。
func New(gw *gateway.Gateway, dl *dlsite.Enricher, gc *getchu.Enricher, vn *vndb.Enricher, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Aggregator{GW: gw, Dlsite: dl, Getchu: gc, Vndb: vn, Logger: logger}
}

// Search 按关键字检索批评空间，返回按数据量降序的候选列表（最多 30 条）。
func (a *Aggregator) Search(ctx context.Context, keyword string) ([]domain.SearchCandidate, error) {
	kw := gateway.EscapeLike(keyword)
	sql := "SELECT g.id, g.gamename, g.furigana, g.sellday, g.median, g.count2, " +
		"b.brandname " +
		"FROM gamelist g LEFT JOIN brandlist b ON g.brandname = b.id " +
		"WHERE g.gamename LIKE '%" + kw + "%' ESCAPE '!' " +
		"ORDER BY g.count2 DESC LIMIT 30"

	rows, err := a.GW.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}

	out := make([]domain.SearchCandidate, 0, len(rows))
	for _, row := range rows {
		id, err := strconv.Atoi(row["id"])
		if err != nil {
			// id 都解不出来的行不可信，跳过。
			continue
		}
		out = append(out, domain.SearchCandidate{
			Id:          id,
			GameName:    row["gamename"],
			Furigana:    row["furigana"],
			BrandName:   row["brandname"],
			SellDay:     parseDate(row["sellday"]),
			Median:      parseIntPtr(row["median"]),
			ReviewCount: parseIntPtr(row["count2"]),
		})
	}
	return out, nil
}

// Resolve 按批评空间 id 解析完整记录。
//
// 流程：核心查询 → 标签/系列/特征补全（同一网关）→ DLsite 与 VNDB 并发
// → 简介回退链（DLsite → Getchu → shoukai → VNDB）→ 合并。
// 查无此 id 时返回 (nil, nil)；核心查询失败才返回错误，enricher 失败只会让字段变少。
func (a *Aggregator) Resolve(ctx context.Context, gameID int) (*domain.GameRecord, error) {
	sql := fmt.Sprintf("SELECT g.id, g.gamename, g.furigana, g.sellday, g.median, g.average2, g.count2, "+
		"g.dmm, g.dmm_subsc, g.genre, g.shoukai, g.dlsite_id, g.dlsite_domain, "+
		"g.erogame, b.brandname, b.url "+
		"FROM gamelist g LEFT JOIN brandlist b ON g.brandname = b.id "+
		"WHERE g.id = %d", gameID)

	rows, err := a.GW.Execute(ctx, sql)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}

	row := rows[0]
	rec := &domain.GameRecord{
		Id:            gameID,
		GameName:      row["gamename"],
		Furigana:      row["furigana"],
		BrandName:     row["brandname"],
		BrandURL:      row["url"],
		SellDay:       parseDate(row["sellday"]),
		Median:        parseIntPtr(row["median"]),
		Average:       parseIntPtr(row["average2"]),
		ReviewCount:   parseIntPtr(row["count2"]),
		DmmID:         row["dmm"],
		DmmSubsc:      row["dmm_subsc"],
		OfficialGenre: row["genre"],
		Shoukai:       row["shoukai"],
		DlsiteID:      row["dlsite_id"],
		DlsiteDomain:  row["dlsite_domain"],
		IsEroge:       row["erogame"] == "t",
	}

	a.enrichTagsSeriesFeatures(ctx, rec, gameID)
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// DLsite 与 VNDB 是相互独立的服务，显式并发；合并必须等两者都结束。
	var (
		dFrag dlsite.Fragment
		vRes  vndb.Result
	)
	eg, ectx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		dFrag = a.Dlsite.Fetch(ectx, rec.DlsiteID, rec.DlsiteDomain)
		return nil
	})
	eg.Go(func() error {
		vRes = a.Vndb.Fetch(ectx, rec.GameName)
		return nil
	})
	_ = eg.Wait() // enricher 不返回错误，这里只是 join
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	rec.BackgroundImageURLs = vRes.ScreenshotURLs
	rec.VndbCoverURL = vRes.CoverURL
	rec.VndbCoverIsPortrait = vRes.CoverIsPortrait

	// 简介回退链：DLsite → Getchu（日文）→ 批评空间 shoukai（仅当是正文而非 URL）→ VNDB（英文）。
	// 固定优先级取第一个非空值，不合并片段。
	rec.Description = dFrag.Description
	if rec.Description == "" {
		rec.Description = a.Getchu.FetchDescription(ctx, rec.GameName)
	}
	if rec.Description == "" {
		if rec.Shoukai != "" && !strings.HasPrefix(rec.Shoukai, "http") {
			rec.Description = rec.Shoukai
		} else {
			rec.Description = vRes.Description
		}
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	// 题材：DLsite 列表优先；取不到时用批评空间的官方分类兜底（单元素）。
	rec.Genres = dFrag.Genres
	if len(rec.Genres) == 0 && rec.OfficialGenre != "" {
		rec.Genres = []string{rec.OfficialGenre}
	}

	return rec, nil
}

// enrichTagsSeriesFeatures 用一条 UNION ALL 查询同时取标签/系列/特征，
// 减少限速等待次数。失败不致命：记日志后继续返回核心记录。
func (a *Aggregator) enrichTagsSeriesFeatures(ctx context.Context, rec *domain.GameRecord, gameID int) {
	sql := fmt.Sprintf("(SELECT 'tag' AS src, p.title AS val, p.system_group AS grp, pt.count AS cnt "+
		"FROM povgroups_toukei pt JOIN povlist p ON pt.pov = p.id "+
		"WHERE pt.game = %d ORDER BY pt.count DESC) "+
		"UNION ALL "+
		"(SELECT 'series', g.name, '', 0 "+
		"FROM belong_to_gamegroup_list b JOIN gamegrouplist g ON b.gamegroup = g.id "+
		"WHERE b.game = %d LIMIT 1) "+
		"UNION ALL "+
		"(SELECT 'feature', al.title, '', 0 "+
		"FROM attributegroupsboolean ab JOIN attributelist al ON ab.attribute = al.id "+
		"WHERE ab.game = %d AND ab.boolean = true)", gameID, gameID, gameID)

	rows, err := a.GW.Execute(ctx, sql)
	if err != nil {
		if ctx.Err() == nil {
			a.Logger.Warn("标签/系列/特征查询失败", zap.Int("game", gameID), zap.Error(err))
		}
		return
	}

	for _, row := range rows {
		val := row["val"]
		switch row["src"] {
		case "tag":
			if _, ok := tagGroups[row["grp"]]; !ok {
				continue
			}
			cnt, _ := strconv.Atoi(row["cnt"])
			if cnt < 2 {
				// 单人投票的 POV 不具代表性。
				continue
			}
			if tag := simplifyTag(val); tag != "" {
				rec.Tags = append(rec.Tags, tag)
			}
		case "series":
			if rec.SeriesName == "" {
				rec.SeriesName = val
			}
		case "feature":
			if val != "" {
				rec.Features = append(rec.Features, val)
			}
		}
	}
}

// simplifyTag 去掉标签的泛化后缀；剥完必须留下非空词干，否则原样保留。
func simplifyTag(title string) string {
	for _, s := range tagSuffixes {
		if strings.HasSuffix(title, s) && len(title) > len(s) {
			return title[:len(title)-len(s)]
		}
	}
	return title
}

func parseDate(v string) *time.Time {
	if v == "" {
		return nil
	}
	t, err := time.Parse("2006-01-02", v)
	if err != nil {
		return nil
	}
	if t.Year() >= tbaYearThreshold {
		return nil
	}
	return &t
}

func parseIntPtr(v string) *int {
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return nil
	}
	return &n
}
