// Package resolve 把“关键字 → 候选列表 → 选中 → 完整记录”的两种选择方式
// 收拢到一处：批量场景用精确匹配，交互场景由宿主回调驱动。
package resolve

import (
	"context"
	"strings"

	"github.com/John-Robertt/VNMC/internal/domain"
)

// Service 是 resolver 对聚合层的最小依赖（aggregate.Aggregator 满足该接口）。
type Service interface {
	Search(ctx context.Context, keyword string) ([]domain.SearchCandidate, error)
	Resolve(ctx context.Context, gameID int) (*domain.GameRecord, error)
}

// SearchFn 是交给 Picker 的“按关键字重新搜索”函数（每次输入变化可重复调用）。
type SearchFn func(keyword string) ([]domain.SearchCandidate, error)

// Picker 由宿主实现：用 search 取候选并让人选择，返回最后一次搜索结果中的下标。
// idx < 0 表示放弃选择。
type Picker func(search SearchFn, initial string) (idx int, err error)

// Automatic 用于批量/非交互场景：只接受 GameName 与给定名字逐字相等的候选。
//
// 刻意不做规范化：自动模式下宁可不匹配，也不能把“Special Edition”当成原作。
// 没有精确匹配时返回 (nil, nil)，记录保持未解析状态。
func Automatic(ctx context.Context, svc Service, name string) (*domain.GameRecord, error) {
	candidates, err := svc.Search(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, c := range candidates {
		if c.GameName == name {
			return svc.Resolve(ctx, c.Id)
		}
	}
	return nil, nil
}

// Interactive 用于交互场景：把搜索函数交给 pick 回调（宿主每次输入变化
// 都可重新搜索），回调返回的下标按“最后一次搜索结果”的位置映射回候选，
// 然后才按 id 拉取完整记录。
//
// pick 放弃（idx<0）或下标越界时返回 (nil, nil)。
func Interactive(ctx context.Context, svc Service, initial string, pick Picker) (*domain.GameRecord, error) {
	var last []domain.SearchCandidate
	search := func(keyword string) ([]domain.SearchCandidate, error) {
		if strings.TrimSpace(keyword) == "" {
			last = nil
			return nil, nil
		}
		res, err := svc.Search(ctx, keyword)
		if err != nil {
			return nil, err
		}
		last = res
		return res, nil
	}

	idx, err := pick(search, initial)
	if err != nil {
		return nil, err
	}
	if idx < 0 || idx >= len(last) {
		return nil, nil
	}
	return svc.Resolve(ctx, last[idx].Id)
}
