package main

import (
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/John-Robertt/VNMC/internal/domain"
)

// candidateTable 把搜索候选渲染成终端表格。
// 序号列从 1 开始，是交互选择时的输入值（与候选切片下标差 1）。
func candidateTable(candidates []domain.SearchCandidate) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"#", "id", "标题", "品牌", "发售日", "中位数", "数据量"})

	for i, c := range candidates {
		tw.AppendRow(table.Row{
			i + 1, c.Id, c.GameName, c.BrandName,
			formatDate(c.SellDay), formatIntPtr(c.Median), formatIntPtr(c.ReviewCount),
		})
	}

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 2, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
		{Number: 7, Align: text.AlignRight},
	})
	return tw.Render()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatIntPtr(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}
