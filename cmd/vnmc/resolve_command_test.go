package main

import (
	"strings"
	"testing"

	"github.com/John-Robertt/VNMC/internal/domain"
	"github.com/John-Robertt/VNMC/internal/resolve"
)

func fakeSearch(t *testing.T, byKeyword map[string][]domain.SearchCandidate, calls *[]string) resolve.SearchFn {
	t.Helper()
	return func(keyword string) ([]domain.SearchCandidate, error) {
		*calls = append(*calls, keyword)
		return byKeyword[keyword], nil
	}
}

func TestStdinPicker_PickByNumber(t *testing.T) {
	var calls []string
	search := fakeSearch(t, map[string][]domain.SearchCandidate{
		"アマカノ": {{Id: 10, GameName: "アマカノ"}, {Id: 11, GameName: "アマカノ2"}},
	}, &calls)

	var out strings.Builder
	pick := stdinPicker(strings.NewReader("2\n"), &out)

	idx, err := pick(search, "アマカノ")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if idx != 1 {
		t.Fatalf("idx=%d，期望 1（序号从 1 开始）", idx)
	}
	if !strings.Contains(out.String(), "アマカノ2") {
		t.Fatalf("输出里应有候选表格：%q", out.String())
	}
}

func TestStdinPicker_ReSearchThenPick(t *testing.T) {
	var calls []string
	search := fakeSearch(t, map[string][]domain.SearchCandidate{
		"ama":  {{Id: 1, GameName: "アマカノ"}},
		"カフェ": {{Id: 2, GameName: "喫茶ステラ"}},
	}, &calls)

	var out strings.Builder
	pick := stdinPicker(strings.NewReader("カフェ\n1\n"), &out)

	idx, err := pick(search, "ama")
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	if idx != 0 {
		t.Fatalf("idx=%d", idx)
	}
	if len(calls) != 2 || calls[1] != "カフェ" {
		t.Fatalf("搜索调用序列错误：%v", calls)
	}
}

func TestStdinPicker_BlankLineAborts(t *testing.T) {
	var calls []string
	search := fakeSearch(t, map[string][]domain.SearchCandidate{
		"x": {{Id: 1, GameName: "x"}},
	}, &calls)

	var out strings.Builder
	pick := stdinPicker(strings.NewReader("\n"), &out)

	idx, err := pick(search, "x")
	if err != nil || idx != -1 {
		t.Fatalf("空行应放弃：idx=%d err=%v", idx, err)
	}
}

func TestStdinPicker_EOFAborts(t *testing.T) {
	var calls []string
	search := fakeSearch(t, map[string][]domain.SearchCandidate{}, &calls)

	var out strings.Builder
	pick := stdinPicker(strings.NewReader(""), &out)

	idx, err := pick(search, "x")
	if err != nil || idx != -1 {
		t.Fatalf("EOF 应放弃：idx=%d err=%v", idx, err)
	}
}
