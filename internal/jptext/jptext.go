// Package jptext 提供跨站点标题比较所需的文本规范化。
//
// 批评空间写「アマカノ2」、VNDB 写「アマカノ２」；不做规范化就永远对不上。
// 这里只折叠全角英数字/符号（U+FF01..U+FF5E），不碰假名：
// 半角/全角片假名的折叠会改写日文标题本身，属于过度规范化。
package jptext

import "strings"

// Normalize 把标题规范化为可比较形态：
// 去首尾空白 → 全角英数字/符号折叠为半角 → 小写。
// 幂等：Normalize(Normalize(s)) == Normalize(s)。
func Normalize(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		// 全角块 U+FF01..U+FF5E 与 ASCII U+0021..U+007E 一一对应。
		if r >= '！' && r <= '～' {
			r -= 0xFEE0
		}
		b.WriteRune(r)
	}
	return strings.ToLower(b.String())
}

// TitleMatches 判断候选标题是否“指同一作品”。
//
// 规则（刻意保守）：
// - 规范化后完全相等；或
// - 候选标题以「查询词 + 空格」开头（吸收“〇〇 通常版 / 〇〇 DL版”这类版本后缀）。
//
// 不做编辑距离等模糊匹配：宁可漏配，也不允许把续作/无关同前缀作品当成匹配。
func TitleMatches(candidate, query string) bool {
	nc := Normalize(candidate)
	nq := Normalize(query)
	if nq == "" {
		return false
	}
	if nc == nq {
		return true
	}
	return strings.HasPrefix(nc, nq+" ")
}
