package lexical

import (
	"cmp"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"linemerge/pkg/contract"
)

// Lexical 实现字符串值域。
// 校验：不能解析为有符号整数，且不含任何空白字符。
// 排序：仅比较首字符码点；首字符相同者保持输入顺序（稳定排序）。
// 判等：完整字符串相等。
type Lexical struct{}

// New 创建字符串值域。
func New() *Lexical { return &Lexical{} }

var _ contract.Domain = (*Lexical)(nil)

func (*Lexical) Name() string { return "lexical" }

func (*Lexical) Valid(candidate string) bool {
	if _, err := strconv.ParseInt(candidate, 10, 64); err == nil {
		return false
	}
	return strings.IndexFunc(candidate, unicode.IsSpace) < 0
}

func (*Lexical) Pick(cands []string, dir contract.Direction) (string, bool) {
	if len(cands) == 0 {
		return "", false
	}
	sorted := slices.Clone(cands)
	slices.SortStableFunc(sorted, func(a, b string) int {
		return cmp.Compare(firstRune(a), firstRune(b))
	})
	if dir == contract.Descending && len(sorted) > 1 {
		return sorted[len(sorted)-1], true
	}
	return sorted[0], true
}

func (*Lexical) Same(a, b string) bool { return a == b }

// firstRune 返回首字符码点；空串排在最前。
func firstRune(s string) rune {
	if s == "" {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s)
	return r
}
