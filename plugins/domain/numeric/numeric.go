package numeric

import (
	"slices"
	"strconv"

	"linemerge/pkg/contract"
)

// Numeric 实现数值值域：候选必须是带可选符号的十进制整数字面量（int64 范围）。
// 任何空白（前后或内部）都会导致解析失败而被拒绝。
type Numeric struct{}

// New 创建数值值域。
func New() *Numeric { return &Numeric{} }

var _ contract.Domain = (*Numeric)(nil)

func (*Numeric) Name() string { return "numeric" }

func (*Numeric) Valid(candidate string) bool {
	_, err := strconv.ParseInt(candidate, 10, 64)
	return err == nil
}

// Pick 解析全部候选并升序排序，升序取首、降序取尾。
// 返回规范十进制文本（"+7"、"007" 均输出为 "7"）。无法解析的候选被忽略。
func (*Numeric) Pick(cands []string, dir contract.Direction) (string, bool) {
	vals := make([]int64, 0, len(cands))
	for _, c := range cands {
		if v, err := strconv.ParseInt(c, 10, 64); err == nil {
			vals = append(vals, v)
		}
	}
	if len(vals) == 0 {
		return "", false
	}
	slices.Sort(vals)
	idx := 0
	if dir == contract.Descending && len(vals) > 1 {
		idx = len(vals) - 1
	}
	return strconv.FormatInt(vals[idx], 10), true
}

// Same 按数值判等。
func (*Numeric) Same(a, b string) bool {
	x, err := strconv.ParseInt(a, 10, 64)
	if err != nil {
		return false
	}
	y, err := strconv.ParseInt(b, 10, 64)
	if err != nil {
		return false
	}
	return x == y
}
