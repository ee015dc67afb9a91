package contract

import "strings"

// SourceID: 输入源标识（通常为规范化路径，跨平台一致）。
type SourceID string

// SinkID: 输出目标标识（规范化路径）。
type SinkID string

// Direction: 排序/读取方向，整次运行固定。
type Direction int

const (
	// Ascending: 升序，正向读取（自字节 0 起）。
	Ascending Direction = iota
	// Descending: 降序，反向读取（自文件尾起）。
	Descending
)

func (d Direction) String() string {
	if d == Descending {
		return "desc"
	}
	return "asc"
}

// ParseDirection 将配置中的 order 字符串映射为 Direction；空串视为升序。
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "asc", "ascending":
		return Ascending, true
	case "desc", "descending":
		return Descending, true
	default:
		return Ascending, false
	}
}

// Terminator: 输出行结束符，由调用方（引擎）附加。
const Terminator = "\n"
