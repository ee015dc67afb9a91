package contract

import (
	"path"
	"strings"
)

// normalizePath 规范化路径，统一为跨平台稳定的标识。
// 规则：
// - 使用正斜杠分隔符
// - 清理多余分隔符与路径片段（.、..）
// - 保留相对/绝对语义，不做隐式绝对化
func normalizePath(p string) string {
	return path.Clean(strings.ReplaceAll(p, "\\", "/"))
}

// NormalizeSourceID 将输入路径映射为 SourceID。
func NormalizeSourceID(p string) SourceID { return SourceID(normalizePath(p)) }

// NormalizeSinkID 将输出路径映射为 SinkID。
func NormalizeSinkID(p string) SinkID { return SinkID(normalizePath(p)) }
