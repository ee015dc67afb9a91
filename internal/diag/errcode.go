package diag

import (
	"context"
	"errors"
	"os"
	"time"

	"linemerge/pkg/contract"
)

// Code 是最小错误分类代码。
// 仅用于日志/指标汇总，与退出码解耦。
type Code string

const (
	CodeUnknown   Code = "unknown"
	CodeConfig    Code = "config"
	CodeInvariant Code = "invariant"
	CodeCancel    Code = "cancel"
	CodeIO        Code = "io"
)

// Classify 将错误归为最小分类。
// 仅依赖哨兵错误与标准库错误类型，不做字符串匹配。
func Classify(err error) Code {
	if err == nil {
		return CodeUnknown
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CodeCancel
	}
	if errors.Is(err, contract.ErrModeMissing) ||
		errors.Is(err, contract.ErrNoInputs) ||
		errors.Is(err, contract.ErrNoOutputs) {
		return CodeConfig
	}
	// 输出打开失败常包装路径错误，先于 invariant 判定。
	if errors.Is(err, contract.ErrSinkOpen) ||
		errors.Is(err, contract.ErrNoSinks) ||
		errors.Is(err, contract.ErrSourceClosed) ||
		errors.Is(err, contract.ErrSinkClosed) {
		return CodeIO
	}
	if errors.Is(err, contract.ErrInvariantViolation) ||
		errors.Is(err, contract.ErrPathInvalid) {
		return CodeInvariant
	}
	var perr *os.PathError
	if errors.As(err, &perr) {
		return CodeIO
	}
	return CodeUnknown
}

// NowUTC 返回 RFC3339 UTC 时间字符串（用于结构化日志字段 ts）。
func NowUTC() string { return time.Now().UTC().Format(time.RFC3339) }
