package contract

import "errors"

// 配置类错误（致命，各自对应独立退出码）。
var (
	// ErrModeMissing: 未选择值域模式（数值/字符串）。
	ErrModeMissing = errors.New("domain mode not selected")
	// ErrNoInputs: 未给出任何输入文件。
	ErrNoInputs = errors.New("no input files")
	// ErrNoOutputs: 未给出任何输出文件。
	ErrNoOutputs = errors.New("no output files")
	// ErrSinkOpen: 输出文件无法打开/创建（致命）。
	ErrSinkOpen = errors.New("sink cannot be opened")
)

// 运行期错误分类。
var (
	// ErrSourceClosed: 对已关闭的源执行读取。
	ErrSourceClosed = errors.New("source closed")
	// ErrSinkClosed: 对已关闭的输出执行追加。
	ErrSinkClosed = errors.New("sink closed")
	// ErrNoSinks: 所有输出均因写失败被剔除，无法继续履行输出契约。
	ErrNoSinks = errors.New("no writable sinks left")
	// ErrPathInvalid: 路径无效（空、目录或非常规文件）。
	ErrPathInvalid = errors.New("path invalid")
	// ErrInvariantViolation: 领域不变量违例（通用哨兵）。
	ErrInvariantViolation = errors.New("invariant violation")
)
