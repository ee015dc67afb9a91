package contract

// LineSink: 单个输出目标，按调用顺序追加文本。
// 约束：
//  1. Append 写入调用方给出的完整文本（含行结束符）；
//  2. 已关闭时 Append 为 no-op 并返回 ErrSinkClosed；
//  3. 写失败时自行关闭并返回错误；
//  4. Close 由唯一所有者在全局完成后调用一次。
type LineSink interface {
	ID() SinkID
	Append(line string) error
	Closed() bool
	Close() error
}
