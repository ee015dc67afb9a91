package contract

// LineSource: 单个输入文件的惰性按行读取器（一行前瞻缓冲）。
// 约束：
//  1. 按构造时给定的方向逐行推进，行内容不含 \r 与 \n；
//  2. 反向读取时行内字节按文件原顺序还原；
//  3. Closed 之后缓冲永久为空，不再发生读取；
//  4. 不在内部起并发。
type LineSource interface {
	// ID 返回源标识。
	ID() SourceID
	// Read 读取下一行并缓存为当前缓冲；已关闭时返回 ErrSourceClosed。
	// 读取失败时源自行关闭并返回错误。
	Read() (string, error)
	// Ended 报告游标是否已到达该方向的终点边界。
	Ended() bool
	// Closed 报告底层句柄是否已释放。
	Closed() bool
	// Buffer 返回最近一次缓存的行；若已结束或已关闭，返回后清空缓存，
	// 第二次调用得到 ("", false)。
	Buffer() (string, bool)
	// Close 释放底层句柄；调用方保证只调用一次。
	Close() error
}
