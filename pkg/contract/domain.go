package contract

// Domain: 值域策略（数值 / 按首字符的字典序），启动时选定一次。
// 同时承担校验器与选择器两个角色：
//   - Valid: 纯谓词，判断原始行是否为可接受候选（空串由调用方预先剔除）；
//   - Pick: 在候选集合中按方向选出极值；
//   - Same: 合并判等（同值的多个候选只输出一次）。
type Domain interface {
	Name() string
	Valid(candidate string) bool
	// Pick 对候选集合的副本排序后取首（升序）或尾（降序）元素。
	// 集合为空时返回 false。返回值为该值域下的规范文本。
	Pick(cands []string, dir Direction) (string, bool)
	Same(a, b string) bool
}
