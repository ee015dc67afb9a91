package merge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"linemerge/internal/diag"
	"linemerge/pkg/contract"
)

// - 单线程：读取、校验、选择、写出都在同一控制路径上顺序发生，无锁。
// - 所有权：活动源/输出列表只由 Engine 修改；源与输出的关闭只由 Engine 发起。
// - 轮次：每轮重新构造候选快照并在本轮内完全消费，轮间不共享候选状态。
// - 终止：唯一的正常出口是“无活动源且快照为空”，此时依次关闭全部输出并返回 StatusCompleted。

// Components 聚合运行所需的组件。
type Components struct {
	Domain  contract.Domain
	Sources []contract.LineSource
	Sinks   []contract.LineSink
}

// Settings 运行期只读配置。
type Settings struct {
	Direction contract.Direction
	// Terminal 可选：终端进度提示。
	Terminal *diag.Terminal
}

// Status 为 Run 的终态。
type Status int

const (
	StatusCompleted Status = iota + 1
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusCompleted:
		return "completed"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Result 汇总一次运行。
type Result struct {
	Status         Status
	Rounds         int64
	Emitted        int64
	Coalesced      int64
	Rejected       int64
	SourcesDropped int
	SinksDropped   int
}

// Engine 编排 LineSource、Domain 与 LineSink 完成多路合并。
type Engine struct {
	domain  contract.Domain
	dir     contract.Direction
	term    *diag.Terminal
	logger  *diag.Logger
	sources []contract.LineSource
	sinks   []contract.LineSink
	res     Result
	ran     bool
}

// New 校验组件并构造 Engine。源列表允许为空（直接走空完成路径）；输出至少一个。
func New(comp Components, set Settings, logger *diag.Logger) (*Engine, error) {
	if comp.Domain == nil {
		return nil, fmt.Errorf("%w: domain is nil", contract.ErrInvariantViolation)
	}
	if len(comp.Sinks) == 0 {
		return nil, contract.ErrNoOutputs
	}
	for i, s := range comp.Sources {
		if s == nil {
			return nil, fmt.Errorf("%w: source %d is nil", contract.ErrInvariantViolation, i)
		}
	}
	for i, s := range comp.Sinks {
		if s == nil {
			return nil, fmt.Errorf("%w: sink %d is nil", contract.ErrInvariantViolation, i)
		}
	}
	return &Engine{
		domain:  comp.Domain,
		dir:     set.Direction,
		term:    set.Terminal,
		logger:  logger,
		sources: append([]contract.LineSource(nil), comp.Sources...),
		sinks:   append([]contract.LineSink(nil), comp.Sinks...),
	}, nil
}

// Run 驱动合并直到全部源耗尽。Engine 只能运行一次。
// 正常完成返回 StatusCompleted（关闭输出失败时附带错误）；
// ctx 取消或全部输出失效时返回 StatusAborted 与对应错误，此时剩余源与输出也被关闭。
func (e *Engine) Run(ctx context.Context) (Result, error) {
	if e.ran {
		return e.res, fmt.Errorf("%w: engine already ran", contract.ErrInvariantViolation)
	}
	e.ran = true
	start := time.Now()
	t := e.logger.StartWithKV("merge", "run", map[string]string{
		"domain":    e.domain.Name(),
		"direction": e.dir.String(),
		"sources":   strconv.Itoa(len(e.sources)),
		"sinks":     strconv.Itoa(len(e.sinks)),
	})

	for {
		if err := ctx.Err(); err != nil {
			return e.fail("cancelled", err)
		}
		cands := e.prime()
		cands = e.clean(cands)
		e.removeFailed()
		e.closeEnded()

		if len(e.sources) == 0 && len(cands) == 0 {
			err := e.complete()
			e.res.Status = StatusCompleted
			t.Finish("run", e.res.Emitted)
			diag.IncOp("merge", "finish", "success")
			diag.ObserveDuration("merge", "finish", time.Since(start).Milliseconds())
			return e.res, err
		}

		if err := e.drain(cands); err != nil {
			return e.fail("all sinks failed", err)
		}
		e.res.Rounds++
		diag.IncRound()
		e.term.Progress(e.res.Rounds, e.res.Emitted)
		if e.logger.Enabled(diag.Debug) {
			e.logger.Debug("merge", "round", "", map[string]string{
				"round":      strconv.FormatInt(e.res.Rounds, 10),
				"candidates": strconv.Itoa(len(cands)),
				"sources":    strconv.Itoa(len(e.sources)),
			})
		}
	}
}

// prime 为每个活动源读到下一个有效候选，构造本轮快照。
func (e *Engine) prime() []string {
	cands := make([]string, 0, len(e.sources))
	for _, src := range e.sources {
		v, ok, err := e.readTillValid(src)
		if err != nil {
			e.logger.WarnSource("source", string(diag.Classify(err)), "read failed, source dropped: "+err.Error(), string(src.ID()))
			diag.IncError("source", string(diag.Classify(err)))
			continue
		}
		if ok {
			cands = append(cands, v)
		}
	}
	return cands
}

// readTillValid 反复读取直到源结束或得到一个非空且通过校验的行。
// 返回 ok=false 表示源已结束且没有产出候选。
func (e *Engine) readTillValid(src contract.LineSource) (string, bool, error) {
	for !src.Ended() {
		line, err := src.Read()
		if err != nil {
			return "", false, err
		}
		diag.IncLinesRead()
		if line == "" {
			e.reject(src, line, "empty")
			continue
		}
		if !e.domain.Valid(line) {
			e.reject(src, line, "invalid")
			continue
		}
		v, ok := src.Buffer()
		return v, ok, nil
	}
	return "", false, nil
}

func (e *Engine) reject(src contract.LineSource, line, reason string) {
	e.res.Rejected++
	diag.IncRejected(reason)
	if e.logger.Enabled(diag.Debug) {
		e.logger.Debug("validator", "rejected", string(src.ID()), map[string]string{"line": line, "reason": reason})
	}
}

// clean 再过滤一次快照：丢弃空串与未通过校验者。
func (e *Engine) clean(cands []string) []string {
	out := cands[:0]
	for _, c := range cands {
		if c == "" || !e.domain.Valid(c) {
			continue
		}
		out = append(out, c)
	}
	return out
}

// removeFailed 剔除因读取失败已自行关闭的源。
func (e *Engine) removeFailed() {
	kept := e.sources[:0]
	for _, src := range e.sources {
		if src.Closed() {
			e.res.SourcesDropped++
			diag.IncSourceDropped()
			continue
		}
		kept = append(kept, src)
	}
	clear(e.sources[len(kept):])
	e.sources = kept
}

// closeEnded 关闭并移除已结束的源。
func (e *Engine) closeEnded() {
	kept := e.sources[:0]
	for _, src := range e.sources {
		if !src.Ended() {
			kept = append(kept, src)
			continue
		}
		if err := src.Close(); err != nil {
			e.logger.WarnSource("source", string(diag.Classify(err)), "close failed: "+err.Error(), string(src.ID()))
		}
	}
	clear(e.sources[len(kept):])
	e.sources = kept
}

// drain 在本轮快照内反复选出极值、输出一次并移除全部同值候选，直到快照耗尽。
func (e *Engine) drain(cands []string) error {
	target, ok := e.domain.Pick(cands, e.dir)
	for ok && len(cands) > 0 {
		kept := cands[:0]
		matched := 0
		for _, c := range cands {
			if e.domain.Same(c, target) {
				matched++
				continue
			}
			kept = append(kept, c)
		}
		if matched == 0 {
			e.logger.Debug("merge", "target not in snapshot, round ends", "", map[string]string{"target": target})
			return nil
		}
		if err := e.emit(target); err != nil {
			return err
		}
		if matched > 1 {
			e.res.Coalesced += int64(matched - 1)
			diag.AddCoalesced(matched - 1)
		}
		cands = kept
		if len(cands) == 0 {
			return nil
		}
		target, ok = e.domain.Pick(cands, e.dir)
	}
	return nil
}

// emit 将一行广播到全部输出；写失败的输出被剔除。全部剔除时返回 ErrNoSinks。
func (e *Engine) emit(v string) error {
	line := v + contract.Terminator
	kept := e.sinks[:0]
	for _, s := range e.sinks {
		if err := s.Append(line); err != nil {
			e.logger.WarnSink("sink", string(diag.Classify(err)), "append failed, sink dropped: "+err.Error(), string(s.ID()))
			diag.IncError("sink", string(diag.Classify(err)))
			e.res.SinksDropped++
			diag.IncSinkDropped()
			if !s.Closed() {
				_ = s.Close()
			}
			continue
		}
		kept = append(kept, s)
	}
	clear(e.sinks[len(kept):])
	e.sinks = kept
	if len(e.sinks) == 0 {
		return contract.ErrNoSinks
	}
	e.res.Emitted++
	diag.IncEmitted()
	return nil
}

// complete 依次关闭全部输出（各一次）。
func (e *Engine) complete() error {
	var errs []error
	for _, s := range e.sinks {
		if err := s.Close(); err != nil {
			e.logger.WarnSink("sink", string(diag.Classify(err)), "close failed: "+err.Error(), string(s.ID()))
			errs = append(errs, fmt.Errorf("close %s: %w", s.ID(), err))
		}
	}
	e.sinks = nil
	return errors.Join(errs...)
}

// fail 关闭剩余的源与输出并以 StatusAborted 返回。
func (e *Engine) fail(msg string, err error) (Result, error) {
	code := diag.Classify(err)
	e.logger.ErrorWithKV("merge", string(code), msg, map[string]string{"error": err.Error()})
	diag.IncOp("merge", "error", "error")
	diag.IncError("merge", string(code))
	for _, src := range e.sources {
		if !src.Closed() {
			_ = src.Close()
		}
	}
	e.sources = nil
	for _, s := range e.sinks {
		if !s.Closed() {
			_ = s.Close()
		}
	}
	e.sinks = nil
	e.res.Status = StatusAborted
	return e.res, err
}
