package diag

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

// 级别定义
type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

func (l Level) String() string {
	switch l {
	case Debug:
		return "debug"
	case Info:
		return "info"
	case Warn:
		return "warn"
	case Error:
		return "error"
	default:
		return "info"
	}
}

// Logger 为最小结构化日志器：单行 JSON 输出；写入轮转文件或给定 io.Writer。
type Logger struct {
	corrID string
	level  Level
	sink   *RotatingFile
	w      io.Writer
	mu     sync.Mutex
}

// NewLogger 通过配置的 level 初始化。
// dir 为日志目录（10MiB 轮转）；dir 为 "-" 时写 stderr；为空时使用默认目录 logs。
func NewLogger(corrID, level, dir string) *Logger {
	lvl := parseLevel(strings.TrimSpace(level))
	dir = strings.TrimSpace(dir)
	switch dir {
	case "-":
		return &Logger{corrID: corrID, level: lvl, w: os.Stderr}
	case "":
		dir = "logs"
	}
	return &Logger{corrID: corrID, level: lvl, sink: NewRotatingFile(dir, 10*1024*1024)}
}

// NewWriterLogger 将事件写入 w（测试与嵌入场景）。
func NewWriterLogger(corrID, level string, w io.Writer) *Logger {
	return &Logger{corrID: corrID, level: parseLevel(strings.TrimSpace(level)), w: w}
}

func parseLevel(s string) Level {
	switch strings.ToLower(s) {
	case "debug":
		return Debug
	case "warn":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

// Event 为标准事件结构。
type Event struct {
	Level    string            `json:"level"`
	TS       string            `json:"ts"`
	CorrID   string            `json:"corr_id"`
	Comp     string            `json:"comp"`
	Stage    string            `json:"stage"` // start|finish|error|warn|debug
	Code     string            `json:"code,omitempty"`
	DurMS    int64             `json:"dur_ms,omitempty"`
	Count    int64             `json:"count,omitempty"`
	SourceID string            `json:"source_id,omitempty"`
	SinkID   string            `json:"sink_id,omitempty"`
	Msg      string            `json:"msg"`
	KV       map[string]string `json:"kv,omitempty"`
}

// Enabled 报告给定级别是否会输出；调用方可据此跳过昂贵的字段组装。
func (l *Logger) Enabled(lv Level) bool { return l != nil && lv >= l.level }

func (l *Logger) log(lv Level, ev Event) {
	if l == nil || lv < l.level {
		return
	}
	ev.Level = lv.String()
	ev.TS = NowUTC()
	ev.CorrID = l.corrID
	b, _ := json.Marshal(ev)
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.sink == nil {
		w := l.w
		if w == nil {
			w = os.Stderr
		}
		_, _ = w.Write(append(b, '\n'))
		return
	}
	if err := l.sink.WriteLine(b); err != nil {
		fmt.Fprintf(os.Stderr, "logger sink error: %v\n", err)
		_, _ = os.Stderr.Write(append(b, '\n'))
	}
}

// Close 关闭底层轮转文件（若有）。
func (l *Logger) Close() error {
	if l == nil || l.sink == nil {
		return nil
	}
	return l.sink.Close()
}

// Start 记录 start 事件；返回计时器用于 Finish。
func (l *Logger) Start(comp, msg string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// StartWithKV 记录带键值的 start。
func (l *Logger) StartWithKV(comp, msg string, kv map[string]string) *Timer {
	l.log(Info, Event{Comp: comp, Stage: "start", Msg: msg, KV: kv})
	return &Timer{l: l, comp: comp, t0: time.Now()}
}

// Error 记录 error 事件。
func (l *Logger) Error(comp, code, msg string, durSince *time.Time) {
	var dur int64
	if durSince != nil {
		dur = time.Since(*durSince).Milliseconds()
	}
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, DurMS: dur, Msg: msg})
}

// ErrorWithKV 支持附带键值对。
func (l *Logger) ErrorWithKV(comp, code, msg string, kv map[string]string) {
	l.log(Error, Event{Comp: comp, Stage: "error", Code: code, Msg: msg, KV: kv})
}

// WarnSource 记录与某个输入源相关的告警（跳过/剔除）。
func (l *Logger) WarnSource(comp, code, msg, sourceID string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", Code: code, SourceID: sourceID, Msg: msg})
}

// WarnSink 记录与某个输出相关的告警。
func (l *Logger) WarnSink(comp, code, msg, sinkID string) {
	l.log(Warn, Event{Comp: comp, Stage: "warn", Code: code, SinkID: sinkID, Msg: msg})
}

// Info 记录普通信息事件。
func (l *Logger) Info(comp, msg string, kv map[string]string) {
	l.log(Info, Event{Comp: comp, Stage: "info", Msg: msg, KV: kv})
}

// Debug 输出调试事件（仅在 level=debug 时生效）。
func (l *Logger) Debug(comp, msg, sourceID string, kv map[string]string) {
	l.log(Debug, Event{Comp: comp, Stage: "debug", SourceID: sourceID, Msg: msg, KV: kv})
}

// Timer 用于 start→finish 计时。
type Timer struct {
	l    *Logger
	comp string
	t0   time.Time
}

// Finish 记录 finish；可选 count。
func (t *Timer) Finish(msg string, count int64) {
	if t == nil || t.l == nil {
		return
	}
	t.l.log(Info, Event{Comp: t.comp, Stage: "finish", DurMS: time.Since(t.t0).Milliseconds(), Count: count, Msg: msg})
}
