package diag

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linemerge/pkg/contract"
)

// 日志轮转写入
func TestRotatingFile(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 30)
	require.NoError(t, w.WriteLine([]byte("first line that is very long")))
	require.NoError(t, w.WriteLine([]byte("second")))
	require.NoError(t, w.Close())

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, files, 2, "应存在当前文件与一个轮转文件")
	_, err = os.Stat(filepath.Join(dir, "linemerge-current.txt"))
	assert.NoError(t, err)
}

// 历史文件只保留最近 keep 个
func TestRotatingFilePrune(t *testing.T) {
	dir := t.TempDir()
	w := NewRotatingFile(dir, 10)
	w.keep = 2
	for i := 0; i < 6; i++ {
		require.NoError(t, w.WriteLine([]byte("xxxxxxxxxxxx")))
	}
	require.NoError(t, w.Close())

	ents, err := os.ReadDir(dir)
	require.NoError(t, err)
	rotated := 0
	for _, e := range ents {
		if e.Name() != "linemerge-current.txt" {
			rotated++
		}
	}
	assert.Equal(t, 2, rotated)
}

func TestRotatingFileDefaultsAndRotateNoOpen(t *testing.T) {
	w := NewRotatingFile(t.TempDir(), 0)
	assert.Equal(t, int64(10*1024*1024), w.maxBytes)
	require.NoError(t, w.WriteLine([]byte("a")))
	require.NoError(t, w.Close())
	// f==nil 时 rotate 退化为 ensureOpen
	require.NoError(t, w.rotate())
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())
}

func TestClassify(t *testing.T) {
	cases := []struct {
		err  error
		want Code
	}{
		{nil, CodeUnknown},
		{context.Canceled, CodeCancel},
		{fmt.Errorf("wrap: %w", context.DeadlineExceeded), CodeCancel},
		{contract.ErrModeMissing, CodeConfig},
		{contract.ErrNoInputs, CodeConfig},
		{fmt.Errorf("x: %w", contract.ErrNoOutputs), CodeConfig},
		{contract.ErrPathInvalid, CodeInvariant},
		{contract.ErrInvariantViolation, CodeInvariant},
		{contract.ErrNoSinks, CodeIO},
		{fmt.Errorf("open: %w", contract.ErrSinkOpen), CodeIO},
		{fmt.Errorf("%w: out: %w", contract.ErrSinkOpen, contract.ErrPathInvalid), CodeIO},
		{&fs.PathError{Op: "open", Path: "/", Err: errors.New("x")}, CodeIO},
		{errors.New("other"), CodeUnknown},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, Classify(tt.err), "%v", tt.err)
	}
	assert.NotEmpty(t, NowUTC())
}

// Logger 事件为单行 JSON，并按级别过滤
func TestWriterLoggerEvents(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("corr", "info", &buf)
	l.Debug("validator", "reject", "in.txt", nil)
	tm := l.Start("merge", "run")
	tm.Finish("run", 3)
	l.WarnSource("source", "io", "skipped", "in.txt")
	l.WarnSink("sink", "io", "dropped", "out.txt")
	l.ErrorWithKV("cli", "config", "bad", map[string]string{"k": "v"})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 5, "debug 在 info 级别应被过滤")
	var evs []Event
	for _, ln := range lines {
		var ev Event
		require.NoError(t, json.Unmarshal([]byte(ln), &ev))
		assert.Equal(t, "corr", ev.CorrID)
		evs = append(evs, ev)
	}
	assert.Equal(t, "start", evs[0].Stage)
	assert.Equal(t, "finish", evs[1].Stage)
	assert.Equal(t, int64(3), evs[1].Count)
	assert.Equal(t, "warn", evs[2].Level)
	assert.Equal(t, "in.txt", evs[2].SourceID)
	assert.Equal(t, "out.txt", evs[3].SinkID)
	assert.Equal(t, "error", evs[4].Level)
	assert.Equal(t, "v", evs[4].KV["k"])
	assert.True(t, l.Enabled(Info))
	assert.False(t, l.Enabled(Debug))
}

func TestErrorLogsAtErrorLevelOnly(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriterLogger("c", "error", &buf)
	l.Info("cli", "hello", nil)
	start := time.Now().Add(-10 * time.Millisecond)
	l.Error("cli", "io", "boom", &start)
	var ev Event
	require.NoError(t, json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &ev))
	assert.Equal(t, "error", ev.Level)
	assert.GreaterOrEqual(t, ev.DurMS, int64(10))
}

func TestLoggerNilSafe(t *testing.T) {
	var l *Logger
	l.Info("c", "m", nil)
	assert.False(t, l.Enabled(Error))
	assert.NoError(t, l.Close())
	var tnil *Timer
	tnil.Finish("x", 0)
	(&Timer{}).Finish("x", 0)
}

func TestLoggerFileSink(t *testing.T) {
	dir := t.TempDir()
	l := NewLogger("corr", "info", dir)
	l.Info("cli", "hello", nil)
	require.NoError(t, l.Close())
	b, err := os.ReadFile(filepath.Join(dir, "linemerge-current.txt"))
	require.NoError(t, err)
	assert.Contains(t, string(b), `"msg":"hello"`)
}

func TestLevels(t *testing.T) {
	assert.Equal(t, "warn", Warn.String())
	assert.Equal(t, "info", Level(12345).String())
	assert.Equal(t, Debug, parseLevel("DEBUG"))
	assert.Equal(t, Info, parseLevel("verbose"))
}

func TestMetrics(t *testing.T) {
	before := testutil.ToFloat64(linesEmitted)
	IncEmitted()
	IncEmitted()
	assert.Equal(t, before+2, testutil.ToFloat64(linesEmitted))

	rej := testutil.ToFloat64(linesRejected.WithLabelValues("invalid"))
	IncRejected("invalid")
	assert.Equal(t, rej+1, testutil.ToFloat64(linesRejected.WithLabelValues("invalid")))

	IncOp("merge", "finish", "success")
	IncError("merge", "io")
	ObserveDuration("merge", "finish", 12)
	IncLinesRead()
	AddCoalesced(2)
	IncRound()
	IncSourceDropped()
	IncSinkDropped()

	p := filepath.Join(t.TempDir(), "linemerge.prom")
	require.NoError(t, WriteTextfile(p))
	b, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Contains(t, string(b), "linemerge_lines_emitted_total")
	assert.Contains(t, string(b), `linemerge_lines_rejected_total{reason="invalid"}`)
	assert.NotNil(t, Registry())
}

// 终端（非 TTY）仅输出起止两行
func TestTerminalNonTTYFlow(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	require.False(t, term.isTTY)
	term.RunStart("numeric", "asc", 3, 2)
	term.Progress(4, 7)
	term.RunFinish(true, 7, 5100*time.Millisecond)

	out := sb.String()
	assert.NotContains(t, out, "\r")
	assert.Contains(t, out, "[run] 模式=numeric | 顺序=asc | 输入=3 | 输出=2")
	assert.Contains(t, out, "[ok] 合并结束 | 轮次 4 | 输出 7 行 | 总用时 5.1s")
}

// 终端（TTY）进度节流与清尾
func TestTerminalTTYProgressThrottleAndClear(t *testing.T) {
	var sb strings.Builder
	term := NewTerminal(&sb, true)
	term.isTTY = true
	term.RunStart("lexical", "desc", 1, 1)

	term.Progress(1, 1)
	first := sb.String()
	assert.Contains(t, first, "\r[merge]")
	term.Progress(2, 2)
	assert.Equal(t, first, sb.String(), "100ms 内应被节流")
	time.Sleep(120 * time.Millisecond)
	term.Progress(3, 3)
	assert.Greater(t, len(sb.String()), len(first))

	term.RunFinish(false, 3, 2200*time.Millisecond)
	final := sb.String()
	idx := strings.LastIndex(final, "[fail]")
	require.GreaterOrEqual(t, idx, 0)
	seg := final[:idx]
	cr := strings.LastIndex(seg, "\r")
	require.GreaterOrEqual(t, cr, 0)
	assert.Contains(t, seg[cr+1:], " ", "清尾应以空格覆盖")
}

type flakyWriter struct{ fail bool }

func (w *flakyWriter) Write(p []byte) (int, error) {
	if w.fail {
		w.fail = false
		return 0, fmt.Errorf("boom")
	}
	return len(p), nil
}

func TestTerminalDisableOnWriteError(t *testing.T) {
	term := NewTerminal(&flakyWriter{fail: true}, true)
	term.RunStart("numeric", "asc", 1, 1)
	assert.False(t, term.enabled)
	term.Progress(1, 1)
	term.RunFinish(true, 0, 0)

	var tn *Terminal
	tn.RunStart("x", "y", 0, 0)
	tn.Progress(0, 0)
	tn.RunFinish(true, 0, 0)
}

func TestNewTerminalCIEnv(t *testing.T) {
	t.Setenv("CI", "true")
	term := NewTerminal(os.Stderr, true)
	assert.False(t, term.isTTY)
}

func TestHelpers(t *testing.T) {
	assert.Equal(t, "a b c", safe("a\nb\rc"))
	assert.Equal(t, "0ms", formatDur(0))
	assert.Equal(t, "1.5s", formatDur(1500*time.Millisecond))
	assert.Equal(t, 2, visLen("合并"))
}
