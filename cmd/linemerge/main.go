package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	cfgpkg "linemerge/internal/config"
	"linemerge/internal/diag"
	"linemerge/internal/merge"
	"linemerge/pkg/contract"
)

// 退出码
const (
	exitOK          = 0
	exitRuntime     = 1
	exitUsage       = 2
	exitModeMissing = 3
	exitNoInputs    = 4
	exitNoOutputs   = 5
	exitConfig      = 6
	exitSinkOpen    = 8
)

// mergeRun 可在测试中替换。
var mergeRun = func(ctx context.Context, comp merge.Components, set merge.Settings, logger *diag.Logger) (merge.Result, error) {
	e, err := merge.New(comp, set, logger)
	if err != nil {
		return merge.Result{}, err
	}
	return e.Run(ctx)
}

var stderr io.Writer = os.Stderr

func main() {
	os.Exit(run(os.Args[1:]))
}

// exitError 携带退出码。
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

type options struct {
	numeric, lexical bool
	asc, desc        bool
	config           string
	logLevel         string
	logDir           string
	metricsFile      string
	outKeyword       string
	initDir          string
	status           bool
}

func run(args []string) int {
	// 在任何 ENV 读取前，尝试加载工作目录下的 .env（不覆盖已有 ENV）。
	_ = loadDotEnv(".env")

	var started bool
	cmd := newRootCmd(func(cmd *cobra.Command, o *options, pos []string) error {
		started = true
		return execute(cmd.Context(), o, pos)
	})
	cmd.SetArgs(normalizeInitArg(args))
	cmd.SetOut(stderr)
	cmd.SetErr(stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return exitOK
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	if !started {
		// 旗标解析、互斥校验等在 RunE 之前失败
		fprintf(stderr, "参数错误: %v\n", err)
		return exitUsage
	}
	fprintf(stderr, "运行失败: %v\n", err)
	return exitRuntime
}

func newRootCmd(runE func(*cobra.Command, *options, []string) error) *cobra.Command {
	o := &options{}
	cmd := &cobra.Command{
		Use:   "linemerge (-i|-s) [-a|-d] <input>... <out-file>...",
		Short: "Merge pre-sorted line files into deduplicated, ordered outputs",
		Long: `linemerge 将若干已排序的行文件合并为去重、有序的输出。
位置参数中包含输出关键字（默认 "out"）的视为输出文件，其余为输入文件或目录。`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runE(cmd, o, args)
		},
	}
	f := cmd.Flags()
	f.BoolVarP(&o.numeric, "numeric", "i", false, "整数模式")
	f.BoolVarP(&o.lexical, "lexical", "s", false, "字符串模式（按首字符）")
	f.BoolVarP(&o.asc, "asc", "a", false, "升序（默认）")
	f.BoolVarP(&o.desc, "desc", "d", false, "降序（从文件末尾读取）")
	f.StringVar(&o.config, "config", "", "配置文件路径（JSON/YAML）；缺省读取 ./linemerge.yaml|yml|json（若存在）")
	f.StringVar(&o.logLevel, "log-level", "", "日志级别 debug|info|warn|error（覆盖配置）")
	f.StringVar(&o.logDir, "log-dir", "", "日志目录；\"-\" 表示 stderr（覆盖配置）")
	f.StringVar(&o.metricsFile, "metrics-file", "", "结束时写出 Prometheus 文本格式指标")
	f.StringVar(&o.outKeyword, "out-keyword", "", "输出路径关键字（覆盖配置，默认 out）")
	f.StringVar(&o.initDir, "init-config", "", "在指定目录生成 linemerge.yaml 与 .env 模板（不覆盖）；不带值时为当前目录")
	f.Lookup("init-config").NoOptDefVal = "."
	f.BoolVar(&o.status, "status", true, "终端状态提示（stderr）。TTY 动态刷新；非 TTY 打点输出")
	cmd.MarkFlagsMutuallyExclusive("numeric", "lexical")
	cmd.MarkFlagsMutuallyExclusive("asc", "desc")
	return cmd
}

func execute(ctx context.Context, o *options, pos []string) error {
	start := time.Now()

	// --init-config: 生成模板并退出
	if dir := strings.TrimSpace(o.initDir); dir != "" {
		written, err := cfgpkg.WriteInit(dir)
		if err != nil {
			fprintf(stderr, "生成默认配置失败: %v\n", err)
			return &exitError{code: exitConfig, err: err}
		}
		for _, p := range written {
			fprintf(stderr, "已生成 %s\n", p)
		}
		return nil
	}

	cfg, err := loadConfig(o, pos)
	if err != nil {
		fprintf(stderr, "配置解析失败: %v\n", err)
		return &exitError{code: exitConfig, err: err}
	}
	if err := cfgpkg.Validate(cfg); err != nil {
		fprintf(stderr, "配置校验失败: %v\n", err)
		return &exitError{code: exitCode(err), err: err}
	}

	corrID := uuid.NewString()
	logger := diag.NewLogger(corrID, cfg.Logging.Level, cfg.Logging.Dir)
	defer logger.Close()

	if logger.Enabled(diag.Debug) {
		logger.Debug("config", "effective", "", map[string]string{
			"mode":           cfg.Mode,
			"order":          cfg.Order,
			"inputs":         strings.Join(cfg.Inputs, ","),
			"outputs":        strings.Join(cfg.Outputs, ","),
			"output_keyword": cfg.OutputKeyword,
			"source":         cfg.Components.Source,
			"sink":           cfg.Components.Sink,
		})
	}

	comp, set, err := cfgpkg.Assemble(cfg, logger)
	if err != nil {
		fprintf(stderr, "装配失败: %v\n", err)
		logger.Error("config", string(diag.Classify(err)), err.Error(), &start)
		return &exitError{code: exitCode(err), err: err}
	}

	// 终端信息提示（非日志）：按 CLI 启用，默认开启
	term := diag.NewTerminal(stderr, o.status)
	set.Terminal = term
	term.RunStart(cfg.Mode, set.Direction.String(), len(comp.Sources), len(comp.Sinks))

	res, runErr := mergeRun(ctx, comp, set, logger)
	if cfg.Metrics.File != "" {
		if err := diag.WriteTextfile(cfg.Metrics.File); err != nil {
			logger.ErrorWithKV("metrics", string(diag.Classify(err)), "write textfile failed", map[string]string{"path": cfg.Metrics.File, "error": err.Error()})
			fprintf(stderr, "指标写出失败: %v\n", err)
		}
	}
	if runErr != nil {
		logger.Error("merge", string(diag.Classify(runErr)), runErr.Error(), &start)
		if !errors.Is(runErr, context.Canceled) {
			fprintf(stderr, "运行失败: %v\n", runErr)
		}
		term.RunFinish(false, res.Emitted, time.Since(start))
		return &exitError{code: exitRuntime, err: runErr}
	}
	logger.Info("merge", "summary", map[string]string{
		"rounds":          strconv.FormatInt(res.Rounds, 10),
		"emitted":         strconv.FormatInt(res.Emitted, 10),
		"coalesced":       strconv.FormatInt(res.Coalesced, 10),
		"rejected":        strconv.FormatInt(res.Rejected, 10),
		"sources_dropped": strconv.Itoa(res.SourcesDropped),
		"sinks_dropped":   strconv.Itoa(res.SinksDropped),
	})
	term.RunFinish(true, res.Emitted, time.Since(start))
	return nil
}

// loadConfig 合并 默认值 < 配置文件 < ENV < CLI。
func loadConfig(o *options, pos []string) (cfgpkg.Config, error) {
	cfg := cfgpkg.Defaults()

	path := o.config
	if path == "" {
		path = os.Getenv(cfgpkg.EnvPrefix + "CONFIG_FILE")
	}
	// 默认读取工作目录下的配置文件（若存在）
	if path == "" {
		for _, name := range []string{"linemerge.yaml", "linemerge.yml", "linemerge.json"} {
			if st, err := os.Stat(name); err == nil && !st.IsDir() {
				path = name
				break
			}
		}
	}
	if path != "" {
		base, err := cfgpkg.LoadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("%s: %w", path, err)
		}
		cfg = cfgpkg.Merge(cfg, base)
	}

	overEnv, err := cfgpkg.EnvOverlay(os.Environ())
	if err != nil {
		return cfg, err
	}
	cfg = cfgpkg.Merge(cfg, overEnv)

	var overCLI cfgpkg.Config
	switch {
	case o.numeric:
		overCLI.Mode = "numeric"
	case o.lexical:
		overCLI.Mode = "lexical"
	}
	switch {
	case o.asc:
		overCLI.Order = contract.Ascending.String()
	case o.desc:
		overCLI.Order = contract.Descending.String()
	}
	overCLI.Logging = cfgpkg.Logging{Level: o.logLevel, Dir: o.logDir}
	overCLI.Metrics.File = o.metricsFile
	overCLI.OutputKeyword = o.outKeyword

	keyword := cfg.OutputKeyword
	if o.outKeyword != "" {
		keyword = o.outKeyword
	}
	overCLI.Inputs, overCLI.Outputs = cfgpkg.ClassifyArgs(pos, keyword)
	return cfgpkg.Merge(cfg, overCLI), nil
}

// exitCode 将配置/装配错误映射为退出码。
func exitCode(err error) int {
	switch {
	case errors.Is(err, contract.ErrModeMissing):
		return exitModeMissing
	case errors.Is(err, contract.ErrNoInputs):
		return exitNoInputs
	case errors.Is(err, contract.ErrNoOutputs):
		return exitNoOutputs
	case errors.Is(err, contract.ErrSinkOpen):
		return exitSinkOpen
	case errors.Is(err, cfgpkg.ErrInvalid):
		return exitConfig
	default:
		return exitRuntime
	}
}

func fprintf(w io.Writer, format string, a ...any) { _, _ = fmt.Fprintf(w, format, a...) }

// loadDotEnv 读取简单的 .env 文件格式并注入进程环境。
// 规则：
// - 忽略不存在的文件；无法读取时返回错误（但调用处可忽略）。
// - 跳过空行与以 # 开头的行；支持可选的前缀 "export "。
// - 仅按首个 '=' 分割；key 与 value 去首尾空白；
// - 若 value 被成对的单/双引号包裹，则去除外层引号；双引号内常见转义 \n/\t/\\/\" 作最小处理。
// - 不覆盖已存在的环境变量（保持系统/调用者优先）。
func loadDotEnv(path string) error {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, val, ok := strings.Cut(line, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		if !ok || key == "" {
			continue
		}
		// 去除成对引号
		if len(val) >= 2 {
			if q := val[0]; (q == '\'' || q == '"') && val[len(val)-1] == q {
				val = val[1 : len(val)-1]
				if q == '"' {
					val = strings.NewReplacer(`\n`, "\n", `\t`, "\t", `\r`, "\r", `\"`, `"`, `\\`, `\`).Replace(val)
				}
			}
		}
		if _, exists := os.LookupEnv(key); exists {
			continue
		}
		_ = os.Setenv(key, val)
	}
	return s.Err()
}

// normalizeInitArg: 允许 "--init-config DIR" 形式。
// pflag 对带 NoOptDefVal 的旗标只接受 "--init-config=DIR"；
// 此处在后继参数不是开关时将其合并为等号形式，裸开关保持不变（取默认 "."）。
func normalizeInitArg(args []string) []string {
	out := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		a := args[i]
		if a == "--init-config" && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			out = append(out, "--init-config="+args[i+1])
			i++
			continue
		}
		out = append(out, a)
	}
	return out
}
