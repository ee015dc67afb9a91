package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultOutputKeyword 为位置参数分类的默认关键字。
const DefaultOutputKeyword = "out"

// EnvPrefix 为环境变量覆盖前缀。
const EnvPrefix = "LINEMERGE_"

// Defaults 返回带有安全默认值的 Config 雏形。
// 注意：Mode 不设默认（必须由文件/ENV/CLI 提供）。
func Defaults() Config {
	return Config{
		Order:         "asc",
		OutputKeyword: DefaultOutputKeyword,
		Logging:       Logging{Level: "info"},
		Components: Components{
			Source: "fs",
			Sink:   "fs",
		},
	}
}

// LoadJSON 从文件路径或原始 JSON 解析 Config（严格拒绝未知字段）。
func LoadJSON(path string, raw []byte) (Config, error) {
	var cfg Config
	switch {
	case len(raw) > 0:
	case path != "":
		b, err := os.ReadFile(path)
		if err != nil {
			return cfg, err
		}
		raw = b
	default:
		return cfg, errors.New("no config source provided")
	}
	if err := decodeStrict(raw, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadYAML 解析 YAML 配置：先解码为通用树，再转 JSON 严格解码，
// 使 Options 子树保持原样 JSON 且未知字段同样被拒绝。
func LoadYAML(raw []byte) (Config, error) {
	var cfg Config
	var tree any
	if err := yaml.Unmarshal(raw, &tree); err != nil {
		return cfg, err
	}
	if tree == nil {
		return cfg, nil
	}
	b, err := json.Marshal(tree)
	if err != nil {
		return cfg, fmt.Errorf("yaml to json: %w", err)
	}
	if err := decodeStrict(b, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadFile 按扩展名选择解析器：.yaml/.yml 为 YAML，其余按 JSON。
func LoadFile(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, err
		}
		return LoadYAML(b)
	default:
		return LoadJSON(path, nil)
	}
}

func decodeStrict(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// Merge 按优先级合并（后者覆盖前者）。
// 仅标量/字符串/原样 JSON 为“替换”；不做深度合并。
func Merge(base, over Config) Config {
	out := base
	if s := strings.TrimSpace(over.Mode); s != "" {
		out.Mode = s
	}
	if s := strings.TrimSpace(over.Order); s != "" {
		out.Order = s
	}
	if len(over.Inputs) > 0 {
		out.Inputs = cloneStrings(over.Inputs)
	}
	if len(over.Outputs) > 0 {
		out.Outputs = cloneStrings(over.Outputs)
	}
	if over.OutputKeyword != "" {
		out.OutputKeyword = over.OutputKeyword
	}

	if s := strings.TrimSpace(over.Logging.Level); s != "" {
		out.Logging.Level = s
	}
	if s := strings.TrimSpace(over.Logging.Dir); s != "" {
		out.Logging.Dir = s
	}
	if s := strings.TrimSpace(over.Metrics.File); s != "" {
		out.Metrics.File = s
	}

	// 组件名（空不覆盖）
	if over.Components.Source != "" {
		out.Components.Source = over.Components.Source
	}
	if over.Components.Sink != "" {
		out.Components.Sink = over.Components.Sink
	}

	// Options（完整替换对应键）
	if len(over.Options.Source) > 0 {
		out.Options.Source = cloneRaw(over.Options.Source)
	}
	if len(over.Options.Sink) > 0 {
		out.Options.Sink = cloneRaw(over.Options.Sink)
	}
	return out
}

// EnvOverlay 从环境变量构建一个 Config 覆盖（仅解析有限键集合）。
// 规则：前缀 LINEMERGE_；集合之外的键忽略。
// 支持：MODE, ORDER, INPUTS, OUTPUTS, OUTPUT_KEYWORD, LOG_LEVEL, LOG_DIR, METRICS_FILE,
// COMPONENTS_{SOURCE,SINK}, OPTIONS_{SOURCE,SINK}_JSON
func EnvOverlay(environ []string) (Config, error) {
	var over Config
	for _, kv := range environ {
		if !strings.HasPrefix(kv, EnvPrefix) {
			continue
		}
		eq := strings.IndexByte(kv, '=')
		if eq <= len(EnvPrefix) {
			continue
		}
		key := kv[len(EnvPrefix):eq]
		val := kv[eq+1:]
		switch key {
		case "MODE":
			over.Mode = strings.TrimSpace(val)
		case "ORDER":
			over.Order = strings.TrimSpace(val)
		case "INPUTS":
			over.Inputs = splitComma(val)
		case "OUTPUTS":
			over.Outputs = splitComma(val)
		case "OUTPUT_KEYWORD":
			over.OutputKeyword = strings.TrimSpace(val)
		case "LOG_LEVEL":
			over.Logging.Level = strings.TrimSpace(val)
		case "LOG_DIR":
			over.Logging.Dir = strings.TrimSpace(val)
		case "METRICS_FILE":
			over.Metrics.File = strings.TrimSpace(val)
		case "COMPONENTS_SOURCE":
			over.Components.Source = strings.TrimSpace(val)
		case "COMPONENTS_SINK":
			over.Components.Sink = strings.TrimSpace(val)
		case "OPTIONS_SOURCE_JSON", "OPTIONS_SINK_JSON":
			// 原样 JSON；空值视为未设置，避免清空现有配置
			v := strings.TrimSpace(val)
			if v == "" {
				continue
			}
			if !json.Valid([]byte(v)) {
				return over, fmt.Errorf("%w: %s%s is not valid JSON", ErrInvalid, EnvPrefix, key)
			}
			if key == "OPTIONS_SOURCE_JSON" {
				over.Options.Source = json.RawMessage(v)
			} else {
				over.Options.Sink = json.RawMessage(v)
			}
		}
	}
	return over, nil
}

// ClassifyArgs 按关键字将位置参数分为输入与输出：空串忽略，包含 keyword 的为输出。
func ClassifyArgs(args []string, keyword string) (inputs, outputs []string) {
	if keyword == "" {
		keyword = DefaultOutputKeyword
	}
	for _, a := range args {
		switch {
		case a == "":
		case strings.Contains(a, keyword):
			outputs = append(outputs, a)
		default:
			inputs = append(inputs, a)
		}
	}
	return inputs, outputs
}

func cloneStrings(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

func cloneRaw(in json.RawMessage) json.RawMessage {
	if len(in) == 0 {
		return nil
	}
	out := make([]byte, len(in))
	copy(out, in)
	return out
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := parts[:0]
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
