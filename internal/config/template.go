package config

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// 模板文件名。
const (
	TemplateFile = "linemerge.yaml"
	DotEnvFile   = ".env"
)

// DefaultTemplateConfig 返回一个默认配置模板：
// - mode 预填 numeric，输入输出给出示例路径；
// - 组件名采用仓库内置实现；
// - 选项给出全部键与中性默认值。
func DefaultTemplateConfig() Config {
	d := Defaults()
	cfg := Config{
		Mode:          "numeric",
		Order:         d.Order,
		Inputs:        []string{"in/a.txt", "in/b.txt"},
		Outputs:       []string{"out/merged.txt"},
		OutputKeyword: d.OutputKeyword,
		Logging:       Logging{Level: "info", Dir: "logs"},
		Components:    d.Components,
	}
	cfg.Options.Source = json.RawMessage(`{
  "buf_size": 65536,
  "exclude_dir_names": [".git", "node_modules", "vendor"]
}`)
	cfg.Options.Sink = json.RawMessage(`{
  "atomic": false,
  "perm_file": 0,
  "perm_dir": 0,
  "buf_size": 65536
}`)
	return cfg
}

// MarshalYAML 将配置渲染为块风格 YAML，键顺序与 JSON 字段顺序一致。
func MarshalYAML(cfg Config) ([]byte, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return nil, err
	}
	// JSON 即 YAML 流风格；解析为节点后改为块风格输出。
	var doc yaml.Node
	if err := yaml.Unmarshal(b, &doc); err != nil {
		return nil, err
	}
	blockStyle(&doc)
	return yaml.Marshal(&doc)
}

func blockStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		blockStyle(c)
	}
}

// EnvTemplate 返回 .env 模板内容。
func EnvTemplate() string {
	var b strings.Builder
	b.WriteString("# linemerge .env 模板（由 --init-config 生成）\n")
	b.WriteString("# 优先级：CLI > ENV(.env) > 配置文件\n")
	b.WriteString("# 空值表示未设置。\n\n")

	b.WriteString("# 配置来源\n")
	b.WriteString(EnvPrefix + "CONFIG_FILE=\n\n")

	b.WriteString("# 运行参数覆盖\n")
	for _, k := range []string{"MODE", "ORDER", "INPUTS", "OUTPUTS", "OUTPUT_KEYWORD"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 日志与指标\n")
	for _, k := range []string{"LOG_LEVEL", "LOG_DIR", "METRICS_FILE"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	b.WriteString("\n# 组件选择与选项（原样 JSON）\n")
	for _, k := range []string{"COMPONENTS_SOURCE", "COMPONENTS_SINK", "OPTIONS_SOURCE_JSON", "OPTIONS_SINK_JSON"} {
		b.WriteString(EnvPrefix + k + "=\n")
	}
	return b.String()
}

// WriteInit 在 dir 下生成 linemerge.yaml 与 .env 模板；已存在的文件跳过，不覆盖。
// 返回实际写入的文件路径。
func WriteInit(dir string) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	y, err := MarshalYAML(DefaultTemplateConfig())
	if err != nil {
		return nil, err
	}
	var written []string
	for _, f := range []struct {
		name string
		data []byte
	}{
		{TemplateFile, y},
		{DotEnvFile, []byte(EnvTemplate())},
	} {
		p := filepath.Join(dir, f.name)
		ok, err := writeExclusive(p, f.data)
		if err != nil {
			return written, err
		}
		if ok {
			written = append(written, p)
		}
	}
	return written, nil
}

// writeExclusive 仅在文件不存在时写入；已存在返回 (false, nil)。
func writeExclusive(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return false, nil
		}
		return false, err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return false, err
	}
	return true, f.Close()
}
