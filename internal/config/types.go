package config

import (
	"encoding/json"
)

// Config: 运行期只读配置（一次解析，运行期不变）。
// JSON/YAML 使用 snake_case；未知字段在解析期失败。
type Config struct {
	// Mode: 值域（numeric|lexical），无默认，必须由文件/ENV/CLI 提供。
	Mode string `json:"mode" validate:"required,oneof=numeric lexical"`
	// Order: asc|desc（亦接受 ascending|descending）；空为 asc。
	Order   string   `json:"order" validate:"omitempty,oneof=asc ascending desc descending"`
	Inputs  []string `json:"inputs" validate:"required,min=1,dive,required"`
	Outputs []string `json:"outputs" validate:"required,min=1,dive,required"`
	// OutputKeyword: 位置参数中包含该子串的视为输出路径。
	OutputKeyword string `json:"output_keyword"`

	Logging Logging `json:"logging"`
	Metrics Metrics `json:"metrics"`

	// 组件名选择（空则使用默认名）。
	Components Components `json:"components"`

	// 各组件 Options 子树，原样 JSON 传入工厂。
	Options Options `json:"options"`
}

// Logging: 日志等级与目录（"-" 表示 stderr）。
type Logging struct {
	Level string `json:"level" validate:"omitempty,oneof=debug info warn error"`
	Dir   string `json:"dir"`
}

// Metrics: 运行结束时将指标写为 Prometheus 文本格式；空表示不写。
type Metrics struct {
	File string `json:"file"`
}

// Components: 组件名选择（注册表中的实现名）。
type Components struct {
	Source string `json:"source"`
	Sink   string `json:"sink"`
}

// Options: 各组件的原样 JSON Options。
type Options struct {
	Source json.RawMessage `json:"source"`
	Sink   json.RawMessage `json:"sink"`
}
