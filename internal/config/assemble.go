package config

import (
	"fmt"
	"strconv"

	"linemerge/internal/diag"
	"linemerge/internal/merge"
	"linemerge/pkg/contract"
	"linemerge/pkg/registry"
)

// Assemble 校验配置并构造 merge.Components 与 merge.Settings。
// 严格 Options 解析在 registry（工厂）层进行；此处只传 raw JSON。
// - 输入：目录先展开；无法打开的输入记 warn 并跳过；
// - 输出：任一无法创建即失败（包装 ErrSinkOpen），已打开的源与输出被关闭。
func Assemble(cfg Config, logger *diag.Logger) (merge.Components, merge.Settings, error) {
	if err := Validate(cfg); err != nil {
		return merge.Components{}, merge.Settings{}, err
	}
	dir, ok := contract.ParseDirection(cfg.Order)
	if !ok {
		return merge.Components{}, merge.Settings{}, fmt.Errorf("%w: order %q", ErrInvalid, cfg.Order)
	}

	d := Defaults()
	srcName := effName(cfg.Components.Source, d.Components.Source)
	sinkName := effName(cfg.Components.Sink, d.Components.Sink)
	newSource := registry.Source[srcName]
	expand := registry.Expand[srcName]
	newSink := registry.Sink[sinkName]

	comp := merge.Components{Domain: registry.Domain[cfg.Mode]()}

	for _, root := range cfg.Inputs {
		paths, err := expand(cfg.Options.Source, root)
		if err != nil {
			logger.WarnSource("source", string(diag.Classify(err)), "input skipped: "+err.Error(), root)
			diag.IncError("source", string(diag.Classify(err)))
			diag.IncSourceDropped()
			continue
		}
		for _, p := range paths {
			src, err := newSource(cfg.Options.Source, p, dir)
			if err != nil {
				logger.WarnSource("source", string(diag.Classify(err)), "input skipped: "+err.Error(), p)
				diag.IncError("source", string(diag.Classify(err)))
				diag.IncSourceDropped()
				continue
			}
			comp.Sources = append(comp.Sources, src)
		}
	}
	if len(comp.Sources) == 0 {
		logger.Info("config", "no readable input, outputs will be empty", map[string]string{"inputs": strconv.Itoa(len(cfg.Inputs))})
	}

	for _, p := range cfg.Outputs {
		snk, err := newSink(cfg.Options.Sink, p)
		if err != nil {
			closeAll(comp)
			return merge.Components{}, merge.Settings{}, fmt.Errorf("%w: %s: %w", contract.ErrSinkOpen, p, err)
		}
		comp.Sinks = append(comp.Sinks, snk)
	}

	return comp, merge.Settings{Direction: dir}, nil
}

func closeAll(comp merge.Components) {
	for _, s := range comp.Sources {
		_ = s.Close()
	}
	for _, s := range comp.Sinks {
		_ = s.Close()
	}
}
