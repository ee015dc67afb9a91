package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"linemerge/pkg/contract"
	"linemerge/pkg/registry"
)

// ErrInvalid 为其余配置错误（取值非法、组件未注册、ENV 格式错误）。
var ErrInvalid = errors.New("config: invalid")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// 错误信息使用 JSON 键名
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate 对最小必要边界做静态校验。
// mode/inputs/outputs 缺失分别映射到 contract.ErrModeMissing/ErrNoInputs/ErrNoOutputs，
// 其余返回包装 ErrInvalid 的错误。
func Validate(cfg Config) error {
	if err := validate.Struct(cfg); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) || len(verrs) == 0 {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
		return fieldError(verrs[0])
	}
	if name := effName(cfg.Components.Source, Defaults().Components.Source); registry.Source[name] == nil || registry.Expand[name] == nil {
		return fmt.Errorf("%w: source %q not registered", ErrInvalid, name)
	}
	if name := effName(cfg.Components.Sink, Defaults().Components.Sink); registry.Sink[name] == nil {
		return fmt.Errorf("%w: sink %q not registered", ErrInvalid, name)
	}
	return nil
}

func fieldError(fe validator.FieldError) error {
	switch fe.Field() {
	case "mode":
		if fe.Tag() == "required" {
			return contract.ErrModeMissing
		}
		return fmt.Errorf("%w: mode %q not supported", ErrInvalid, fe.Value())
	case "inputs":
		return contract.ErrNoInputs
	case "outputs":
		return contract.ErrNoOutputs
	}
	return fmt.Errorf("%w: %s failed %q (value %v)", ErrInvalid, fe.Namespace(), fe.Tag(), fe.Value())
}

func effName(got, def string) string {
	if got == "" {
		return def
	}
	return got
}
