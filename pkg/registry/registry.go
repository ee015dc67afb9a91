package registry

import (
	"bytes"
	"encoding/json"

	"linemerge/pkg/contract"
	"linemerge/plugins/domain/lexical"
	"linemerge/plugins/domain/numeric"
	rfs "linemerge/plugins/reader/filesystem"
	wfs "linemerge/plugins/writer/filesystem"
)

// strictUnmarshal: 使用 DisallowUnknownFields 严格解码，拒绝未知字段。
func strictUnmarshal(raw json.RawMessage, v any) error {
	if len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		// 保持零值（默认选项）
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// NewDomain 工厂签名：值域无选项。
type NewDomain func() contract.Domain

// NewSource 工厂签名：接收原样 JSON Options、输入路径与读取方向。
type NewSource func(raw json.RawMessage, path string, dir contract.Direction) (contract.LineSource, error)

// NewSink 工厂签名：接收原样 JSON Options 与输出路径。
type NewSink func(raw json.RawMessage, path string) (contract.LineSink, error)

// ExpandInput 工厂签名：将一个输入路径展开为若干文件路径。
type ExpandInput func(raw json.RawMessage, root string) ([]string, error)

// Domain 值域注册表（显式、零反射）。
var Domain = map[string]NewDomain{
	// numeric: 有符号整数，按数值比较
	"numeric": func() contract.Domain { return numeric.New() },
	// lexical: 非数字、无空白的记号，按首字符比较
	"lexical": func() contract.Domain { return lexical.New() },
}

// Source 工厂注册表。
var Source = map[string]NewSource{
	// fs: 常规文件，按方向分块读取
	"fs": func(raw json.RawMessage, path string, dir contract.Direction) (contract.LineSource, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.Open(path, dir, &opts)
	},
}

// Expand 输入展开注册表。
var Expand = map[string]ExpandInput{
	"fs": func(raw json.RawMessage, root string) ([]string, error) {
		var opts rfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return rfs.Expand(root, &opts)
	},
}

// Sink 工厂注册表。
var Sink = map[string]NewSink{
	// fs: 文件系统输出（截断后追加/原子替换可配置）
	"fs": func(raw json.RawMessage, path string) (contract.LineSink, error) {
		var opts wfs.Options
		if err := strictUnmarshal(raw, &opts); err != nil {
			return nil, err
		}
		return wfs.Create(path, &opts)
	},
}
