package registry

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"linemerge/pkg/contract"
)

// TestStrictUnmarshal 验证严格解码逻辑。
func TestStrictUnmarshal(t *testing.T) {
	type opt struct {
		A int `json:"a"`
	}
	var o opt
	require.NoError(t, strictUnmarshal(nil, &o))
	assert.Zero(t, o.A)
	require.NoError(t, strictUnmarshal(json.RawMessage(`null`), &o))
	require.NoError(t, strictUnmarshal(json.RawMessage(`{"a":1}`), &o))
	assert.Equal(t, 1, o.A)
	assert.Error(t, strictUnmarshal(json.RawMessage(`{"a":1,"b":2}`), &o), "未知字段应报错")
}

func TestDomains(t *testing.T) {
	for name, f := range Domain {
		d := f()
		require.NotNil(t, d, name)
		assert.Equal(t, name, d.Name())
	}
	_, ok := Domain["float"]
	assert.False(t, ok)
}

// TestFactories 遍历注册表入口。
func TestFactories(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "in.txt")
	require.NoError(t, os.WriteFile(in, []byte("1\n2\n"), 0o644))

	t.Run("source", func(t *testing.T) {
		src, err := Source["fs"](json.RawMessage(`{"buf_size":2}`), in, contract.Descending)
		require.NoError(t, err)
		line, err := src.Read()
		require.NoError(t, err)
		assert.Equal(t, "2", line)
		require.NoError(t, src.Close())

		_, err = Source["fs"](json.RawMessage(`{"x":1}`), in, contract.Ascending)
		assert.Error(t, err, "source 未对未知字段报错")
		_, err = Source["fs"](nil, filepath.Join(dir, "missing"), contract.Ascending)
		assert.Error(t, err)
	})
	t.Run("expand", func(t *testing.T) {
		paths, err := Expand["fs"](nil, dir)
		require.NoError(t, err)
		assert.Equal(t, []string{in}, paths)
		_, err = Expand["fs"](json.RawMessage(`{"x":1}`), dir)
		assert.Error(t, err)
	})
	t.Run("sink", func(t *testing.T) {
		out := filepath.Join(dir, "out", "o.txt")
		snk, err := Sink["fs"](json.RawMessage(`{"atomic":true}`), out)
		require.NoError(t, err)
		require.NoError(t, snk.Append("7\n"))
		require.NoError(t, snk.Close())
		b, err := os.ReadFile(out)
		require.NoError(t, err)
		assert.Equal(t, "7\n", string(b))

		_, err = Sink["fs"](json.RawMessage(`{"x":1}`), out)
		assert.Error(t, err, "sink 未对未知字段报错")
	})
}
