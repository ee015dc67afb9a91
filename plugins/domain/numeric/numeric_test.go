package numeric

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"linemerge/pkg/contract"
)

func TestValid(t *testing.T) {
	d := New()
	cases := []struct {
		in   string
		want bool
	}{
		{"7", true},
		{"-12", true},
		{"+5", true},
		{"007", true},
		{"9223372036854775807", true},
		{"9223372036854775808", false},
		{" 5", false},
		{"5 ", false},
		{"1 2", false},
		{"abc", false},
		{"1.5", false},
		{"0x10", false},
		{"1_000", false},
		{"", false},
		{"-", false},
	}
	for _, tt := range cases {
		assert.Equal(t, tt.want, d.Valid(tt.in), "%q", tt.in)
	}
}

func TestPick(t *testing.T) {
	d := New()
	tests := []struct {
		name  string
		cands []string
		dir   contract.Direction
		want  string
		ok    bool
	}{
		{"升序取最小", []string{"3", "1", "5"}, contract.Ascending, "1", true},
		{"降序取最大", []string{"3", "1", "5"}, contract.Descending, "5", true},
		{"按数值而非文本", []string{"10", "9"}, contract.Ascending, "9", true},
		{"负数", []string{"-3", "2", "-10"}, contract.Ascending, "-10", true},
		{"单元素降序退化为首元素", []string{"4"}, contract.Descending, "4", true},
		{"规范化输出", []string{"+7", "007"}, contract.Ascending, "7", true},
		{"空集合", nil, contract.Ascending, "", false},
		{"忽略无法解析者", []string{"x", "2"}, contract.Descending, "2", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := d.Pick(tt.cands, tt.dir)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPickDoesNotReorderInput(t *testing.T) {
	in := []string{"3", "1", "2"}
	New().Pick(in, contract.Ascending)
	assert.Equal(t, []string{"3", "1", "2"}, in)
}

func TestSame(t *testing.T) {
	d := New()
	assert.True(t, d.Same("7", "7"))
	assert.True(t, d.Same("007", "7"))
	assert.True(t, d.Same("+7", "7"))
	assert.False(t, d.Same("7", "8"))
	assert.False(t, d.Same("x", "x"))
	assert.Equal(t, "numeric", d.Name())
}
