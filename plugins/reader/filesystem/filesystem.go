package filesystem

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"linemerge/pkg/contract"
)

// Options 为文件系统 LineSource 的可选配置（最小必要）。
type Options struct {
	// BufSize 为读窗口大小（字节）。默认 64KiB。
	BufSize int `json:"buf_size"`
	// ExcludeDirNames: 展开目录输入时跳过这些目录名（基名完全匹配，不区分大小写）。
	// 仅影响目录递归，不影响单文件输入。
	ExcludeDirNames []string `json:"exclude_dir_names"`
}

const defaultBuf = 64 * 1024

// Source 是基于常规文件的 LineSource。
// 读取经由一个固定大小的窗口（ReadAt），正向窗口自游标向后展开，反向窗口以游标为右端向前展开。
// 游标语义：正向为下一个待读字节的偏移；反向为尚未读取的字节数（下一个待读字节位于 cursor-1）。
type Source struct {
	id   contract.SourceID
	f    *os.File
	size int64
	dir  contract.Direction

	cursor   int64
	win      []byte
	winStart int64
	winLen   int

	buffer string
	hasBuf bool
	closed bool
}

var _ contract.LineSource = (*Source)(nil)

// Open 按方向打开一个输入文件。
// 目录、非常规文件与不可读路径返回错误；调用方据此跳过该源。
func Open(path string, dir contract.Direction, opts *Options) (*Source, error) {
	if strings.TrimSpace(path) == "" {
		return nil, contract.ErrPathInvalid
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !info.Mode().IsRegular() {
		return nil, fmt.Errorf("%w: %s is not a regular file", contract.ErrPathInvalid, path)
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	bsz := defaultBuf
	if opts != nil && opts.BufSize > 0 {
		bsz = opts.BufSize
	}
	s := &Source{
		id:   contract.NormalizeSourceID(path),
		f:    f,
		size: info.Size(),
		dir:  dir,
		win:  make([]byte, bsz),
	}
	if dir == contract.Descending {
		s.cursor = s.size
	}
	return s, nil
}

func (s *Source) ID() contract.SourceID { return s.id }

// Read 读取下一行（含结束符一并消费），去除其中的 \r 与 \n 后缓存并返回。
func (s *Source) Read() (string, error) {
	if s.closed {
		return "", contract.ErrSourceClosed
	}
	var (
		raw []byte
		err error
	)
	if s.dir == contract.Descending {
		raw, err = s.readBackward()
	} else {
		raw, err = s.readForward()
	}
	if err != nil {
		_ = s.Close()
		return "", fmt.Errorf("read %s: %w", s.id, err)
	}
	line := stripTerminators(raw)
	s.buffer, s.hasBuf = line, true
	return line, nil
}

func (s *Source) readForward() ([]byte, error) {
	var line []byte
	for s.cursor < s.size {
		if err := s.fill(s.cursor); err != nil {
			return nil, err
		}
		chunk := s.win[s.cursor-s.winStart : s.winLen]
		if i := bytes.IndexByte(chunk, '\n'); i >= 0 {
			line = append(line, chunk[:i+1]...)
			s.cursor += int64(i + 1)
			break
		}
		line = append(line, chunk...)
		s.cursor += int64(len(chunk))
	}
	return line, nil
}

// readBackward 自尾向头消费字节：先吃掉紧邻游标、终结本行的 \n（若有），
// 再消费本行内容直到前一个 \n（不消费）或偏移 0。
// 片段按消费顺序（自尾向头）收集，最后翻转为文件原顺序。
func (s *Source) readBackward() ([]byte, error) {
	var parts [][]byte
	if s.cursor > 0 {
		if err := s.fill(s.cursor - 1); err != nil {
			return nil, err
		}
		if s.win[s.cursor-1-s.winStart] == '\n' {
			parts = append(parts, []byte{'\n'})
			s.cursor--
		}
	}
	for s.cursor > 0 {
		if err := s.fill(s.cursor - 1); err != nil {
			return nil, err
		}
		chunk := s.win[:s.cursor-s.winStart]
		if i := bytes.LastIndexByte(chunk, '\n'); i >= 0 {
			parts = append(parts, slices.Clone(chunk[i+1:]))
			s.cursor -= int64(len(chunk) - i - 1)
			break
		}
		parts = append(parts, slices.Clone(chunk))
		s.cursor -= int64(len(chunk))
	}
	slices.Reverse(parts)
	return bytes.Join(parts, nil), nil
}

// fill 确保偏移 off 落在窗口内。
func (s *Source) fill(off int64) error {
	if off >= s.winStart && off < s.winStart+int64(s.winLen) {
		return nil
	}
	start := off
	if s.dir == contract.Descending {
		start = off + 1 - int64(len(s.win))
		if start < 0 {
			start = 0
		}
	}
	n := int64(len(s.win))
	if rem := s.size - start; rem < n {
		n = rem
	}
	got, err := s.f.ReadAt(s.win[:n], start)
	if int64(got) < n {
		if err == nil || errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return err
	}
	s.winStart, s.winLen = start, got
	return nil
}

// Ended: 正向游标到达文件大小，反向游标到达 0。
func (s *Source) Ended() bool {
	if s.dir == contract.Descending {
		return s.cursor <= 0
	}
	return s.cursor >= s.size
}

func (s *Source) Closed() bool { return s.closed }

// Buffer 返回最近缓存的行；源已结束或已关闭时读后即清，避免调用方反复取到同一陈旧值。
func (s *Source) Buffer() (string, bool) {
	v, ok := s.buffer, s.hasBuf
	if s.Ended() || s.closed {
		s.buffer, s.hasBuf = "", false
	}
	return v, ok
}

// Close 释放文件句柄；之后缓冲永久为空。
func (s *Source) Close() error {
	if s.closed {
		return contract.ErrSourceClosed
	}
	s.closed = true
	s.buffer, s.hasBuf = "", false
	s.win = nil
	return s.f.Close()
}

func stripTerminators(b []byte) string {
	if bytes.IndexByte(b, '\r') < 0 && bytes.IndexByte(b, '\n') < 0 {
		return string(b)
	}
	out := make([]byte, 0, len(b))
	for _, c := range b {
		if c != '\r' && c != '\n' {
			out = append(out, c)
		}
	}
	return string(out)
}
