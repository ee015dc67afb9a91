package filesystem

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"linemerge/pkg/contract"
)

// Options: 最小必要选项。
type Options struct {
	// Atomic: 是否使用原子替换（同目录临时文件 + 关闭时 rename）。
	// 默认 false：构造时截断目标文件，此后直接追加。
	Atomic *bool `json:"atomic,omitempty"`
	// PermFile/PermDir: 可选权限；为 0 表示使用实现默认。
	PermFile os.FileMode `json:"perm_file,omitempty"`
	PermDir  os.FileMode `json:"perm_dir,omitempty"`
	// BufSize: 写缓冲区大小；<=0 使用实现默认。
	BufSize int `json:"buf_size,omitempty"`
}

// Sink 是基于常规文件的 LineSink。
type Sink struct {
	id      contract.SinkID
	dest    string
	tmpPath string // 仅原子模式
	f       *os.File
	bw      *bufio.Writer
	closed  bool
}

var _ contract.LineSink = (*Sink)(nil)

// Create 打开（或创建）输出文件并清空已有内容。
// 路径为目录、父目录无法创建或文件不可写时返回错误，调用方视为致命。
func Create(path string, opts *Options) (*Sink, error) {
	if strings.TrimSpace(path) == "" {
		return nil, contract.ErrPathInvalid
	}
	if opts == nil {
		opts = &Options{}
	}
	bsz := opts.BufSize
	if bsz <= 0 {
		bsz = 64 * 1024
	}
	pf := opts.PermFile
	if pf == 0 {
		pf = 0o644
	}
	pd := opts.PermDir
	if pd == 0 {
		pd = 0o755
	}
	atomic := opts.Atomic != nil && *opts.Atomic

	if st, err := os.Stat(path); err == nil && st.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", contract.ErrPathInvalid, path)
	} else if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, pd); err != nil {
		return nil, err
	}

	s := &Sink{id: contract.NormalizeSinkID(path), dest: path}
	if atomic {
		tmp, err := os.CreateTemp(dir, ".tmp-*")
		if err != nil {
			return nil, err
		}
		_ = os.Chmod(tmp.Name(), pf)
		s.f, s.tmpPath = tmp, tmp.Name()
	} else {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, pf)
		if err != nil {
			return nil, err
		}
		s.f = f
	}
	s.bw = bufio.NewWriterSize(s.f, bsz)
	return s, nil
}

func (s *Sink) ID() contract.SinkID { return s.id }

// Append 将 line 原样写到文件末尾；结束符由调用方提供。
func (s *Sink) Append(line string) error {
	if s.closed {
		return contract.ErrSinkClosed
	}
	if _, err := s.bw.WriteString(line); err != nil {
		s.abort()
		return fmt.Errorf("append %s: %w", s.id, err)
	}
	return nil
}

func (s *Sink) Closed() bool { return s.closed }

// Close 冲刷缓冲并释放句柄；原子模式下将临时文件替换到目标路径。
func (s *Sink) Close() error {
	if s.closed {
		return contract.ErrSinkClosed
	}
	if err := s.bw.Flush(); err != nil {
		s.abort()
		return fmt.Errorf("flush %s: %w", s.id, err)
	}
	s.closed = true
	if s.tmpPath == "" {
		return s.f.Close()
	}
	if err := s.f.Sync(); err != nil {
		_ = s.f.Close()
		_ = os.Remove(s.tmpPath)
		return err
	}
	if err := s.f.Close(); err != nil {
		_ = os.Remove(s.tmpPath)
		return err
	}
	// 平台特定的原子替换（或最佳努力）
	if err := osReplace(s.tmpPath, s.dest); err != nil {
		_ = os.Remove(s.tmpPath)
		return err
	}
	// 最佳努力：同步父目录，提升崩溃安全性
	_ = syncDir(filepath.Dir(s.dest))
	return nil
}

// abort 在写失败后关闭句柄并丢弃临时文件；目标文件保持已有内容。
func (s *Sink) abort() {
	s.closed = true
	_ = s.f.Close()
	if s.tmpPath != "" {
		_ = os.Remove(s.tmpPath)
	}
}
