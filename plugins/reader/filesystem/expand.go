package filesystem

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Expand 将单个输入根展开为文件路径列表。
// - 非目录根原样返回（是否可读由 Open 判定）；
// - 目录按字典序递归：先子目录、后文件；跳过 ExcludeDirNames；
// - 目录内仅保留常规文件与指向常规文件的符号链接，目录符号链接不跟随。
func Expand(root string, opts *Options) ([]string, error) {
	info, err := os.Lstat(root)
	if err != nil || !info.IsDir() {
		return []string{root}, nil
	}
	ex := make(map[string]struct{})
	if opts != nil {
		for _, name := range opts.ExcludeDirNames {
			if name == "" {
				continue
			}
			ex[strings.ToLower(name)] = struct{}{}
		}
	}
	var out []string
	if err := walkDir(root, ex, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func walkDir(dir string, ex map[string]struct{}, out *[]string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, skip := ex[strings.ToLower(e.Name())]; skip {
			continue
		}
		if err := walkDir(filepath.Join(dir, e.Name()), ex, out); err != nil {
			return err
		}
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		p := filepath.Join(dir, e.Name())
		if e.Type()&os.ModeSymlink != 0 {
			t, err := os.Stat(p)
			if err != nil || !t.Mode().IsRegular() {
				continue
			}
		} else if !e.Type().IsRegular() {
			continue
		}
		*out = append(*out, p)
	}
	return nil
}
