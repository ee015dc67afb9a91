package merge

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"linemerge/pkg/contract"
	"linemerge/plugins/domain/numeric"
	fsreader "linemerge/plugins/reader/filesystem"
	fswriter "linemerge/plugins/writer/filesystem"
)

// 基准：k 个已排序文件，每个 n 行，合并到单个文件。
func BenchmarkRunFiles(b *testing.B) {
	for _, k := range []int{2, 16} {
		b.Run(fmt.Sprintf("sources=%d", k), func(b *testing.B) {
			dir := b.TempDir()
			const n = 5000
			paths := make([]string, k)
			for i := range paths {
				var sb strings.Builder
				for v := i; v < n*k; v += k {
					sb.WriteString(strconv.Itoa(v))
					sb.WriteByte('\n')
				}
				paths[i] = filepath.Join(dir, fmt.Sprintf("in%02d.txt", i))
				if err := os.WriteFile(paths[i], []byte(sb.String()), 0o644); err != nil {
					b.Fatal(err)
				}
			}
			out := filepath.Join(dir, "out.txt")
			b.ResetTimer()
			for i := 0; i < b.N; i++ {
				srcs := make([]contract.LineSource, 0, k)
				for _, p := range paths {
					s, err := fsreader.Open(p, contract.Ascending, nil)
					if err != nil {
						b.Fatal(err)
					}
					srcs = append(srcs, s)
				}
				w, err := fswriter.Create(out, nil)
				if err != nil {
					b.Fatal(err)
				}
				e, err := New(Components{Domain: numeric.New(), Sources: srcs, Sinks: []contract.LineSink{w}}, Settings{}, nil)
				if err != nil {
					b.Fatal(err)
				}
				if _, err := e.Run(context.Background()); err != nil {
					b.Fatal(err)
				}
			}
		})
	}
}
