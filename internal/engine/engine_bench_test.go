package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/recallkb/recall/internal/config"
)

// The synthetic corpus cycles topics and verbs so queries spread across
// documents instead of all landing on one.
var (
	benchTopics = []string{
		"auth", "billing", "cache", "queue", "search", "session", "token", "vector",
	}
	benchVerbs = []string{
		"create", "delete", "encode", "fetch", "merge", "parse", "render", "validate",
	}
)

func benchDocContent(i int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "def %s_%s_%d():\n", benchVerbs[i%len(benchVerbs)], benchTopics[i%len(benchTopics)], i)
	for line := 0; line < 12; line++ {
		verb := benchVerbs[(i+line)%len(benchVerbs)]
		noun := benchTopics[(i+line*3)%len(benchTopics)]
		fmt.Fprintf(&sb, "    %s_%s(record_%d)\n", verb, noun, line)
	}
	return sb.String()
}

func seedBenchCorpus(b *testing.B, root string, n int) {
	b.Helper()
	for i := 0; i < n; i++ {
		abs := filepath.Join(root, "src", fmt.Sprintf("pkg%02d", i%16), fmt.Sprintf("mod_%04d.py", i))
		if err := os.MkdirAll(filepath.Dir(abs), 0755); err != nil {
			b.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(abs, []byte(benchDocContent(i)), 0644); err != nil {
			b.Fatalf("write: %v", err)
		}
	}
}

// newBenchEngine opens an engine with production defaults; the data
// directory sits outside root so the corpus scan never sees it.
func newBenchEngine(b *testing.B, root, dataDir string) *Engine {
	b.Helper()
	cfg := config.NewConfig()
	cfg.Paths.DataDir = dataDir
	eng, err := New(cfg, root, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		b.Fatalf("new engine: %v", err)
	}
	return eng
}

func benchQueries() []string {
	return []string{
		"validate auth token",
		"render billing session",
		"merge cache record",
		"parse queue payload",
		"fetch vector search",
	}
}

// BenchmarkEngine_IndexAll measures a cold full pass: scan, model build,
// every document encoded and stored, snapshot persisted.
func BenchmarkEngine_IndexAll(b *testing.B) {
	scales := []int{50, 200, 1000}

	for _, scale := range scales {
		b.Run(fmt.Sprintf("files_%d", scale), func(b *testing.B) {
			root := b.TempDir()
			seedBenchCorpus(b, root, scale)
			ctx := context.Background()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				b.StopTimer()
				eng := newBenchEngine(b, root, filepath.Join(b.TempDir(), "data"))
				b.StartTimer()

				if _, err := eng.IndexAll(ctx, false, nil); err != nil {
					b.Fatalf("index failed: %v", err)
				}

				b.StopTimer()
				_ = eng.Close()
				b.StartTimer()
			}

			b.ReportMetric(float64(scale*b.N)/b.Elapsed().Seconds(), "files/sec")
		})
	}
}

// BenchmarkEngine_IndexAll_Unchanged measures the revalidation pass over
// an already converged corpus, one read and hash per file.
func BenchmarkEngine_IndexAll_Unchanged(b *testing.B) {
	root := b.TempDir()
	seedBenchCorpus(b, root, 200)
	eng := newBenchEngine(b, root, filepath.Join(b.TempDir(), "data"))
	defer func() { _ = eng.Close() }()

	ctx := context.Background()
	if _, err := eng.IndexAll(ctx, false, nil); err != nil {
		b.Fatalf("seed pass failed: %v", err)
	}

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		report, err := eng.IndexAll(ctx, false, nil)
		if err != nil {
			b.Fatalf("pass failed: %v", err)
		}
		if report.Indexed != 0 {
			b.Fatalf("expected a no-op pass, indexed %d", report.Indexed)
		}
	}
}

// BenchmarkEngine_IndexNow measures the incremental path a debounced
// change event takes: one modified file through apply.
func BenchmarkEngine_IndexNow(b *testing.B) {
	root := b.TempDir()
	seedBenchCorpus(b, root, 100)
	eng := newBenchEngine(b, root, filepath.Join(b.TempDir(), "data"))
	defer func() { _ = eng.Close() }()

	ctx := context.Background()
	if _, err := eng.IndexAll(ctx, false, nil); err != nil {
		b.Fatalf("seed pass failed: %v", err)
	}
	target := filepath.Join(root, "src", "pkg00", "mod_0000.py")

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		b.StopTimer()
		content := fmt.Sprintf("def touched_%d():\n    validate_token(record_%d)\n", i, i)
		if err := os.WriteFile(target, []byte(content), 0644); err != nil {
			b.Fatalf("write: %v", err)
		}
		b.StartTimer()

		if err := eng.IndexNow(ctx, target); err != nil {
			b.Fatalf("index now failed: %v", err)
		}
	}
}

func BenchmarkEngine_Search(b *testing.B) {
	scales := []int{100, 1000}

	for _, scale := range scales {
		b.Run(fmt.Sprintf("docs_%d", scale), func(b *testing.B) {
			root := b.TempDir()
			seedBenchCorpus(b, root, scale)
			eng := newBenchEngine(b, root, filepath.Join(b.TempDir(), "data"))
			defer func() { _ = eng.Close() }()

			ctx := context.Background()
			if _, err := eng.IndexAll(ctx, false, nil); err != nil {
				b.Fatalf("index failed: %v", err)
			}
			queries := benchQueries()

			b.ResetTimer()
			b.ReportAllocs()

			for i := 0; i < b.N; i++ {
				if _, err := eng.Search(ctx, queries[i%len(queries)], 10, nil); err != nil {
					b.Fatalf("search failed: %v", err)
				}
			}
		})
	}
}

func BenchmarkEngine_Search_Parallel(b *testing.B) {
	root := b.TempDir()
	seedBenchCorpus(b, root, 1000)
	eng := newBenchEngine(b, root, filepath.Join(b.TempDir(), "data"))
	defer func() { _ = eng.Close() }()

	ctx := context.Background()
	if _, err := eng.IndexAll(ctx, false, nil); err != nil {
		b.Fatalf("index failed: %v", err)
	}
	queries := benchQueries()

	b.ResetTimer()
	b.ReportAllocs()

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			if _, err := eng.Search(ctx, queries[i%len(queries)], 10, nil); err != nil {
				b.Fatalf("search failed: %v", err)
			}
			i++
		}
	})
}

// BenchmarkEngine_Retrieve measures search plus context assembly under a
// character budget.
func BenchmarkEngine_Retrieve(b *testing.B) {
	root := b.TempDir()
	seedBenchCorpus(b, root, 500)
	eng := newBenchEngine(b, root, filepath.Join(b.TempDir(), "data"))
	defer func() { _ = eng.Close() }()

	ctx := context.Background()
	if _, err := eng.IndexAll(ctx, false, nil); err != nil {
		b.Fatalf("index failed: %v", err)
	}
	queries := benchQueries()

	b.ResetTimer()
	b.ReportAllocs()

	for i := 0; i < b.N; i++ {
		if _, err := eng.Retrieve(ctx, queries[i%len(queries)], 5, 4000); err != nil {
			b.Fatalf("retrieve failed: %v", err)
		}
	}
}
