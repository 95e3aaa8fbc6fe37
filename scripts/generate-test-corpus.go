//go:build ignore

// Generates a synthetic mixed-content corpus for exercising recall
// against trees larger than the test fixtures.
//
// Usage:
//
//	go run scripts/generate-test-corpus.go -files 2000 -output /tmp/corpus
//	recall index /tmp/corpus
//	recall search "validate session token" /tmp/corpus
package main

import (
	"flag"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
)

var (
	numFiles  = flag.Int("files", 1000, "Number of files to generate")
	outputDir = flag.String("output", "/tmp/recall-corpus", "Output directory")
	seed      = flag.Int64("seed", 42, "Random seed, same seed gives the same corpus")
)

var pyTemplate = `"""%s helpers for the %s layer."""

import logging

logger = logging.getLogger(__name__)


class %sError(Exception):
    pass


def %s_%s(record, *, retries=3):
    """%s a %s record, retrying transient failures."""
    for attempt in range(retries):
        try:
            return _apply(record)
        except TimeoutError:
            logger.warning("%s_%s timed out, attempt %%d", attempt)
    raise %sError(record.id)


def _apply(record):
    if not record.valid():
        raise ValueError(record)
    return record.commit()
`

var goTemplate = `package %s

import (
	"context"
	"fmt"
)

// %s coordinates %s operations.
type %s struct {
	limit int
}

// %s applies one %s step and reports what it did.
func (c *%s) %s(ctx context.Context, key string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if key == "" {
		return "", fmt.Errorf("%s: empty key")
	}
	return key + "/done", nil
}
`

var mdTemplate = `# %s %s

How the %s layer handles %s.

## Behavior

Every %s request passes through validation before it reaches the
%s store. Failures surface as typed errors rather than panics.

## Operations

- %s a record and wait for the commit
- retry transient timeouts up to three times
- surface validation failures immediately

## Notes

The %s path is hot; keep allocations off it.
`

var txtTemplate = `%s runbook

when the %s queue backs up:
1. check the %s dashboard
2. drain with --limit 100
3. page the on-call if the backlog grows anyway
`

// Word pools; the same words appear across languages so cross-file
// queries have something to rank.
var (
	layers  = []string{"auth", "billing", "cache", "ingest", "queue", "search", "session", "token"}
	actions = []string{"commit", "drain", "encode", "fetch", "merge", "publish", "validate", "verify"}
	titles  = []string{"Guide", "Internals", "Overview", "Runbook"}
)

func main() {
	flag.Parse()
	rng := rand.New(rand.NewSource(*seed))

	// Mix: mostly code, some prose, a few binaries so the
	// metadata-only path gets exercised too.
	pyFiles := *numFiles * 45 / 100
	goFiles := *numFiles * 20 / 100
	mdFiles := *numFiles * 20 / 100
	txtFiles := *numFiles * 10 / 100
	binFiles := *numFiles - pyFiles - goFiles - mdFiles - txtFiles

	written := 0
	for i := 0; i < pyFiles; i++ {
		written += write(pythonFile(rng, i))
	}
	for i := 0; i < goFiles; i++ {
		written += write(goFile(rng, i))
	}
	for i := 0; i < mdFiles; i++ {
		written += write(markdownFile(rng, i))
	}
	for i := 0; i < txtFiles; i++ {
		written += write(textFile(rng, i))
	}
	for i := 0; i < binFiles; i++ {
		written += write(binaryFile(rng, i))
	}

	fmt.Printf("wrote %d files under %s\n", written, *outputDir)
}

func write(path string, content []byte) int {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "mkdir %s: %v\n", filepath.Dir(path), err)
		return 0
	}
	if err := os.WriteFile(path, content, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "write %s: %v\n", path, err)
		return 0
	}
	return 1
}

func pick(rng *rand.Rand, pool []string) string {
	return pool[rng.Intn(len(pool))]
}

func pythonFile(rng *rand.Rand, i int) (string, []byte) {
	layer := pick(rng, layers)
	action := pick(rng, actions)
	content := fmt.Sprintf(pyTemplate,
		action, layer,
		layer,
		action, layer, action, layer,
		action, layer, layer)
	return filepath.Join(*outputDir, "src", layer, fmt.Sprintf("%s_%d.py", action, i)), []byte(content)
}

func goFile(rng *rand.Rand, i int) (string, []byte) {
	layer := pick(rng, layers)
	action := pick(rng, actions)
	content := fmt.Sprintf(goTemplate,
		layer,
		layer, action, layer,
		action, layer, layer, action, action)
	return filepath.Join(*outputDir, "services", layer, fmt.Sprintf("%s_%d.go", action, i)), []byte(content)
}

func markdownFile(rng *rand.Rand, i int) (string, []byte) {
	layer := pick(rng, layers)
	action := pick(rng, actions)
	title := pick(rng, titles)
	content := fmt.Sprintf(mdTemplate,
		layer, title,
		layer, action,
		layer, layer,
		action,
		layer)
	return filepath.Join(*outputDir, "docs", fmt.Sprintf("%s-%s-%d.md", layer, action, i)), []byte(content)
}

func textFile(rng *rand.Rand, i int) (string, []byte) {
	layer := pick(rng, layers)
	content := fmt.Sprintf(txtTemplate, layer, layer, layer)
	return filepath.Join(*outputDir, "notes", fmt.Sprintf("%s-%d.txt", layer, i)), []byte(content)
}

// binaryFile emits a blob with a PNG magic so content sniffing treats it
// as binary.
func binaryFile(rng *rand.Rand, i int) (string, []byte) {
	blob := make([]byte, 4096)
	copy(blob, []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'})
	rng.Read(blob[8:])
	return filepath.Join(*outputDir, "assets", fmt.Sprintf("img_%d.png", i)), blob
}
