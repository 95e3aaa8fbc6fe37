package recall

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestZZDebugWatch(t *testing.T) {
	root := newCorpus(t)
	ctx := context.Background()

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	ix, err := Open(root, WithLogger(logger))
	require.NoError(t, err)
	defer func() { _ = ix.Close() }()

	require.NoError(t, ix.Watch(ctx))
	writeFile(t, root, "notes/new.md", "# Login notes\n\nThe login button renders the billing guide.\n")
	writeFile(t, root, "auth/extra.py", "def extra_login():\n    return render(\"login\")\n")

	time.Sleep(3 * time.Second)
	results, err := ix.Search(ctx, "login", 10)
	t.Logf("search err=%v", err)
	for _, r := range results {
		t.Logf("result: %s score=%f", r.DocID, r.Score)
	}
	t.Logf("stats: %+v", ix.Stats())
}
