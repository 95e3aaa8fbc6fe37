package engine

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	rcerrors "github.com/recallkb/recall/internal/errors"
	"github.com/recallkb/recall/internal/feature"
	"github.com/recallkb/recall/internal/store"
	"github.com/recallkb/recall/internal/watch"
)

// binarySniffLen is how many leading bytes are checked for a NUL byte when
// classifying content as binary.
const binarySniffLen = 512

// applyOutcome says what one event did to the stores.
type applyOutcome int

const (
	outcomeSkipped applyOutcome = iota
	outcomeIndexed
	outcomeUnchanged
	outcomeRemoved
	outcomeFailed
)

// applyEvent is the one code path that applies a change to the stores:
// watcher events, synthesized full-pass events, and IndexNow all land
// here. Callers hold writeMu. Per-event errors are counted and logged,
// never fatal to the caller's loop.
func (e *Engine) applyEvent(ctx context.Context, ev watch.ChangeEvent) (applyOutcome, error) {
	e.counters.processed.Add(1)

	var out applyOutcome
	var err error
	switch ev.Kind {
	case watch.Deleted:
		// A deletion cannot be statted, so file and directory deletions
		// arrive indistinguishable; only the ignore patterns filter here
		// and the store resolves what was actually indexed underneath.
		if e.policy.Ignores(ev.Path) {
			return outcomeSkipped, nil
		}
		out, err = e.removeDocument(ctx, ev.Path)
	case watch.Created, watch.Modified:
		if !e.policy.AllowsFile(ev.Path) {
			return outcomeSkipped, nil
		}
		out, err = e.indexDocument(ctx, ev.Path)
	default:
		return outcomeSkipped, nil
	}

	if err != nil {
		e.counters.errors.Add(1)
		e.log.Warn("event_failed",
			slog.String("kind", ev.Kind.String()),
			slog.String("path", ev.Path),
			slog.String("error", err.Error()))
	}
	return out, err
}

// indexDocument reads, stores, and encodes one document. The hash
// short-circuit makes re-applying the same content a no-op, so replayed
// and synthesized events are harmless.
func (e *Engine) indexDocument(ctx context.Context, id string) (applyOutcome, error) {
	abs := filepath.Join(e.root, filepath.FromSlash(id))

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return outcomeFailed, rcerrors.New(rcerrors.ErrCodeFileVanished,
				fmt.Sprintf("file vanished before read: %s", id), err)
		}
		return outcomeFailed, rcerrors.IOError(fmt.Sprintf("failed to stat %s", id), err)
	}
	if !e.policy.WithinSizeLimit(info.Size()) {
		e.log.Debug("document_skipped_oversize",
			slog.String("path", id), slog.Int64("size", info.Size()))
		return outcomeSkipped, nil
	}

	content, err := os.ReadFile(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return outcomeFailed, rcerrors.New(rcerrors.ErrCodeFileVanished,
				fmt.Sprintf("file vanished before read: %s", id), err)
		}
		return outcomeFailed, rcerrors.IOError(fmt.Sprintf("failed to read %s", id), err)
	}

	hash := hashContent(content)

	prev, err := e.docs.GetInfo(ctx, id)
	if err != nil {
		return outcomeFailed, err
	}
	if prev != nil && prev.ContentHash == hash {
		// Same bytes as last time. Binary records never have a vector;
		// text records are only current if the vector survived (a model
		// rebuild clears the index, which re-opens this gate).
		if prev.MediaType == feature.MediaTypeBinary || e.vectors.Contains(id) {
			e.log.Debug("document_unchanged", slog.String("path", id))
			return outcomeUnchanged, nil
		}
	}

	now := time.Now()
	if looksBinary(content) {
		rec := &store.DocumentRecord{
			ID:              id,
			Path:            abs,
			ContentHash:     hash,
			Size:            int64(len(content)),
			MediaType:       feature.MediaTypeBinary,
			SourceTimestamp: info.ModTime(),
			IndexedAt:       now,
		}
		if _, err := e.docs.Upsert(ctx, rec); err != nil {
			return outcomeFailed, rcerrors.New(rcerrors.ErrCodeIndexFailed,
				fmt.Sprintf("failed to store %s", id), err)
		}
		// A file that used to be text must not keep matching old content.
		if err := e.vectors.Remove(id); err != nil {
			return outcomeFailed, err
		}
		if err := e.keyword.Remove(ctx, id); err != nil {
			return outcomeFailed, err
		}
		e.counters.indexed.Add(1)
		e.log.Info("document_stored_metadata_only",
			slog.String("path", id), slog.Int64("size", rec.Size))
		return outcomeIndexed, rcerrors.UnsupportedContent(id)
	}

	mediaType := feature.DetectMediaType(id)
	rec := &store.DocumentRecord{
		ID:              id,
		Path:            abs,
		Content:         content,
		ContentHash:     hash,
		Size:            int64(len(content)),
		MediaType:       mediaType,
		SourceTimestamp: info.ModTime(),
		IndexedAt:       now,
	}
	if _, err := e.docs.Upsert(ctx, rec); err != nil {
		return outcomeFailed, rcerrors.New(rcerrors.ErrCodeIndexFailed,
			fmt.Sprintf("failed to store %s", id), err)
	}

	enc := e.encoder()
	if enc == nil {
		return outcomeFailed, rcerrors.NotInitialized("no embedding model built; run a full index first")
	}
	vector, err := enc.Encode(content, id)
	if err != nil {
		return outcomeFailed, rcerrors.New(rcerrors.ErrCodeEncodeFailed,
			fmt.Sprintf("failed to encode %s", id), err)
	}
	if err := e.vectors.Put(id, vector, store.Meta{
		Path:      id,
		MediaType: mediaType,
		Size:      rec.Size,
	}); err != nil {
		return outcomeFailed, rcerrors.New(rcerrors.ErrCodeIndexFailed,
			fmt.Sprintf("failed to store vector for %s", id), err)
	}
	if err := e.keyword.Index(ctx, id, content); err != nil {
		return outcomeFailed, rcerrors.New(rcerrors.ErrCodeIndexFailed,
			fmt.Sprintf("failed to index keywords for %s", id), err)
	}

	e.counters.indexed.Add(1)
	e.log.Info("document_indexed",
		slog.String("path", id),
		slog.Int64("size", rec.Size),
		slog.String("media_type", string(mediaType)))
	return outcomeIndexed, nil
}

// removeDocument removes a document, or a whole directory's worth when id
// was a directory. Removal order is vector, keyword, record: an
// interrupted removal leaves at worst an unsearchable record, never a
// vector pointing at nothing.
func (e *Engine) removeDocument(ctx context.Context, id string) (applyOutcome, error) {
	var ids []string
	prev, err := e.docs.GetInfo(ctx, id)
	if err != nil {
		return outcomeFailed, err
	}
	if prev != nil {
		ids = append(ids, id)
	}

	nested, err := e.docs.IDsWithPrefix(ctx, id+"/")
	if err != nil {
		return outcomeFailed, err
	}
	ids = append(ids, nested...)
	if len(ids) == 0 {
		return outcomeSkipped, nil
	}

	for _, docID := range ids {
		if err := e.vectors.Remove(docID); err != nil {
			return outcomeFailed, err
		}
		if err := e.keyword.Remove(ctx, docID); err != nil {
			return outcomeFailed, err
		}
		if err := e.docs.Remove(ctx, docID); err != nil {
			return outcomeFailed, rcerrors.New(rcerrors.ErrCodeIndexFailed,
				fmt.Sprintf("failed to remove %s", docID), err)
		}
		e.counters.removed.Add(1)
		e.log.Info("document_removed", slog.String("path", docID))
	}
	return outcomeRemoved, nil
}

// looksBinary reports whether content has a NUL byte in its first 512
// bytes, the same sniff file(1) and git use.
func looksBinary(content []byte) bool {
	n := len(content)
	if n > binarySniffLen {
		n = binarySniffLen
	}
	return bytes.IndexByte(content[:n], 0) >= 0
}

// hashContent returns the lowercase SHA-256 hex of content.
func hashContent(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}
