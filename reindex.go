package kladov

import (
	"context"
	"time"

	"github.com/drpcorg/kladov/keys"
	"github.com/drpcorg/kladov/kv"
	"github.com/drpcorg/kladov/utils"
)

// Reindex rebuilds one index from object content in a single transaction,
// dropping stale entries. It returns the number of entries written.
func (db *DB) Reindex(ctx context.Context, sid uint64) (int, error) {
	ix, err := db.schema.Index(sid)
	if err != nil {
		return 0, err
	}
	label := sidLabel(sid)
	start := time.Now()
	ReindexCount.WithLabelValues(label).Inc()
	ctx = utils.WithDefaultArgs(ctx, "index", ix.String(), "process", "reindex")

	fail := func(reason string, err error) (int, error) {
		ReindexResults.WithLabelValues(label, reason).Inc()
		db.log.ErrorCtx(ctx, "reindex failed", "reason", reason, "err", err)
		return 0, err
	}

	tx, err := db.Begin()
	if err != nil {
		return fail("begin", err)
	}
	defer tx.Rollback()

	prefix := sidPrefix(sid)
	end := keys.PrefixEnd(prefix)
	before, err := kv.Checksum(tx.kv, prefix, end)
	if err != nil {
		return fail("checksum", err)
	}
	if err := tx.kv.RemoveRange(prefix, end); err != nil {
		return fail("clear", err)
	}

	objs, err := tx.All(ix.Type.Name)
	if err != nil {
		return fail("scan", err)
	}
	written := 0
	for id, err := range objs.All() {
		if err != nil {
			return fail("scan", err)
		}
		if err := ctx.Err(); err != nil {
			return fail("canceled", err)
		}
		entries, err := tx.indexEntries(id, ix)
		if err != nil {
			return fail("entries", err)
		}
		for _, e := range entries {
			if err := tx.putEntry(sid, e); err != nil {
				return fail("write", err)
			}
		}
		written += len(entries)
	}

	after, err := kv.Checksum(tx.kv, prefix, end)
	if err != nil {
		return fail("checksum", err)
	}
	if err := tx.Commit(); err != nil {
		return fail("commit", err)
	}
	result := "unchanged"
	if before != after {
		result = "repaired"
	}
	ReindexResults.WithLabelValues(label, result).Inc()
	ReindexDuration.WithLabelValues(label).Observe(time.Since(start).Seconds())
	db.log.InfoCtx(ctx, "reindex done", "entries", written, "result", result)
	return written, nil
}
