package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/snipswap/snipswap-dex/internal/domain"
)

// archiveBatchSize bounds how many trades are pulled from the store per page.
const archiveBatchSize = 500

// Archiver exports settled trades to object storage as JSONL, one object per
// pair per archival run. Deletion of archived rows from the primary store is
// intentionally not performed here; that is a separate, explicit step to be
// executed after the archive has been verified.
type Archiver struct {
	blobs  domain.BlobStore
	pairs  domain.PairStore
	trades domain.TradeStore
	audit  domain.AuditStore
	logger *slog.Logger
}

// NewArchiver creates an Archiver.
func NewArchiver(
	blobs domain.BlobStore,
	pairs domain.PairStore,
	trades domain.TradeStore,
	audit domain.AuditStore,
	logger *slog.Logger,
) *Archiver {
	return &Archiver{
		blobs:  blobs,
		pairs:  pairs,
		trades: trades,
		audit:  audit,
		logger: logger.With(slog.String("component", "archiver")),
	}
}

// ArchiveSettled exports all settled trades executed before the cutoff,
// across every known pair, and returns the total number of trades archived.
// Each pair's export is independent: a failure on one pair is logged and the
// run continues with the rest.
func (a *Archiver) ArchiveSettled(ctx context.Context, before time.Time) (int64, error) {
	pairs, err := a.pairs.List(ctx, false)
	if err != nil {
		return 0, fmt.Errorf("s3blob: archive list pairs: %w", err)
	}

	var total int64
	for _, pair := range pairs {
		n, err := a.archivePair(ctx, pair.Symbol, before)
		if err != nil {
			a.logger.WarnContext(ctx, "trade archive failed for pair",
				slog.String("pair", pair.Symbol),
				slog.String("error", err.Error()),
			)
			continue
		}
		total += n
	}

	if total > 0 {
		if err := a.audit.Log(ctx, "trades_archived", map[string]any{
			"count":  total,
			"before": before.Format(time.RFC3339),
		}); err != nil {
			a.logger.WarnContext(ctx, "trade archive audit log failed",
				slog.String("error", err.Error()),
			)
		}
	}

	return total, nil
}

func (a *Archiver) archivePair(ctx context.Context, symbol string, before time.Time) (int64, error) {
	var (
		buf   bytes.Buffer
		count int64
	)
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)

	opts := domain.ListOpts{Limit: archiveBatchSize}
	for {
		page, err := a.trades.ListSettledBefore(ctx, symbol, before, opts)
		if err != nil {
			return 0, fmt.Errorf("list settled: %w", err)
		}
		for _, t := range page {
			if err := enc.Encode(t); err != nil {
				return 0, fmt.Errorf("encode trade %s: %w", t.ID, err)
			}
			count++
		}
		if len(page) < opts.Limit {
			break
		}
		opts.Offset += opts.Limit
	}

	if count == 0 {
		return 0, nil
	}

	key := archiveKey(symbol, before)
	if err := a.blobs.Put(ctx, key, buf.Bytes(), "application/x-ndjson"); err != nil {
		return 0, fmt.Errorf("upload: %w", err)
	}

	a.logger.InfoContext(ctx, "archived trades",
		slog.String("pair", symbol),
		slog.String("key", key),
		slog.Int64("count", count),
	)

	return count, nil
}

// archiveKey builds the object key for a pair's archive file, partitioned by
// the cutoff date. The slash in the pair symbol is flattened to a dash so it
// does not introduce an extra key level.
//
//	archive/trades/SCRT-USDT/2025-01-31.jsonl
func archiveKey(symbol string, before time.Time) string {
	return fmt.Sprintf("archive/trades/%s/%s.jsonl",
		strings.ReplaceAll(symbol, "/", "-"),
		before.Format("2006-01-02"),
	)
}
