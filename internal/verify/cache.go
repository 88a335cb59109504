package verify

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

// ReportCache caches whole provenance reports in Redis, keyed by QR token.
// A cached report is always a snapshot that was consistent when assembled;
// the engine invalidates the key after every committed write, and the TTL
// bounds staleness if an invalidation is lost. Cache failures degrade to a
// direct read, never to an error.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewReportCache(client *redis.Client, ttl time.Duration, logger *slog.Logger) *ReportCache {
	return &ReportCache{client: client, ttl: ttl, logger: logger}
}

func cacheKey(qrCode string) string { return "verify:report:" + qrCode }

// Get returns the cached report for qrCode, or ok=false on miss or error.
func (c *ReportCache) Get(ctx context.Context, qrCode string) (*ProvenanceReport, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, cacheKey(qrCode)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.WarnContext(ctx, "report cache get failed", "error", err)
		}
		return nil, false
	}
	var report ProvenanceReport
	if err := json.Unmarshal(raw, &report); err != nil {
		c.logger.WarnContext(ctx, "report cache entry corrupt", "error", err)
		return nil, false
	}
	return &report, true
}

// Set stores the report under its QR token. Best-effort.
func (c *ReportCache) Set(ctx context.Context, report *ProvenanceReport) {
	if c == nil || c.client == nil {
		return
	}
	raw, err := json.Marshal(report)
	if err != nil {
		c.logger.WarnContext(ctx, "marshal report for cache", "error", err)
		return
	}
	if err := c.client.Set(ctx, cacheKey(report.QRCode), raw, c.ttl).Err(); err != nil {
		c.logger.WarnContext(ctx, "report cache set failed", "error", err)
	}
}

// Invalidate drops the cached report after the chain moved. Best-effort.
func (c *ReportCache) Invalidate(ctx context.Context, qrCode string) {
	if c == nil || c.client == nil {
		return
	}
	if err := c.client.Del(ctx, cacheKey(qrCode)).Err(); err != nil {
		c.logger.WarnContext(ctx, "report cache invalidate failed", "error", err)
	}
}
