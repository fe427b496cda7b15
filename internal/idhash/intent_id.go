// Package idhash computes deterministic identifiers for runs and intents.
// Identical inputs always hash to the same ID, which keeps persisted
// records idempotent across re-runs.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"equity-backtest-lab/internal/domain"
)

// ComputeIntentID computes a deterministic intent_id using SHA256.
// Formula: SHA256(run_id|time_unix_ms|side|qty|price_micros)
// Returns hex-encoded hash (64 characters).
func ComputeIntentID(runID string, intent *domain.OrderIntent) string {
	data := fmt.Sprintf("%s|%d|%s|%d|%d",
		runID,
		intent.Time.UnixMilli(),
		intent.Side,
		intent.Qty,
		int64(intent.Price*1e6),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// ComputeFillID computes a deterministic fill_id using SHA256.
// Formula: SHA256(run_id|executed_unix_ms|side|qty|executed_price_micros)
func ComputeFillID(runID string, side domain.Side, executedTime time.Time, qty int64, executedPrice float64) string {
	data := fmt.Sprintf("%s|%d|%s|%d|%d",
		runID,
		executedTime.UnixMilli(),
		side,
		qty,
		int64(executedPrice*1e6),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
