package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic run_id using SHA256.
// Formula: SHA256(symbol|strategy_id|scenario_id|initial_cash_cents)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(symbol, strategyID, scenarioID string, initialCash float64) string {
	data := fmt.Sprintf("%s|%s|%s|%d",
		symbol,
		strategyID,
		scenarioID,
		int64(initialCash*100),
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
