// Package idhash computes deterministic record identifiers so replaying
// the same experiment produces the same signal and trade rows, making
// writes to the durable log idempotent.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// SignalID computes a deterministic signal id using SHA256.
// Formula: SHA256(experiment_id|token_address|rule_id|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func SignalID(experimentID, tokenAddress, ruleID string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", experimentID, tokenAddress, ruleID, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}

// TradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(experiment_id|token_address|direction|timestamp_ms)
// Returns hex-encoded hash (64 characters).
func TradeID(experimentID, tokenAddress, direction string, timestampMs int64) string {
	data := fmt.Sprintf("%s|%s|%s|%d", experimentID, tokenAddress, direction, timestampMs)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
