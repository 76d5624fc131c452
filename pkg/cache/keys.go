package cache

import (
	"fmt"
	"hash/fnv"
	"strings"
)

// Key layout: "<area>:<symbol>:<detail>". DeleteByPattern with SymbolPattern
// drops every cached result for one symbol after new bars land, and nothing
// else.

// IndicatorKey builds the key for one symbol's cached indicator rows. The
// params fingerprint keeps differently-parameterized results from colliding.
func IndicatorKey(symbol, indicator, fingerprint string) string {
	return fmt.Sprintf("indicators:%s:%s:%s", normalize(symbol), indicator, fingerprint)
}

// LatestKey builds the key for a symbol's latest feature row.
func LatestKey(symbol string) string {
	return fmt.Sprintf("indicators:%s:latest", normalize(symbol))
}

// SymbolPattern matches every cached entry for one symbol.
func SymbolPattern(symbol string) string {
	return fmt.Sprintf("indicators:%s:*", normalize(symbol))
}

// RunLockKey is the advisory lock guarding concurrent batch runs.
func RunLockKey(mode string) string {
	return "pipeline:lock:" + mode
}

// RunStatusKey holds the most recent run summary.
const RunStatusKey = "pipeline:status"

// Fingerprint hashes an ordered list of parameter values into a short stable
// token for cache keys.
func Fingerprint(parts ...interface{}) string {
	h := fnv.New64a()
	for i, p := range parts {
		if i > 0 {
			h.Write([]byte{'|'})
		}
		fmt.Fprintf(h, "%v", p)
	}
	return fmt.Sprintf("%016x", h.Sum64())
}

func normalize(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
