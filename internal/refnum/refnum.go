// Package refnum generates human-readable business reference numbers.
// Two schemes coexist: a sequential per-tenant scheme driven by an atomic
// counter, and a randomized scheme with a base-36 suffix.
package refnum

import (
	"crypto/rand"
	"fmt"
	"time"
)

const base36 = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// Sequential formats "<PREFIX>-<YEAR>-<SEQ>" with seq zero padded to 4 digits.
// Seq comes from the tenant's Counter, so sequential creates in the same
// tenant-year yield consecutive numbers.
func Sequential(prefix string, year, seq int) string {
	return fmt.Sprintf("%s-%d-%04d", prefix, year, seq)
}

// Random returns "<PREFIX>-<YY><MM>-<XXXX>" with a 4-character base-36 suffix.
// No existence check is made before insert; callers retry with a fresh suffix
// when the unique index on the reference column rejects the insert.
func Random(prefix string, now time.Time) (string, error) {
	suffix := make([]byte, 4)
	// rejection sampling: 252 is the largest multiple of 36 below 256, so
	// accepted bytes map uniformly onto the alphabet
	buf := make([]byte, 1)
	for i := 0; i < len(suffix); {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("random suffix: %w", err)
		}
		if buf[0] >= 252 {
			continue
		}
		suffix[i] = base36[int(buf[0])%len(base36)]
		i++
	}
	return fmt.Sprintf("%s-%02d%02d-%s", prefix, now.Year()%100, int(now.Month()), suffix), nil
}
