// Package fingerprint derives short, stable identifiers from credentials so
// that tokens never appear in cache or rate-limit keys.
package fingerprint

import (
	"encoding/hex"
	"strings"

	"github.com/zeebo/blake3"
)

// Anonymous is the fingerprint of an empty credential set.
const Anonymous = "anonymous"

// Of returns a 16-byte BLAKE3 digest of parts, hex encoded. Parts are joined
// with a NUL separator so ("ab", "c") and ("a", "bc") differ. Empty input
// yields Anonymous.
func Of(parts ...string) string {
	nonEmpty := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if len(nonEmpty) == 0 {
		return Anonymous
	}

	sum := blake3.Sum256([]byte(strings.Join(nonEmpty, "\x00")))
	return hex.EncodeToString(sum[:16])
}
