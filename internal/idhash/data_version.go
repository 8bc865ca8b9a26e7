// Package idhash computes deterministic identifiers from report content.
package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// DataVersionLength is the number of hex characters kept from the hash.
const DataVersionLength = 12

// ComputeDataVersion computes a deterministic version of a rendered table.
// Formula: SHA256(header|...\nrow|...\n...), hex-encoded and truncated to
// DataVersionLength characters.
func ComputeDataVersion(header []string, records [][]string) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(header, "|")))
	for _, rec := range records {
		h.Write([]byte("\n"))
		h.Write([]byte(strings.Join(rec, "|")))
	}
	return hex.EncodeToString(h.Sum(nil))[:DataVersionLength]
}
