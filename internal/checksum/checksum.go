// Package checksum derives entity tags for conditional HTTP reads.
package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
)

// Sum returns the hex-encoded SHA-256 digest of data.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// ETag returns a strong entity tag for one note revision. The remote
// version number alone would identify a revision, but hashing the content
// in as well keeps tags honest across locally applied writes that have not
// round-tripped through the remote yet.
func ETag(version int64, content string) string {
	digest := Sum([]byte(strconv.FormatInt(version, 10) + ":" + content))
	return `"` + digest[:32] + `"`
}

// Match reports whether an If-None-Match header value matches etag. The
// header may be "*", a single tag, or a comma-separated list; weak tags
// (W/ prefix) compare by their opaque part, which is the weak comparison
// conditional GET calls for.
func Match(header, etag string) bool {
	header = strings.TrimSpace(header)
	if header == "" {
		return false
	}
	if header == "*" {
		return true
	}
	target := strings.TrimPrefix(etag, "W/")
	for _, candidate := range strings.Split(header, ",") {
		candidate = strings.TrimSpace(candidate)
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == target {
			return true
		}
	}
	return false
}
