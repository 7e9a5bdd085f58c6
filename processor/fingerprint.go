package processor

import (
	"crypto/md5"
	"encoding/hex"
	"strings"
)

// SchemaFingerprint returns a deterministic fingerprint of a table's column
// sequence: the md5 hex digest of the names joined with "~". Two tables
// fingerprint identically exactly when their column names and order match;
// any rename, addition, or removal changes the digest.
func SchemaFingerprint(columns []string) string {
	sum := md5.Sum([]byte(strings.Join(columns, "~")))
	return hex.EncodeToString(sum[:])
}
