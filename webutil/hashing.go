package webutil

import (
	"crypto/sha256"
	"encoding/hex"
)

// DeriveSubscriberKey derives the storage key for a push subscription from
// its endpoint URL: the SHA-256 digest of the endpoint, hex encoded (64
// characters). The key is a pure function of the endpoint, so the
// registration handlers and the dispatch pipeline compute identical keys
// without any shared lookup, and registering the same endpoint twice
// collapses to one record.
func DeriveSubscriberKey(endpoint string) string {
	sum := sha256.Sum256([]byte(endpoint))
	return hex.EncodeToString(sum[:])
}
