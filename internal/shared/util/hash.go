package util

import (
	"crypto/sha256"
	"encoding/hex"
)

const (
	anonymousOwner = "anonymous"
	ownerKeyLen    = 24
)

// OwnerKey maps a user ID to the directory that holds that user's documents.
// Anonymous generations share one directory.
func OwnerKey(userID string) string {
	if userID == "" {
		return anonymousOwner
	}
	sum := sha256.Sum256([]byte(userID))
	return hex.EncodeToString(sum[:])[:ownerKeyLen]
}
