package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// SumSHA256 returns the SHA-256 checksum of the provided data.
func SumSHA256(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// ETag returns a strong entity tag for data, quoted as HTTP expects.
func ETag(data []byte) string {
	sum := SumSHA256(data)
	return `"` + hex.EncodeToString(sum[:16]) + `"`
}
