// Package utils holds small helpers shared by the server packages.
package utils

import (
	"crypto/sha256"
	"encoding/hex"
)

// CalculateHash signs body with key: hex(sha256(body || key)).
// Client and server must agree on it byte for byte.
func CalculateHash(body []byte, key string) string {
	signed := make([]byte, 0, len(body)+len(key))
	signed = append(signed, body...)
	signed = append(signed, key...)

	sum := sha256.Sum256(signed)
	return hex.EncodeToString(sum[:])
}
