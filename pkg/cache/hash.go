package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
)

// hashKey builds "<kind>:<sha256>" from the JSON encoding of parts. kind is
// "schema" or "artifact", so build results and rendered outputs never share
// a key even when their inputs hash alike.
func hashKey(kind string, parts ...any) string {
	data, _ := json.Marshal(parts)
	return kind + ":" + Hash(data)
}

// Hash returns the hex SHA-256 of data. Schema documents and DOT sources are
// hashed with it before key derivation.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// HashString is Hash for text such as generated DOT.
func HashString(s string) string {
	return Hash([]byte(s))
}
