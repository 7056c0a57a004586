package db

import (
	"crypto/rand"
	"encoding/base64"
)

// GenerateAPIKey returns a new 256-bit URL-safe collector credential.
func GenerateAPIKey() string {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand failure means the process cannot produce credentials
		panic(err)
	}
	return base64.RawURLEncoding.EncodeToString(b)
}
