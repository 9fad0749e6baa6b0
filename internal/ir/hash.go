package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainModel prefixes model hashes. The version suffix leaves room for
// algorithm migration.
const DomainModel = "sdfsched/model/v1"

// hashWithDomain computes SHA-256 with domain separation:
// SHA256(domain + 0x00 + data). The null byte keeps the domain/data
// boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ModelHash computes the content-addressed identity of a model snapshot.
// Two models with the same hash produce the same schedule.
func ModelHash(m *Model) (string, error) {
	canonical, err := CanonicalJSON(m)
	if err != nil {
		return "", fmt.Errorf("ModelHash: %w", err)
	}
	return hashWithDomain(DomainModel, canonical), nil
}

// MustModelHash is like ModelHash but panics on error.
// Use only in tests or when the model is known to be valid.
func MustModelHash(m *Model) string {
	h, err := ModelHash(m)
	if err != nil {
		panic(err)
	}
	return h
}
