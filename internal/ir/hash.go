package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for algorithm migration.
const (
	DomainCondition = "repoquery/condition/v1"
	DomainQuery     = "repoquery/query/v1"
	DomainSignature = "repoquery/signature/v1"
	DomainSchema    = "repoquery/schema/v1"
	DomainValue     = "repoquery/value/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the domain-separated hash of v's canonical encoding.
func Hash(domain string, v any) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}

// ConditionHash identifies a condition tree by its canonical form.
func ConditionHash(cond IRValue) (string, error) {
	return Hash(DomainCondition, cond)
}

// QueryHash identifies a realized query by its canonical form.
func QueryHash(query IRObject) (string, error) {
	return Hash(DomainQuery, query)
}

// SignatureHash identifies a method signature bound to an entity. It keys
// the derivation plan cache.
func SignatureHash(sig IRObject) (string, error) {
	return Hash(DomainSignature, sig)
}

// MustHash is like Hash but panics on error.
// Use only in tests or when inputs are known to be encodable.
func MustHash(domain string, v any) string {
	h, err := Hash(domain, v)
	if err != nil {
		panic(err)
	}
	return h
}
