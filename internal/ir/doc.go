// Package ir provides the canonical value representation used to identify
// conditions, queries and method signatures.
//
// Every other internal package may import ir; ir imports nothing internal.
//
// Key constraints:
//   - Canonical JSON follows RFC 8785 key ordering with NFC-normalized strings
//   - Native floats never appear in canonical output; FromGo tags them as text
//   - Hashes are SHA-256 with a versioned domain prefix
package ir
