// Package fingerprint computes canonical-JSON SHA-256 digests of prescription
// payloads. Two logically identical documents hash identically regardless of
// key order or whitespace, so a re-typed payload still verifies.
package fingerprint

import (
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Sum canonicalizes v and returns the base64 standard encoding of its SHA-256
// digest. Canonicalization round-trips through generic JSON values;
// encoding/json writes object keys in sorted order, which fixes the byte
// representation independent of the input's field order.
func Sum(v any) (string, error) {
	canonical, err := Canonicalize(v)
	if err != nil {
		return "", err
	}
	digest := sha256.Sum256(canonical)
	return base64.StdEncoding.EncodeToString(digest[:]), nil
}

// SumJSON hashes a raw JSON document, typically user-supplied during
// verification.
func SumJSON(raw []byte) (string, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return "", fmt.Errorf("parsing payload JSON: %w", err)
	}
	return Sum(v)
}

// Canonicalize returns the canonical JSON byte representation of v.
func Canonicalize(v any) ([]byte, error) {
	first, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding payload: %w", err)
	}

	var generic any
	if err := json.Unmarshal(first, &generic); err != nil {
		return nil, fmt.Errorf("normalizing payload: %w", err)
	}

	canonical, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("encoding canonical payload: %w", err)
	}
	return canonical, nil
}
