package utils

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// StableHashLength is the number of hex characters kept from the SHA-256 digest.
// 32 characters is 128 bits.
const StableHashLength = 32

// StableHash derives a deterministic key from any JSON-serializable value.
// Strings are hashed as-is; other values are canonicalized to JSON with
// object keys sorted, so field order never changes the result.
func StableHash(v any) (string, error) {
	var data []byte
	if s, ok := v.(string); ok {
		data = []byte(s)
	} else {
		canonical, err := CanonicalJSON(v)
		if err != nil {
			return "", err
		}
		data = canonical
	}

	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])[:StableHashLength], nil
}

// StableKey prefixes a StableHash with a namespace, e.g. "story:<hash>"
func StableKey(prefix string, v any) (string, error) {
	hash, err := StableHash(v)
	if err != nil {
		return "", err
	}
	return prefix + ":" + hash, nil
}

// CanonicalJSON re-encodes v through a generic tree so that every object has sorted keys
func CanonicalJSON(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize value for hashing: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var tree any
	if err := dec.Decode(&tree); err != nil {
		return nil, fmt.Errorf("failed to canonicalize value for hashing: %w", err)
	}

	canonical, err := json.Marshal(tree)
	if err != nil {
		return nil, fmt.Errorf("failed to serialize canonical value: %w", err)
	}
	return canonical, nil
}
