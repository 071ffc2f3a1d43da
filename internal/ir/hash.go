package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// The version suffix leaves room for changing the algorithm later.
const (
	DomainAction = "statecell/action/v1"
	DomainState  = "statecell/state/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator removes any ambiguity at the domain/data boundary.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ActionID computes the content-addressed ID of a journaled action.
// Stable across runs given the same session, position and action.
func ActionID(session string, seq int64, action Action) (string, error) {
	payload := action.Payload
	if payload == nil {
		payload = IRObject{}
	}
	data, err := MarshalCanonical(IRObject{
		"session": IRString(session),
		"seq":     IRInt(seq),
		"type":    IRString(action.Type),
		"payload": payload,
	})
	if err != nil {
		return "", fmt.Errorf("action id: %w", err)
	}
	return hashWithDomain(DomainAction, data), nil
}

// StateHash computes a digest of a state value's canonical JSON.
// Returns an error if the state contains values canonical JSON cannot encode.
func StateHash(state any) (string, error) {
	data, err := MarshalCanonical(state)
	if err != nil {
		return "", fmt.Errorf("state hash: %w", err)
	}
	return hashWithDomain(DomainState, data), nil
}

// MustStateHash is StateHash for tests and fixtures; it panics on error.
func MustStateHash(state any) string {
	h, err := StateHash(state)
	if err != nil {
		panic(err)
	}
	return h
}
