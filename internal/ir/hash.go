package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// algorithm to change without colliding with old hashes.
const (
	DomainEvents  = "markerset/events/v1"
	DomainRecords = "markerset/records/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventLogHash identifies an input event sequence. Order matters.
func EventLogHash(events []Event) (string, error) {
	canonical, err := MarshalCanonical(events)
	if err != nil {
		return "", fmt.Errorf("EventLogHash: %w", err)
	}
	return hashWithDomain(DomainEvents, canonical), nil
}

// RecordSetHash identifies a finalized, ordered record set. Two runs that
// produce the same records in the same order share a hash.
func RecordSetHash(records []Record) (string, error) {
	canonical, err := MarshalCanonical(records)
	if err != nil {
		return "", fmt.Errorf("RecordSetHash: %w", err)
	}
	return hashWithDomain(DomainRecords, canonical), nil
}
