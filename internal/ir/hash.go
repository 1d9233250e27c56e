package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content-addressed identity. Version suffix
// enables future algorithm migration.
const (
	DomainDescriptor = "sqlverify/descriptor/v1"
	DomainCheck      = "sqlverify/check/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null byte separator
// prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DescriptorID computes a content-addressed ID for a schema descriptor.
// The ID is stable across restarts given the same descriptor.
//
// Descriptor types contain no maps, so their JSON encoding follows
// struct declaration order and is already canonical.
func DescriptorID(s *SchemaDef) (string, error) {
	data, err := json.Marshal(s)
	if err != nil {
		return "", fmt.Errorf("DescriptorID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainDescriptor, data), nil
}

// CheckID computes a content-addressed ID for a check within a
// descriptor. Two descriptors with identical schemas and checks yield
// identical IDs.
func CheckID(descriptorID string, c *CheckDef) (string, error) {
	data, err := json.Marshal(struct {
		Descriptor string    `json:"descriptor"`
		Check      *CheckDef `json:"check"`
	}{descriptorID, c})
	if err != nil {
		return "", fmt.Errorf("CheckID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainCheck, data), nil
}
