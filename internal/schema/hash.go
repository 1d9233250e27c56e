package schema

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future format migration.
const (
	domainSchema  = "sqlverify/schema/v1"
	domainVerdict = "sqlverify/verdict/v1"
)

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data). The null separator prevents
// domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// contentHash serializes tables into a canonical textual form and hashes it.
//
// The form is positional and fold-normalized, so schemas that differ only
// in identifier case or declaration whitespace share a hash.
func contentHash(tables []Table) string {
	var b strings.Builder
	for _, t := range tables {
		fmt.Fprintf(&b, "table %s\n", Fold(t.Name))
		for _, c := range t.Columns {
			fmt.Fprintf(&b, "  col %s %s null=%t\n", Fold(c.Name), c.Type, c.Nullable)
		}
		for _, pk := range t.PrimaryKey {
			fmt.Fprintf(&b, "  pk %s\n", Fold(pk))
		}
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, "  fk %s -> %s.%s\n", Fold(fk.Column), Fold(fk.RefTable), Fold(fk.RefColumn))
		}
	}
	return hashWithDomain(domainSchema, []byte(b.String()))
}

// VerdictKey computes the cache key for one verification attempt.
//
// Keyed by both SQL texts, the schema content hash, and the bound. The
// SQL texts are hashed as given; callers are expected to normalize
// whitespace upstream if they want textual variants to share a key.
func VerdictKey(candidateSQL, goldSQL, schemaID string, bound int) string {
	payload := fmt.Sprintf("%s\x00%s\x00%s\x00%d", candidateSQL, goldSQL, schemaID, bound)
	return hashWithDomain(domainVerdict, []byte(payload))
}
