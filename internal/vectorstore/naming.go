package vectorstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/mozillazg/go-unidecode"
)

// Collection name length bounds imposed by the stores (Chroma requires 3–63
// characters; Milvus accepts the same range).
const (
	minBaseLen = 3
	maxBaseLen = 63
)

// collectionTimestampLayout renders collection timestamps at second
// granularity. Two imports of the same filename and provider within the same
// second therefore collide; this is a known limitation of the naming scheme,
// not something the indexer guards against.
const collectionTimestampLayout = "20060102150405"

// CollectionName derives the deterministic collection name for an embedding
// file. The derivation is a durable contract with whatever consumes stored
// data:
//
//  1. strip a trailing ".pdf" suffix,
//  2. transliterate to a phonetic Latin representation (lower-cased),
//  3. replace hyphens with underscores,
//  4. prefix "doc_" when the first character is not alphanumeric,
//  5. drop every character that is not alphanumeric, underscore, or hyphen,
//  6. pad with underscores to 3 characters, truncate to 63,
//  7. strip non-alphanumeric characters left at either end,
//  8. append "_<provider>_<timestamp>".
func CollectionName(filename, embeddingProvider string, now time.Time) string {
	base := strings.TrimSuffix(filename, ".pdf")
	if base == "" {
		base = "doc"
	}

	base = strings.ToLower(unidecode.Unidecode(base))
	base = strings.ReplaceAll(base, "-", "_")
	if base == "" {
		base = "doc"
	}

	if !isAlnum(rune(base[0])) {
		base = "doc_" + base
	}

	var b strings.Builder
	for _, r := range base {
		if isAlnum(r) || r == '_' || r == '-' {
			b.WriteRune(r)
		}
	}
	base = b.String()

	if len(base) < minBaseLen {
		base = base + strings.Repeat("_", minBaseLen-len(base))
	}
	if len(base) > maxBaseLen {
		base = base[:maxBaseLen]
	}

	base = strings.TrimFunc(base, func(r rune) bool { return !isAlnum(r) })
	if base == "" {
		base = "doc"
	}

	if embeddingProvider == "" {
		embeddingProvider = "unknown"
	}
	return fmt.Sprintf("%s_%s_%s", base, embeddingProvider, now.Format(collectionTimestampLayout))
}

// isAlnum reports whether r is an ASCII letter or digit. The base name is
// ASCII after transliteration, so ASCII classes are sufficient.
func isAlnum(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}
