package orchestrate

import (
	"crypto/sha1" // #nosec G505 -- content addressing, not authentication.
	"encoding/hex"
	"fmt"
	"io"
	"strings"
)

// SchemaVersion versions the cached payload encoding. Bumping it retires
// every previously cached entry without touching the store.
const SchemaVersion = 1

// NoCacheMarker suppresses the cache read when it is the last line of a
// request's source. The marker stays part of the source, so it
// participates in the content hash like any other text.
const NoCacheMarker = "// @no-cache"

// Keyer builds content-addressed cache keys for engine operations.
//
// Contract:
// - Determinism: identical inputs must produce identical keys.
// - Concurrency: implementations must be safe for concurrent use.
type Keyer interface {
	// Key builds the key for an operation over the given source with the
	// given flags signature.
	Key(tag, flags, source string) string
}

// SHA1Keyer derives keys from a SHA-1 digest of the request content.
type SHA1Keyer struct{}

// NewSHA1Keyer creates a new SHA-1 keyer.
func NewSHA1Keyer() *SHA1Keyer {
	return &SHA1Keyer{}
}

// Key builds a key of the form
// {tag}:v{schemaVersion}:{flags}:source:{hexSha1OfContent}, where the
// digest covers the source text and the flags signature.
func (*SHA1Keyer) Key(tag, flags, source string) string {
	h := sha1.New() // #nosec G401 -- content addressing, not authentication.
	_, _ = io.WriteString(h, source)
	_, _ = io.WriteString(h, flags)
	return fmt.Sprintf("%s:v%d:%s:source:%s", tag, SchemaVersion, flags, hex.EncodeToString(h.Sum(nil)))
}

// CacheSuppressed reports whether the source opts out of the cache read by
// ending with NoCacheMarker (trailing whitespace ignored).
func CacheSuppressed(source string) bool {
	return strings.HasSuffix(strings.TrimRight(source, " \t\r\n"), NoCacheMarker)
}

// Ensure SHA1Keyer implements Keyer
var _ Keyer = (*SHA1Keyer)(nil)
