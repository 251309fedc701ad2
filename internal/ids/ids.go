// Package ids generates the identifiers used as storage keys across the
// service.
package ids

import (
	"crypto/rand"

	"github.com/oklog/ulid/v2"
)

// New returns a lexicographically sortable unique identifier. Entropy comes
// from crypto/rand so concurrent callers need no coordination.
func New() string {
	return ulid.MustNew(ulid.Now(), rand.Reader).String()
}
