// README: Common identifier value objects used across modules.
package types

import (
	"strings"

	"github.com/google/uuid"
)

type ID string

// NewID returns a random entity identifier.
func NewID() ID {
	return ID(uuid.NewString())
}

// ShortCode returns a human-readable code such as "CERT-3F9A1C".
func ShortCode(prefix string) string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return prefix + "-" + strings.ToUpper(raw[:6])
}
