// Package keygen produces the opaque key codes handed to customers. Codes
// are random identifiers, not signed tokens.
package keygen

import (
	"strings"

	"github.com/google/uuid"
)

// ShortCode returns the 8-character uppercase code used when an admin
// creates a key without supplying one.
func ShortCode() string {
	return strings.ToUpper(uuid.NewString()[:8])
}
