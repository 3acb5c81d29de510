package tool

import (
	"strings"

	"github.com/google/uuid"
)

// GenerateUUIDV7 returns a time-ordered id for primary keys.
func GenerateUUIDV7() string {
	return uuid.Must(uuid.NewV7()).String()
}

// CompactID is GenerateUUIDV7 without dashes, for external references.
func CompactID() string {
	return strings.ReplaceAll(GenerateUUIDV7(), "-", "")
}

// IsUUID reports whether s parses as a UUID in canonical form.
func IsUUID(s string) bool {
	if len(s) != 36 {
		return false
	}
	_, err := uuid.Parse(s)
	return err == nil
}
