package config

import (
	"fmt"
	"regexp"
	"unicode"
	"unicode/utf8"
)

// MaxEntityNameLen bounds entity names, which double as log and HUD labels.
const MaxEntityNameLen = 32

var validEntityName = regexp.MustCompile(`^[a-zA-Z0-9\-_.]+$`)

// ValidateEntityName checks that name is usable as a scene key
func ValidateEntityName(name string) error {
	if name == "" {
		return fmt.Errorf("entity name cannot be empty")
	}
	if len(name) > MaxEntityNameLen {
		return fmt.Errorf("entity name too long: %d bytes (max %d)", len(name), MaxEntityNameLen)
	}
	if !utf8.ValidString(name) {
		return fmt.Errorf("entity name contains invalid UTF-8")
	}
	for _, r := range name {
		if unicode.IsControl(r) {
			return fmt.Errorf("entity name contains control characters")
		}
	}
	if !validEntityName.MatchString(name) {
		return fmt.Errorf("entity name %q contains invalid characters (only letters, digits, hyphens, underscores and dots allowed)", name)
	}
	return nil
}
