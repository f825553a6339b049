package errors

import "regexp"

// maxNameLength bounds entity and field names. Graphviz accepts longer
// identifiers, but nothing that long fits in a table cell.
const maxNameLength = 128

// identRegex matches names usable as Graphviz node IDs and record ports
// without quoting surprises: letters, digits and underscores, not starting
// with a digit.
var identRegex = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidateEntityName validates an entity name for use as a diagram node ID.
//
// The validation rules:
//   - No empty names
//   - Maximum length of 128 characters
//   - Letters, digits and underscores only, not starting with a digit
//
// The ':' separator used by anchors is therefore never part of a name.
func ValidateEntityName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidEntity, "entity name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidEntity, "entity name too long (max %d characters)", maxNameLength)
	}
	if !identRegex.MatchString(name) {
		return New(ErrCodeInvalidEntity, "invalid entity name: %q", name)
	}
	return nil
}

// ValidateFieldName validates a field name. Same rules as entity names.
func ValidateFieldName(name string) error {
	if name == "" {
		return New(ErrCodeInvalidEntity, "field name cannot be empty")
	}
	if len(name) > maxNameLength {
		return New(ErrCodeInvalidEntity, "field name too long (max %d characters)", maxNameLength)
	}
	if !identRegex.MatchString(name) {
		return New(ErrCodeInvalidEntity, "invalid field name: %q", name)
	}
	return nil
}
