package geo

import "fmt"

// GeometryError reports malformed input geometry. Entity names the offending
// input (a zone id, a feature index, "impact_seed") so a failed run can be
// traced back to the data that caused it.
type GeometryError struct {
	Entity string
	Reason string
}

func (e *GeometryError) Error() string {
	if e.Entity == "" {
		return "geo: " + e.Reason
	}
	return fmt.Sprintf("geo: %s: %s", e.Entity, e.Reason)
}

func invalid(entity, format string, args ...any) *GeometryError {
	return &GeometryError{Entity: entity, Reason: fmt.Sprintf(format, args...)}
}
