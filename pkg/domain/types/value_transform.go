package types

import "fmt"

// ValueTransform names a built-in per-field value hook.
type ValueTransform string

const (
	// ValueTransformName reduces an object to its lowercase name and continues mapping.
	ValueTransformName ValueTransform = "name"
	// ValueTransformType reduces an object to its lowercase name and stops mapping.
	ValueTransformType ValueTransform = "type"
	// ValueTransformText renders a (possibly nested) select value as text.
	ValueTransformText ValueTransform = "text"
	// ValueTransformJoin joins list values with a comma.
	ValueTransformJoin ValueTransform = "join"
)

// AllValueTransforms returns all built-in value transforms
func AllValueTransforms() []ValueTransform {
	return []ValueTransform{
		ValueTransformName,
		ValueTransformType,
		ValueTransformText,
		ValueTransformJoin,
	}
}

// IsValid checks if the value transform is a known built-in
func (v ValueTransform) IsValid() bool {
	switch v {
	case ValueTransformName, ValueTransformType, ValueTransformText, ValueTransformJoin:
		return true
	default:
		return false
	}
}

func (v ValueTransform) String() string {
	return string(v)
}

// ParseValueTransform parses a string into a ValueTransform
func ParseValueTransform(s string) (ValueTransform, error) {
	v := ValueTransform(s)
	if !v.IsValid() {
		return "", fmt.Errorf("invalid value transform: %s", s)
	}
	return v, nil
}
