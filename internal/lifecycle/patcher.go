package lifecycle

import "strings"

// Insert returns template with marker prepended, unless the template
// already contains the marker, in which case it is returned unchanged.
//
// Containment is the sole duplicate check. It can false-positive when
// the template legitimately contains the marker bytes for unrelated
// reasons, and false-negative when the marker is present but wrapped
// differently (conditional prompt expansion). Both are accepted: a
// missed insertion degrades to a direct-written mark, a skipped one
// changes nothing.
func Insert(template, marker string) string {
	if marker == "" || strings.Contains(template, marker) {
		return template
	}
	return marker + template
}

// Remove strips every occurrence of marker from template. Used before
// a command executes so the marker neither leaks into command echo nor
// stacks up on the next prompt draw.
func Remove(template, marker string) string {
	if marker == "" {
		return template
	}
	return strings.ReplaceAll(template, marker, "")
}
