package params

import "regexp"

var pyformatMarker = regexp.MustCompile(`%\((\w+)\)s`)

// ParamStructure distinguishes how a caller supplied native parameters —
// needed to decide whether paramstyle rewriting applies (§4.5).
type ParamStructure int

const (
	StructureNone ParamStructure = iota
	StructureNamed
	StructurePositional
)

// RewriteNamedMarkers replaces every "%(name)s" marker in operation with
// ":name", the one-time migration aid for callers moving off the legacy
// pyformat paramstyle (original_source's _interpolate_named_markers). A
// statement with no such markers is returned unchanged.
func RewriteNamedMarkers(operation string) string {
	return pyformatMarker.ReplaceAllString(operation, ":$1")
}

// ContainsInlinePositionalMarkers reports whether operation has any bare
// "%s" marker — used to warn callers who pass StructurePositional with
// inline-style text instead of "?" (original_source's
// _may_contain_inline_positional_markers).
func ContainsInlinePositionalMarkers(operation string) bool {
	for i := 0; i+1 < len(operation); i++ {
		if operation[i] == '%' && operation[i+1] == 's' {
			return true
		}
	}

	return false
}

// TransformParamstyle applies RewriteNamedMarkers only when structure is
// StructureNamed, matching original_source's transform_paramstyle: positional
// operations are left untouched (aside from the inline-marker warning the
// caller is expected to log).
func TransformParamstyle(operation string, structure ParamStructure) string {
	if structure == StructureNamed {
		return RewriteNamedMarkers(operation)
	}

	return operation
}
