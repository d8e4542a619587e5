package scim

import (
	"fmt"
	"strings"

	"github.com/elimity-com/scim"
	filter "github.com/scim2/filter-parser/v2"
)

// matchesFilter evaluates a parsed RFC 7644 §3.4.2.2 filter expression
// against one resource's attribute bag. Only the attribute-level operators
// (eq/co/sw/ew/pr) and the and/or/not combinators are evaluated;
// ValuePathExpression (sub-attribute filtering inside a multi-valued
// complex attribute, e.g. "emails[type eq \"work\"]") always matches rather
// than being misevaluated, since this platform's SCIM attribute bag does
// not structure multi-valued attributes richly enough to filter within
// them.
func matchesFilter(expr filter.Expression, attrs scim.ResourceAttributes) bool {
	switch e := expr.(type) {
	case filter.AttributeExpression:
		return matchesAttributeExpression(e, attrs)
	case filter.LogicalExpression:
		switch e.Operator {
		case filter.AND:
			return matchesFilter(e.Left, attrs) && matchesFilter(e.Right, attrs)
		case filter.OR:
			return matchesFilter(e.Left, attrs) || matchesFilter(e.Right, attrs)
		default:
			return true
		}
	case filter.NotExpression:
		return !matchesFilter(e.Expression, attrs)
	case filter.ValuePathExpression:
		return true
	default:
		return true
	}
}

func matchesAttributeExpression(e filter.AttributeExpression, attrs scim.ResourceAttributes) bool {
	name := e.AttributePath.AttributeName
	raw, present := attrs[name]

	if e.Operator == filter.PR {
		return present
	}
	if !present {
		return false
	}

	actual := fmt.Sprintf("%v", raw)
	want := fmt.Sprintf("%v", e.CompareValue)

	switch e.Operator {
	case filter.EQ:
		return strings.EqualFold(actual, want)
	case filter.NE:
		return !strings.EqualFold(actual, want)
	case filter.CO:
		return strings.Contains(strings.ToLower(actual), strings.ToLower(want))
	case filter.SW:
		return strings.HasPrefix(strings.ToLower(actual), strings.ToLower(want))
	case filter.EW:
		return strings.HasSuffix(strings.ToLower(actual), strings.ToLower(want))
	default:
		return true
	}
}

// applyPatchOperation applies one RFC 7644 §3.5.2 add/replace operation
// whose value is a whole-resource attribute object, merging its keys into
// the flat attribute bag. Path-qualified operations (e.g. a bare
// "displayName" path, or a sub-attribute/filtered path) are not evaluated —
// see Patch's doc comment — since doing so correctly requires walking
// scim2/filter-parser's Path grammar, out of scope for this reduced patch
// subset.
func applyPatchOperation(attrs map[string]any, op scim.PatchOperation) {
	switch strings.ToLower(op.Op) {
	case "add", "replace":
		if m, ok := op.Value.(map[string]interface{}); ok {
			for k, v := range m {
				attrs[k] = v
			}
		}
	}
}
