package extractor

import (
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// EligibleInputTypes are the input types that may be filled.
var EligibleInputTypes = map[string]bool{
	"text":     true,
	"email":    true,
	"search":   true,
	"tel":      true,
	"url":      true,
	"password": true,
	"number":   true,
}

// knownInputTypes mirrors the HTML input type keywords; anything else reflects as "text".
var knownInputTypes = map[string]bool{
	"button": true, "checkbox": true, "color": true, "date": true,
	"datetime-local": true, "email": true, "file": true, "hidden": true,
	"image": true, "month": true, "number": true, "password": true,
	"radio": true, "range": true, "reset": true, "search": true,
	"submit": true, "tel": true, "text": true, "time": true,
	"url": true, "week": true,
}

// TagName returns the upper-cased tag name of the first element in sel.
func TagName(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	return strings.ToUpper(goquery.NodeName(sel))
}

// FieldType returns the reflected field type: the input type for INPUT,
// "textarea" for TEXTAREA, and "" for anything else.
func FieldType(sel *goquery.Selection) string {
	switch TagName(sel) {
	case "INPUT":
		t := strings.ToLower(strings.TrimSpace(sel.AttrOr("type", "")))
		if !knownInputTypes[t] {
			return types.FieldTypeText
		}
		return t
	case "TEXTAREA":
		return types.FieldTypeTextarea
	default:
		return ""
	}
}

// IsEligible reports whether the element is a fillable field.
func IsEligible(sel *goquery.Selection) bool {
	switch TagName(sel) {
	case "TEXTAREA":
		return true
	case "INPUT":
		return EligibleInputTypes[FieldType(sel)]
	default:
		return false
	}
}
