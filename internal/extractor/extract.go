package extractor

import (
	"github.com/PuerkitoBio/goquery"

	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// Extract gathers a FieldContext for the element with the given id. It
// returns false when the element does not exist or is not a fillable field.
func (d *Document) Extract(elementID string) (*types.FieldContext, bool) {
	if elementID == "" {
		return nil, false
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	field := d.elementByID(elementID)
	if field == nil || !IsEligible(field) {
		return nil, false
	}

	ctx := &types.FieldContext{
		FieldID:         types.Optional(field.AttrOr("id", "")),
		FieldName:       types.Optional(field.AttrOr("name", "")),
		Placeholder:     types.Optional(field.AttrOr("placeholder", "")),
		AriaLabel:       types.Optional(field.AttrOr("aria-label", "")),
		FieldType:       FieldType(field),
		CurrentValue:    types.Optional(currentValue(field)),
		SourceElementID: elementID,
	}
	if text, ok := d.findLabel(field); ok {
		ctx.LabelText = types.Optional(text)
	}
	return ctx, true
}

// currentValue reads the live value of an input or textarea.
func currentValue(field *goquery.Selection) string {
	if TagName(field) == "TEXTAREA" {
		return field.Text()
	}
	return field.AttrOr("value", "")
}
