package types

// Field types that may appear in a FieldContext.
const (
	FieldTypeTextarea = "textarea"
	FieldTypeText     = "text"
)

// FieldContext describes one form field at the moment of user action.
// Optional attributes are nil when absent on the element.
type FieldContext struct {
	FieldID         *string `json:"fieldId,omitempty"`
	FieldName       *string `json:"fieldName,omitempty"`
	Placeholder     *string `json:"placeholder,omitempty"`
	AriaLabel       *string `json:"ariaLabel,omitempty"`
	LabelText       *string `json:"labelText,omitempty"`
	FieldType       string  `json:"fieldType"`
	CurrentValue    *string `json:"currentValue,omitempty"`
	SourceElementID string  `json:"sourceElementId"`
}

// Value returns the dereferenced string or "" when absent.
func Value(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Optional returns a pointer to s, or nil when s is empty.
func Optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
