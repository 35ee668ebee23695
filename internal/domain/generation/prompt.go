package generation

import (
	"strings"

	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

const (
	promptOpening = "Given a web form field"
	promptClosing = ". Suggest an appropriate and concise completion or value for this field." +
		" If the context is insufficient, provide a generic placeholder or a polite refusal."
)

// BuildPrompt renders the completion instruction for a field. Label,
// placeholder and current value each add a clause only when non-empty, in
// that order.
func BuildPrompt(fc *types.FieldContext) string {
	var sb strings.Builder
	sb.WriteString(promptOpening)
	if fc != nil {
		if label := types.Value(fc.LabelText); label != "" {
			sb.WriteString(` with label "` + label + `"`)
		}
		if placeholder := types.Value(fc.Placeholder); placeholder != "" {
			sb.WriteString(`, placeholder "` + placeholder + `"`)
		}
		if current := types.Value(fc.CurrentValue); current != "" {
			sb.WriteString(`, and current value "` + current + `"`)
		}
	}
	sb.WriteString(promptClosing)
	return sb.String()
}
