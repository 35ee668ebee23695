package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/GriffinCanCode/formfill/internal/shared/types"
	"github.com/GriffinCanCode/formfill/internal/testutil"
)

func TestBuildPrompt(t *testing.T) {
	const closing = ". Suggest an appropriate and concise completion or value for this field. If the context is insufficient, provide a generic placeholder or a polite refusal."

	tests := []struct {
		name string
		fc   *types.FieldContext
		want string
	}{
		{
			name: "placeholder only",
			fc:   testutil.BioContext(),
			want: `Given a web form field, placeholder "Write a bio"` + closing,
		},
		{
			name: "all clauses in fixed order",
			fc: &types.FieldContext{
				CurrentValue: testutil.Ptr("Ada"),
				Placeholder:  testutil.Ptr("Jane Doe"),
				LabelText:    testutil.Ptr("Full name"),
			},
			want: `Given a web form field with label "Full name", placeholder "Jane Doe", and current value "Ada"` + closing,
		},
		{
			name: "label and value",
			fc: &types.FieldContext{
				LabelText:    testutil.Ptr("City"),
				CurrentValue: testutil.Ptr("Amst"),
			},
			want: `Given a web form field with label "City", and current value "Amst"` + closing,
		},
		{
			name: "empty strings are omitted",
			fc: &types.FieldContext{
				LabelText:   testutil.Ptr(""),
				Placeholder: testutil.Ptr(""),
				FieldName:   testutil.Ptr("ignored"),
			},
			want: "Given a web form field" + closing,
		},
		{
			name: "nil context",
			fc:   nil,
			want: "Given a web form field" + closing,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildPrompt(tt.fc))
		})
	}
}
