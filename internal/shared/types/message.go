package types

// Relay actions sent as requests between the page and the coordinator.
const (
	ActionGatherFieldContext = "gatherFieldContext"
	ActionSendFieldContext   = "sendFieldContext"
)

// Relay notification types sent from the coordinator to the page.
const (
	TypeLLMResponse  = "LLM_RESPONSE"
	TypeLLMError     = "LLM_ERROR"
	TypeAuthRequired = "AUTH_REQUIRED"
)

// RelayMessage is the envelope exchanged between a page and the relay
// coordinator. Requests carry Action, notifications carry Type.
type RelayMessage struct {
	Action          string        `json:"action,omitempty"`
	Type            string        `json:"type,omitempty"`
	TargetElementID string        `json:"targetElementId,omitempty"`
	FrameID         *int          `json:"frameId,omitempty"`
	Context         *FieldContext `json:"context,omitempty"`
	Text            *string       `json:"text,omitempty"`
	Message         string        `json:"message,omitempty"`
	Error           string        `json:"error,omitempty"`
}

// NewGatherRequest asks a page to produce a FieldContext for an element.
func NewGatherRequest(targetElementID string, frameID int) RelayMessage {
	return RelayMessage{
		Action:          ActionGatherFieldContext,
		TargetElementID: targetElementID,
		FrameID:         &frameID,
	}
}

// NewContextReport carries a gathered FieldContext back to the coordinator.
func NewContextReport(ctx *FieldContext) RelayMessage {
	return RelayMessage{Action: ActionSendFieldContext, Context: ctx}
}

// NewContextFailure reports that a page could not gather context.
func NewContextFailure(reason string) RelayMessage {
	return RelayMessage{Action: ActionSendFieldContext, Error: reason}
}

// NewGenerationResult delivers generated text to a page.
func NewGenerationResult(text string) RelayMessage {
	return RelayMessage{Type: TypeLLMResponse, Text: &text}
}

// NewGenerationError delivers a human-readable failure to a page.
func NewGenerationError(message string) RelayMessage {
	return RelayMessage{Type: TypeLLMError, Message: message}
}

// NewAuthRequired tells a page the user must log in.
func NewAuthRequired(message string) RelayMessage {
	return RelayMessage{Type: TypeAuthRequired, Message: message}
}

// IsRequest reports whether the message is an action rather than a notification.
func (m RelayMessage) IsRequest() bool {
	return m.Action != ""
}
