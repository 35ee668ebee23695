package relay

import (
	"context"
	"errors"
	"fmt"

	"github.com/GriffinCanCode/formfill/internal/providers/identity"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// User-facing messages sent to pages.
const (
	MsgLoginRequired   = "Please log in with 'formfill login' to use AI features."
	MsgSessionRejected = "Your session was rejected. Please log in with 'formfill login' again."
	MsgUnknownProxy    = "Unknown error from LLM proxy."
	MsgNoContext       = "No context object provided."
)

var (
	// ErrNoPage is returned when no page is connected for an origin.
	ErrNoPage = errors.New("no page connected")
	// ErrMissingTarget is returned for a trigger without an element id.
	ErrMissingTarget = errors.New("targetElementId is required")
)

// Origin identifies one frame of one tab.
type Origin struct {
	TabID   int `json:"tabId"`
	FrameID int `json:"frameId"`
}

func (o Origin) String() string {
	return fmt.Sprintf("tab %d frame %d", o.TabID, o.FrameID)
}

// Target is a field awaiting a result.
type Target struct {
	Origin
	ElementID string `json:"targetElementId"`
}

// PageTransport delivers a message to the page at origin.
type PageTransport interface {
	Send(ctx context.Context, origin Origin, msg types.RelayMessage) error
}

// SessionSource returns the current login session, or nil when logged out.
type SessionSource interface {
	Current(ctx context.Context) (*identity.Session, error)
}

// Reply is the proxy's answer to one generation request.
type Reply struct {
	Status int
	Body   types.GenerationResponse
}

// GenerationClient calls the generation proxy. An error means no answer was
// received; any HTTP answer is a Reply.
type GenerationClient interface {
	Generate(ctx context.Context, accessToken string, fc *types.FieldContext) (Reply, error)
}

// Uplink carries a page's messages to the coordinator.
type Uplink interface {
	Report(ctx context.Context, msg types.RelayMessage) error
}

// UplinkFunc adapts a function to Uplink.
type UplinkFunc func(ctx context.Context, msg types.RelayMessage) error

// Report calls f.
func (f UplinkFunc) Report(ctx context.Context, msg types.RelayMessage) error {
	return f(ctx, msg)
}

// kindOf names a message for logs and metrics.
func kindOf(msg types.RelayMessage) string {
	if msg.Action != "" {
		return msg.Action
	}
	if msg.Type != "" {
		return msg.Type
	}
	return "unknown"
}
