package relay

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/extractor"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// Notice is an error or login prompt shown to the user.
type Notice struct {
	Type      string
	Message   string
	ElementID string
}

// Notifier displays notices. It must not block.
type Notifier func(Notice)

// Page is the page-side agent for one frame: it gathers field context from a
// document and applies generated text to the field it last gathered.
type Page struct {
	doc    *extractor.Document
	notify Notifier
	logger *logging.Logger

	mu         sync.Mutex
	uplink     Uplink
	lastTarget string
}

// NewPage creates an agent for doc. A nil notify drops notices.
func NewPage(doc *extractor.Document, notify Notifier, logger *logging.Logger) *Page {
	if notify == nil {
		notify = func(Notice) {}
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Page{
		doc:    doc,
		notify: notify,
		logger: logger.Named("page"),
	}
}

// Connect sets where the page reports gathered context.
func (p *Page) Connect(uplink Uplink) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.uplink = uplink
}

// LastTarget returns the element id awaiting a result, or "".
func (p *Page) LastTarget() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastTarget
}

// Handle processes one message from the coordinator.
func (p *Page) Handle(ctx context.Context, msg types.RelayMessage) error {
	switch {
	case msg.Action == types.ActionGatherFieldContext:
		return p.gather(ctx, msg.TargetElementID)
	case msg.Type == types.TypeLLMResponse:
		p.applyResult(msg)
	case msg.Type == types.TypeLLMError, msg.Type == types.TypeAuthRequired:
		target := p.take()
		p.logger.Warn("generation did not complete",
			zap.String("type", msg.Type),
			zap.String("message", msg.Message),
			zap.String("element_id", target),
		)
		p.notify(Notice{Type: msg.Type, Message: msg.Message, ElementID: target})
	default:
		p.logger.Warn("ignoring unknown message", zap.String("kind", kindOf(msg)))
	}
	return nil
}

func (p *Page) gather(ctx context.Context, elementID string) error {
	if elementID == "" {
		return p.report(ctx, types.NewContextFailure("targetElementId not provided to content script."))
	}

	p.mu.Lock()
	p.lastTarget = elementID
	p.mu.Unlock()

	fc, ok := p.doc.Extract(elementID)
	if !ok {
		p.mu.Lock()
		if p.lastTarget == elementID {
			p.lastTarget = ""
		}
		p.mu.Unlock()
		reason := fmt.Sprintf("Could not gather context for element ID: %s. Element might not be eligible or found.", elementID)
		p.logger.Warn("context gathering failed", zap.String("element_id", elementID))
		return p.report(ctx, types.NewContextFailure(reason))
	}

	p.logger.Debug("field context gathered", zap.String("element_id", elementID), zap.String("field_type", fc.FieldType))
	return p.report(ctx, types.NewContextReport(fc))
}

func (p *Page) applyResult(msg types.RelayMessage) {
	target := p.take()
	switch {
	case target == "":
		p.logger.Error("generated text received but no target was stored")
	case msg.Text == nil:
		p.logger.Error("generated text message carried no text", zap.String("element_id", target))
	case !p.doc.Apply(target, *msg.Text):
		p.logger.Error("target element not found for generated text", zap.String("element_id", target))
	default:
		p.logger.Info("field updated with generated text", zap.String("element_id", target))
	}
}

// take returns and clears the last target.
func (p *Page) take() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	target := p.lastTarget
	p.lastTarget = ""
	return target
}

func (p *Page) report(ctx context.Context, msg types.RelayMessage) error {
	p.mu.Lock()
	uplink := p.uplink
	p.mu.Unlock()
	if uplink == nil {
		return errors.New("page is not connected")
	}
	return uplink.Report(ctx, msg)
}
