package relay

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/logging"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formfill/internal/shared/errs"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// Coordinator routes triggers to pages and page contexts to the proxy.
type Coordinator struct {
	pages    PageTransport
	sessions SessionSource
	proxy    GenerationClient
	logger   *logging.Logger
	metrics  *monitoring.Metrics
	tracer   *tracing.Tracer

	mu      sync.Mutex
	pending *Target
}

// NewCoordinator creates a coordinator.
func NewCoordinator(pages PageTransport, sessions SessionSource, proxy GenerationClient, logger *logging.Logger) *Coordinator {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Coordinator{
		pages:    pages,
		sessions: sessions,
		proxy:    proxy,
		logger:   logger.Named("coordinator"),
	}
}

// WithMetrics adds metrics tracking to the coordinator
func (c *Coordinator) WithMetrics(metrics *monitoring.Metrics) *Coordinator {
	c.metrics = metrics
	return c
}

// WithTracer records a span per fill stage.
func (c *Coordinator) WithTracer(tracer *tracing.Tracer) *Coordinator {
	c.tracer = tracer
	return c
}

// Pending returns the field awaiting a result, if any.
func (c *Coordinator) Pending() (Target, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Target{}, false
	}
	return *c.pending, true
}

// OnTrigger records target as pending and asks its page to gather context.
// If the page cannot be reached the slot is cleared again.
func (c *Coordinator) OnTrigger(ctx context.Context, target Target) error {
	if target.ElementID == "" {
		return errs.New(errs.KindValidation, "trigger", ErrMissingTarget)
	}

	c.mu.Lock()
	t := target
	c.pending = &t
	c.mu.Unlock()

	span, ctx := c.tracer.StartSpan(ctx, "relay.gather")
	span.Tag("origin", target.Origin.String()).Tag("element_id", target.ElementID)

	c.logger.WithContext(ctx).Info("gathering field context",
		zap.Stringer("origin", target.Origin),
		zap.String("element_id", target.ElementID),
	)

	if err := c.send(ctx, target.Origin, types.NewGatherRequest(target.ElementID, target.FrameID)); err != nil {
		c.release(target.Origin, target.ElementID)
		span.End(err)
		return errs.New(errs.KindTransport, "gather", err)
	}
	span.End(nil)
	return nil
}

// HandlePageMessage processes a message reported by the page at origin.
func (c *Coordinator) HandlePageMessage(ctx context.Context, origin Origin, msg types.RelayMessage) error {
	c.metrics.RecordRelayMessage("in", kindOf(msg))

	if msg.Action != types.ActionSendFieldContext {
		c.logger.WithContext(ctx).Warn("ignoring unexpected page message",
			zap.Stringer("origin", origin),
			zap.String("kind", kindOf(msg)),
		)
		return nil
	}

	if msg.Context == nil {
		reason := msg.Error
		if reason == "" {
			reason = MsgNoContext
		}
		c.logger.WithContext(ctx).Warn("page could not gather context",
			zap.Stringer("origin", origin),
			zap.Stringer("kind", errs.KindIneligibleTarget),
			zap.String("reason", reason),
		)
		c.release(origin, "")
		return c.send(ctx, origin, types.NewGenerationError(reason))
	}

	return c.OnContextReceived(ctx, origin, msg.Context)
}

// OnContextReceived generates text for fc and sends the single outcome to
// origin. The pending slot is cleared only if it still names this field.
func (c *Coordinator) OnContextReceived(ctx context.Context, origin Origin, fc *types.FieldContext) error {
	outcome := c.generate(ctx, fc)
	c.release(origin, fc.SourceElementID)

	span, ctx := c.tracer.StartSpan(ctx, "relay.deliver")
	span.Tag("origin", origin.String()).Tag("kind", kindOf(outcome))
	err := c.send(ctx, origin, outcome)
	span.End(err)
	if err != nil {
		c.logger.WithContext(ctx).Error("failed to deliver outcome",
			zap.Stringer("origin", origin),
			zap.String("kind", kindOf(outcome)),
			zap.Error(err),
		)
		return errs.New(errs.KindTransport, "deliver", err)
	}
	return nil
}

func (c *Coordinator) generate(ctx context.Context, fc *types.FieldContext) (msg types.RelayMessage) {
	span, ctx := c.tracer.StartSpan(ctx, "relay.generate")
	span.Tag("element_id", fc.SourceElementID)
	log := c.logger.WithContext(ctx).With(zap.String("element_id", fc.SourceElementID))

	defer func() {
		if r := recover(); r != nil {
			log.Error("unexpected failure generating text", zap.Any("panic", r), zap.Stack("stack"))
			msg = types.NewGenerationError(fmt.Sprintf("Unexpected error: %v", r))
		}
		span.Tag("kind", kindOf(msg))
		if msg.Type == types.TypeLLMResponse {
			span.End(nil)
			return
		}
		span.End(errors.New(msg.Message))
	}()

	sess, err := c.sessions.Current(ctx)
	if err != nil {
		log.Error("error getting session", zap.Stringer("kind", errs.KindAuthentication), zap.Error(err))
		return types.NewGenerationError("Error getting session: " + err.Error())
	}
	if sess == nil {
		log.Warn("not logged in", zap.Stringer("kind", errs.KindAuthentication))
		return types.NewAuthRequired(MsgLoginRequired)
	}

	reply, err := c.proxy.Generate(ctx, sess.AccessToken, fc)
	span.SetStatus(reply.Status)
	if err != nil {
		log.Error("proxy call failed", zap.Stringer("kind", errs.KindTransport), zap.Error(err))
		return types.NewGenerationError("Edge function error: " + err.Error())
	}

	switch {
	case reply.Status == http.StatusUnauthorized:
		log.Warn("proxy rejected session", zap.String("proxy_error", reply.Body.Error))
		return types.NewAuthRequired(MsgSessionRejected)
	case reply.Body.Success:
		log.Info("generated text", zap.Int("length", len(reply.Body.GeneratedText)))
		return types.NewGenerationResult(reply.Body.GeneratedText)
	default:
		message := reply.Body.Error
		if message == "" {
			message = MsgUnknownProxy
		}
		log.Warn("proxy reported an error", zap.Int("status", reply.Status), zap.String("proxy_error", message))
		return types.NewGenerationError(message)
	}
}

// release clears the pending slot if it belongs to origin and, when given,
// elementID. A newer trigger elsewhere keeps its slot.
func (c *Coordinator) release(origin Origin, elementID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil || c.pending.Origin != origin {
		return
	}
	if elementID != "" && c.pending.ElementID != elementID {
		return
	}
	c.pending = nil
}

func (c *Coordinator) send(ctx context.Context, origin Origin, msg types.RelayMessage) error {
	if err := c.pages.Send(ctx, origin, msg); err != nil {
		return err
	}
	c.metrics.RecordRelayMessage("out", kindOf(msg))
	return nil
}
