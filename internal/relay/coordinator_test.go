package relay

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formfill/internal/shared/errs"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

var (
	tab1 = Origin{TabID: 1, FrameID: 0}
	tab2 = Origin{TabID: 2, FrameID: 3}
)

func bio() *types.FieldContext {
	placeholder := "Write a bio"
	return &types.FieldContext{Placeholder: &placeholder, FieldType: "textarea", SourceElementID: "bio"}
}

func TestTriggerSendsGatherRequest(t *testing.T) {
	pages := &recorder{}
	c := NewCoordinator(pages, loggedIn(), succeed("x"), nil)

	require.NoError(t, c.OnTrigger(context.Background(), Target{Origin: tab2, ElementID: "bio"}))

	msgs := pages.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, tab2, msgs[0].origin)
	assert.Equal(t, types.NewGatherRequest("bio", 3), msgs[0].msg)

	pending, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, Target{Origin: tab2, ElementID: "bio"}, pending)
}

func TestTriggerRequiresElement(t *testing.T) {
	pages := &recorder{}
	c := NewCoordinator(pages, loggedIn(), succeed("x"), nil)

	err := c.OnTrigger(context.Background(), Target{Origin: tab1})

	assert.True(t, errs.Is(err, errs.KindValidation))
	assert.ErrorIs(t, err, ErrMissingTarget)
	assert.Empty(t, pages.all())
	_, ok := c.Pending()
	assert.False(t, ok)
}

func TestTriggerTransportFailureClearsSlot(t *testing.T) {
	pages := &recorder{err: ErrNoPage}
	c := NewCoordinator(pages, loggedIn(), succeed("x"), nil)

	err := c.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "bio"})

	assert.True(t, errs.Is(err, errs.KindTransport))
	assert.ErrorIs(t, err, ErrNoPage)
	_, ok := c.Pending()
	assert.False(t, ok)
}

func TestContextOutcomes(t *testing.T) {
	tests := []struct {
		name      string
		sessions  fakeSessions
		proxy     *fakeProxy
		want      types.RelayMessage
		wantCalls int
	}{
		{
			name:      "generated text",
			sessions:  loggedIn(),
			proxy:     succeed("I bake bread."),
			want:      types.NewGenerationResult("I bake bread."),
			wantCalls: 1,
		},
		{
			name:     "session store error",
			sessions: fakeSessions{err: errors.New("disk on fire")},
			proxy:    succeed("unused"),
			want:     types.NewGenerationError("Error getting session: disk on fire"),
		},
		{
			name:     "logged out",
			sessions: fakeSessions{},
			proxy:    succeed("unused"),
			want:     types.NewAuthRequired(MsgLoginRequired),
		},
		{
			name:      "proxy unreachable",
			sessions:  loggedIn(),
			proxy:     &fakeProxy{err: errors.New("llm-proxy request failed: connection refused")},
			want:      types.NewGenerationError("Edge function error: llm-proxy request failed: connection refused"),
			wantCalls: 1,
		},
		{
			name:      "proxy rejects token",
			sessions:  loggedIn(),
			proxy:     &fakeProxy{reply: Reply{Status: http.StatusUnauthorized, Body: types.Failed("Invalid or expired JWT.")}},
			want:      types.NewAuthRequired(MsgSessionRejected),
			wantCalls: 1,
		},
		{
			name:      "key not set up",
			sessions:  loggedIn(),
			proxy:     &fakeProxy{reply: Reply{Status: http.StatusForbidden, Body: types.Failed("OpenAI API key not set up for this user.")}},
			want:      types.NewGenerationError("OpenAI API key not set up for this user."),
			wantCalls: 1,
		},
		{
			name:      "proxy error without message",
			sessions:  loggedIn(),
			proxy:     &fakeProxy{reply: Reply{Status: http.StatusInternalServerError}},
			want:      types.NewGenerationError(MsgUnknownProxy),
			wantCalls: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pages := &recorder{}
			c := NewCoordinator(pages, tt.sessions, tt.proxy, nil)
			require.NoError(t, c.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "bio"}))

			require.NoError(t, c.HandlePageMessage(context.Background(), tab1, types.NewContextReport(bio())))

			msgs := pages.all()
			require.Len(t, msgs, 2, "gather request plus exactly one outcome")
			assert.Equal(t, tab1, msgs[1].origin)
			assert.Equal(t, tt.want, msgs[1].msg)
			assert.Equal(t, tt.wantCalls, tt.proxy.callCount())

			_, ok := c.Pending()
			assert.False(t, ok)
		})
	}
}

func TestProxyReceivesSessionToken(t *testing.T) {
	proxy := succeed("ok")
	c := NewCoordinator(&recorder{}, loggedIn(), proxy, nil)

	require.NoError(t, c.OnContextReceived(context.Background(), tab1, bio()))

	require.Len(t, proxy.calls, 1)
	assert.Equal(t, "user-jwt", proxy.calls[0].token)
	assert.Equal(t, "bio", proxy.calls[0].fc.SourceElementID)
}

func TestGatherFailureSurfacesError(t *testing.T) {
	pages := &recorder{}
	proxy := succeed("unused")
	c := NewCoordinator(pages, loggedIn(), proxy, nil)
	require.NoError(t, c.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "agree"}))

	require.NoError(t, c.HandlePageMessage(context.Background(), tab1, types.NewContextFailure("not eligible")))

	msgs := pages.all()
	require.Len(t, msgs, 2)
	assert.Equal(t, types.NewGenerationError("not eligible"), msgs[1].msg)
	assert.Zero(t, proxy.callCount())
	_, ok := c.Pending()
	assert.False(t, ok)

	require.NoError(t, c.HandlePageMessage(context.Background(), tab1, types.RelayMessage{Action: types.ActionSendFieldContext}))
	assert.Equal(t, types.NewGenerationError(MsgNoContext), pages.all()[2].msg)
}

func TestLastTriggerWins(t *testing.T) {
	pages := &recorder{}
	c := NewCoordinator(pages, loggedIn(), succeed("text"), nil)

	require.NoError(t, c.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "first"}))
	require.NoError(t, c.OnTrigger(context.Background(), Target{Origin: tab2, ElementID: "second"}))

	pending, ok := c.Pending()
	require.True(t, ok)
	assert.Equal(t, "second", pending.ElementID)

	// The superseded request still completes and answers its own page.
	first := bio()
	first.SourceElementID = "first"
	require.NoError(t, c.OnContextReceived(context.Background(), tab1, first))

	msgs := pages.all()
	assert.Equal(t, tab1, msgs[len(msgs)-1].origin)
	pending, ok = c.Pending()
	require.True(t, ok, "a newer trigger keeps its slot")
	assert.Equal(t, "second", pending.ElementID)
}

func TestUnexpectedPageMessagesAreIgnored(t *testing.T) {
	pages := &recorder{}
	proxy := succeed("unused")
	c := NewCoordinator(pages, loggedIn(), proxy, nil)

	require.NoError(t, c.HandlePageMessage(context.Background(), tab1, types.NewGenerationResult("spoofed")))

	assert.Empty(t, pages.all())
	assert.Zero(t, proxy.callCount())
}

func TestProxyPanicBecomesError(t *testing.T) {
	pages := &recorder{}
	c := NewCoordinator(pages, loggedIn(), &fakeProxy{panic: true}, nil)

	require.NotPanics(t, func() {
		require.NoError(t, c.OnContextReceived(context.Background(), tab1, bio()))
	})

	msgs := pages.all()
	require.Len(t, msgs, 1)
	assert.Equal(t, types.TypeLLMError, msgs[0].msg.Type)
	assert.Contains(t, msgs[0].msg.Message, "Unexpected error")
}

func TestDeliveryFailureIsTransportError(t *testing.T) {
	c := NewCoordinator(&recorder{err: errors.New("tab closed")}, loggedIn(), succeed("x"), nil)

	err := c.OnContextReceived(context.Background(), tab1, bio())

	assert.True(t, errs.Is(err, errs.KindTransport))
}

func TestFillStagesAreTraced(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := tracing.New("relay", zap.New(core))
	defer tracer.Close()

	pages := &recorder{}
	proxy := succeed("traced")
	c := NewCoordinator(pages, loggedIn(), proxy, nil).WithTracer(tracer)

	fill, ctx := tracer.StartSpan(context.Background(), "relay.fill")
	require.NoError(t, c.OnContextReceived(ctx, tab1, bio()))

	require.Len(t, proxy.calls, 1)
	assert.Equal(t, fill.TraceID, proxy.calls[0].trace, "proxy call continues the fill's trace")

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stage finished").Len() == 2
	}, time.Second, 5*time.Millisecond)
	var ops []string
	for _, e := range logs.FilterMessage("stage finished").All() {
		ops = append(ops, e.ContextMap()["operation"].(string))
	}
	assert.ElementsMatch(t, []string{"relay.generate", "relay.deliver"}, ops)
}

func TestFailedGenerationSpanCarriesError(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	tracer := tracing.New("relay", zap.New(core))
	defer tracer.Close()

	c := NewCoordinator(&recorder{}, fakeSessions{}, succeed("unused"), nil).WithTracer(tracer)
	require.NoError(t, c.OnContextReceived(context.Background(), tab1, bio()))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("stage failed").Len() == 1
	}, time.Second, 5*time.Millisecond)
	entry := logs.FilterMessage("stage failed").All()[0]
	assert.Equal(t, "relay.generate", entry.ContextMap()["operation"])
	assert.Equal(t, types.TypeAuthRequired, entry.ContextMap()["kind"])
}
