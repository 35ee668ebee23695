package relay

import (
	"context"
	"sync"

	"github.com/GriffinCanCode/formfill/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/formfill/internal/providers/identity"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

type sent struct {
	origin Origin
	msg    types.RelayMessage
}

// recorder is a PageTransport that records every message.
type recorder struct {
	mu   sync.Mutex
	msgs []sent
	err  error
}

func (r *recorder) Send(_ context.Context, origin Origin, msg types.RelayMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.msgs = append(r.msgs, sent{origin: origin, msg: msg})
	return nil
}

func (r *recorder) all() []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sent(nil), r.msgs...)
}

type fakeSessions struct {
	session *identity.Session
	err     error
}

func (f fakeSessions) Current(context.Context) (*identity.Session, error) {
	return f.session, f.err
}

func loggedIn() fakeSessions {
	return fakeSessions{session: &identity.Session{AccessToken: "user-jwt"}}
}

type proxyCall struct {
	token string
	fc    *types.FieldContext
	trace tracing.TraceID
}

// fakeProxy answers every call with reply or err.
type fakeProxy struct {
	mu    sync.Mutex
	calls []proxyCall
	reply Reply
	err   error
	panic bool
}

func (f *fakeProxy) Generate(ctx context.Context, token string, fc *types.FieldContext) (Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.panic {
		panic("proxy exploded")
	}
	f.calls = append(f.calls, proxyCall{token: token, fc: fc, trace: tracing.GetTraceID(ctx)})
	return f.reply, f.err
}

func (f *fakeProxy) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func succeed(text string) *fakeProxy {
	return &fakeProxy{reply: Reply{Status: 200, Body: types.Succeeded(text)}}
}
