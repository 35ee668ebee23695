package relay

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GriffinCanCode/formfill/internal/domain/generation"
	"github.com/GriffinCanCode/formfill/internal/extractor"
	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

const pageHTML = `<!DOCTYPE html>
<html><body>
<form>
  <label for="email">Email address</label>
  <input id="email" type="email" value="ada@">
  <textarea id="bio" placeholder="Write a bio"></textarea>
  <input id="agree" type="checkbox">
</form>
</body></html>`

type notices struct {
	mu   sync.Mutex
	list []Notice
}

func (n *notices) notify(notice Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.list = append(n.list, notice)
}

func (n *notices) all() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Notice(nil), n.list...)
}

type wired struct {
	doc     *extractor.Document
	page    *Page
	proxy   *fakeProxy
	coord   *Coordinator
	notices *notices
	events  *[]extractor.Event
}

func wire(t *testing.T, sessions SessionSource, proxy *fakeProxy) *wired {
	t.Helper()
	doc, err := extractor.LoadString(pageHTML)
	require.NoError(t, err)

	var events []extractor.Event
	doc.AddEventListener(func(e extractor.Event) { events = append(events, e) })

	n := &notices{}
	bus := NewBus()
	page := NewPage(doc, n.notify, nil)
	bus.Attach(tab1, page)
	coord := NewCoordinator(bus, sessions, proxy, nil)
	bus.Bind(coord)

	return &wired{doc: doc, page: page, proxy: proxy, coord: coord, notices: n, events: &events}
}

func fieldValue(t *testing.T, doc *extractor.Document, id string) string {
	t.Helper()
	fc, ok := doc.Extract(id)
	require.True(t, ok)
	return types.Value(fc.CurrentValue)
}

// TestFillBioEndToEnd follows one fill of an unlabelled textarea from
// trigger to applied text.
func TestFillBioEndToEnd(t *testing.T) {
	w := wire(t, loggedIn(), succeed("Gopher by day, baker by night."))

	require.NoError(t, w.coord.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "bio"}))

	require.Len(t, w.proxy.calls, 1)
	fc := w.proxy.calls[0].fc
	assert.Equal(t, "textarea", fc.FieldType)
	assert.Equal(t, "Write a bio", types.Value(fc.Placeholder))
	assert.Nil(t, fc.LabelText)
	assert.Nil(t, fc.CurrentValue)
	assert.Equal(t, "bio", fc.SourceElementID)
	assert.Equal(t,
		`Given a web form field, placeholder "Write a bio". Suggest an appropriate and concise completion or value for this field. If the context is insufficient, provide a generic placeholder or a polite refusal.`,
		generation.BuildPrompt(fc))

	assert.Equal(t, "Gopher by day, baker by night.", fieldValue(t, w.doc, "bio"))
	require.Len(t, *w.events, 2)
	assert.Equal(t, extractor.EventInput, (*w.events)[0].Type)
	assert.Equal(t, extractor.EventChange, (*w.events)[1].Type)
	assert.True(t, (*w.events)[0].Bubbles && (*w.events)[0].Cancelable)

	assert.Empty(t, w.page.LastTarget())
	_, pending := w.coord.Pending()
	assert.False(t, pending)
	assert.Empty(t, w.notices.all())
}

func TestFillLabelledInput(t *testing.T) {
	w := wire(t, loggedIn(), succeed("ada@example.com"))

	require.NoError(t, w.coord.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "email"}))

	fc := w.proxy.calls[0].fc
	assert.Equal(t, "Email address", types.Value(fc.LabelText))
	assert.Equal(t, "ada@", types.Value(fc.CurrentValue))
	assert.Equal(t, "ada@example.com", fieldValue(t, w.doc, "email"))
}

func TestIneligibleTargetNotifiesPage(t *testing.T) {
	w := wire(t, loggedIn(), succeed("unused"))

	require.NoError(t, w.coord.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "agree"}))

	assert.Zero(t, w.proxy.callCount())
	got := w.notices.all()
	require.Len(t, got, 1)
	assert.Equal(t, types.TypeLLMError, got[0].Type)
	assert.Contains(t, got[0].Message, "Could not gather context for element ID: agree")
	assert.Empty(t, w.page.LastTarget())
	_, pending := w.coord.Pending()
	assert.False(t, pending)
}

func TestLoggedOutNotifiesPage(t *testing.T) {
	w := wire(t, fakeSessions{}, succeed("unused"))

	require.NoError(t, w.coord.OnTrigger(context.Background(), Target{Origin: tab1, ElementID: "bio"}))

	got := w.notices.all()
	require.Len(t, got, 1)
	assert.Equal(t, Notice{Type: types.TypeAuthRequired, Message: MsgLoginRequired, ElementID: "bio"}, got[0])
	assert.Empty(t, fieldValue(t, w.doc, "bio"))
	assert.Empty(t, *w.events)
}

func TestPageIgnoresResultWithoutTarget(t *testing.T) {
	doc, err := extractor.LoadString(pageHTML)
	require.NoError(t, err)
	page := NewPage(doc, nil, nil)

	require.NoError(t, page.Handle(context.Background(), types.NewGenerationResult("stray")))

	assert.Empty(t, fieldValue(t, doc, "bio"))
}

func TestPageWithoutUplink(t *testing.T) {
	doc, err := extractor.LoadString(pageHTML)
	require.NoError(t, err)
	page := NewPage(doc, nil, nil)

	assert.Error(t, page.Handle(context.Background(), types.NewGatherRequest("bio", 0)))
}

func TestBusUnknownOrigin(t *testing.T) {
	bus := NewBus()
	err := bus.Send(context.Background(), tab2, types.NewGatherRequest("bio", 3))
	assert.ErrorIs(t, err, ErrNoPage)
}
