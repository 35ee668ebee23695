package relay

import (
	"context"
	"fmt"
	"sync"

	"github.com/GriffinCanCode/formfill/internal/shared/types"
)

// Bus connects pages and a coordinator in one process. Delivery is
// synchronous: Send returns after the page has handled the message.
type Bus struct {
	mu          sync.RWMutex
	pages       map[Origin]*Page
	coordinator *Coordinator
}

// NewBus creates an empty bus.
func NewBus() *Bus {
	return &Bus{pages: make(map[Origin]*Page)}
}

// Bind routes page reports to c.
func (b *Bus) Bind(c *Coordinator) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.coordinator = c
}

// Attach registers page at origin, replacing any earlier page there.
func (b *Bus) Attach(origin Origin, page *Page) {
	b.mu.Lock()
	b.pages[origin] = page
	b.mu.Unlock()

	page.Connect(UplinkFunc(func(ctx context.Context, msg types.RelayMessage) error {
		b.mu.RLock()
		c := b.coordinator
		b.mu.RUnlock()
		if c == nil {
			return fmt.Errorf("no coordinator bound")
		}
		return c.HandlePageMessage(ctx, origin, msg)
	}))
}

// Detach removes the page at origin.
func (b *Bus) Detach(origin Origin) {
	b.mu.Lock()
	defer b.mu.Unlock()
	delete(b.pages, origin)
}

// Send delivers msg to the page at origin.
func (b *Bus) Send(ctx context.Context, origin Origin, msg types.RelayMessage) error {
	b.mu.RLock()
	page, ok := b.pages[origin]
	b.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNoPage, origin)
	}
	return page.Handle(ctx, msg)
}
