package extractor

// Event types dispatched when a field value is replaced.
const (
	EventInput  = "input"
	EventChange = "change"
)

// Event is a change notification for a field.
type Event struct {
	Type       string
	TargetID   string
	Value      string
	Bubbles    bool
	Cancelable bool
}

// Listener observes events dispatched by a Document.
type Listener func(Event)

// AddEventListener registers a document-level listener. Events bubble, so a
// document listener sees every field notification.
func (d *Document) AddEventListener(l Listener) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners = append(d.listeners, l)
}

// Apply replaces the value of the element with the given id and dispatches an
// "input" event followed by a "change" event. It returns false when the
// element is no longer present.
func (d *Document) Apply(elementID, text string) bool {
	d.mu.Lock()
	field := d.elementByID(elementID)
	if field == nil {
		d.mu.Unlock()
		return false
	}
	if TagName(field) == "TEXTAREA" {
		field.SetText(text)
	} else {
		field.SetAttr("value", text)
	}
	listeners := append([]Listener(nil), d.listeners...)
	d.mu.Unlock()

	for _, eventType := range []string{EventInput, EventChange} {
		evt := Event{
			Type:       eventType,
			TargetID:   elementID,
			Value:      text,
			Bubbles:    true,
			Cancelable: true,
		}
		for _, l := range listeners {
			l(evt)
		}
	}
	return true
}
