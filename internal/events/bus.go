package events

import (
	"sync"
	"time"

	"github.com/epicmotionSD/openconductor-sub010/internal/api"
	"github.com/epicmotionSD/openconductor-sub010/pkg/logging"
)

// subscriberBuffer is the per-subscriber channel capacity. A subscriber that
// falls this far behind starts missing events instead of blocking publishers.
const subscriberBuffer = 100

// Bus renders lifecycle events and fans them out to subscribers. Publishing
// never blocks: the deployment and validation hot paths must not wait on a
// slow listener.
type Bus struct {
	mu          sync.RWMutex
	subscribers []chan api.LifecycleEvent
	templates   *MessageTemplateEngine
	closed      bool

	// now is replaceable in tests.
	now func() time.Time
}

// NewBus creates an event bus with the default message templates.
func NewBus() *Bus {
	return &Bus{
		templates: NewMessageTemplateEngine(),
		now:       time.Now,
	}
}

// Subscribe returns a channel receiving every event published after the
// call. The channel is closed when the bus closes.
func (b *Bus) Subscribe() <-chan api.LifecycleEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan api.LifecycleEvent, subscriberBuffer)
	if b.closed {
		close(ch)
		return ch
	}
	b.subscribers = append(b.subscribers, ch)
	return ch
}

// Emit renders the message for reason and fans the event out to every
// subscriber.
func (b *Bus) Emit(reason EventReason, data EventData) {
	event := api.LifecycleEvent{
		Reason:    string(reason),
		Type:      string(getEventType(reason)),
		Slug:      data.Slug,
		Message:   b.templates.Render(reason, data),
		Timestamp: b.now(),
	}

	logging.Debug("Events", "Emitting event: reason=%s, message=%s, type=%s",
		event.Reason, event.Message, event.Type)

	// Sends stay under the read lock so Close cannot close a channel out
	// from under an in-flight send. They never block regardless.
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.closed {
		return
	}
	for _, subscriber := range b.subscribers {
		select {
		case subscriber <- event:
		default:
			// Don't block if the subscriber can't receive immediately
			logging.Debug("Events", "Subscriber blocked, skipping event %s for %s", event.Reason, event.Slug)
		}
	}
}

// SetTemplate customizes the message template for a specific event reason.
// Call during wiring, before the first Emit.
func (b *Bus) SetTemplate(reason EventReason, template string) {
	b.templates.SetTemplate(reason, template)
}

// GetTemplate returns the template for a specific event reason.
func (b *Bus) GetTemplate(reason EventReason) (string, bool) {
	return b.templates.GetTemplate(reason)
}

// Close closes every subscriber channel. Emit calls after Close are dropped.
func (b *Bus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil
	}
	b.closed = true
	for _, subscriber := range b.subscribers {
		close(subscriber)
	}
	b.subscribers = nil
	return nil
}
