package eventbus

import (
	"sync"
	"sync/atomic"
	"time"
)

// Event types published by the campaign runner.
const (
	TypeOccurrenceFired    = "campaign.occurrence_fired"
	TypeOccurrenceRecorded = "campaign.occurrence_recorded"
	TypeCampaignCompleted  = "campaign.completed"
	TypeTickFailed         = "campaign.tick_failed"
	TypeConfigReloaded     = "config.reloaded"
)

// Event is an in-memory signal. Publish never blocks; a subscriber whose
// buffer is full misses events.
type Event struct {
	Type string
	Time time.Time
	Data any
}

// OccurrenceData is the payload of occurrence events.
type OccurrenceData struct {
	CampaignID string    `json:"campaign_id"`
	Raw        string    `json:"raw"`
	At         time.Time `json:"at"`
	Sent       int       `json:"sent,omitempty"`
	Failed     int       `json:"failed,omitempty"`
}

type Bus interface {
	Publish(e Event)
	Subscribe(buffer int) (ch <-chan Event, unsubscribe func())
}

// New returns an in-memory fan-out bus. It owns no goroutines.
func New() Bus {
	return &memBus{subs: map[uint64]chan Event{}}
}

type memBus struct {
	mu   sync.RWMutex
	subs map[uint64]chan Event
	seq  atomic.Uint64
}

func (b *memBus) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	// Sends happen under the read lock; unsubscribe takes the write lock
	// before closing, so a send never hits a closed channel.
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

func (b *memBus) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer <= 0 {
		buffer = 8
	}
	ch := make(chan Event, buffer)
	id := b.seq.Add(1)

	b.mu.Lock()
	b.subs[id] = ch
	b.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			b.mu.Lock()
			delete(b.subs, id)
			close(ch)
			b.mu.Unlock()
		})
	}
}
