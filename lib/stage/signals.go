package stage

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Message is one notification from a stage.
type Message struct {
	ID      uuid.UUID
	Time    time.Time
	Stage   string
	Payload any
}

// Text returns the payload formatted for the operator.
func (m Message) Text() string {
	if s, ok := m.Payload.(string); ok {
		return s
	}
	return fmt.Sprint(m.Payload)
}

// Signals broadcasts messages from a stage to any number of subscribers.
// Emitting never blocks: a subscriber whose buffer is full misses the message.
type Signals struct {
	source string

	mu     sync.Mutex
	nextID int
	subs   map[int]chan Message

	dropped atomic.Uint64
}

// NewSignals returns a broadcaster whose messages name source.
func NewSignals(source string) *Signals {
	return &Signals{
		source: source,
		subs:   make(map[int]chan Message),
	}
}

// Subscribe returns a channel receiving every later message and a function
// that ends the subscription and closes the channel.
func (s *Signals) Subscribe(buffer int) (<-chan Message, func()) {
	if buffer < 1 {
		buffer = 1
	}
	ch := make(chan Message, buffer)
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
			close(ch)
		})
	}
	return ch, cancel
}

// Emit sends payload to every subscriber.
func (s *Signals) Emit(payload any) {
	m := Message{
		ID:      uuid.New(),
		Time:    time.Now(),
		Stage:   s.source,
		Payload: payload,
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- m:
		default:
			s.dropped.Add(1)
		}
	}
}

// Messagef emits a formatted text message.
func (s *Signals) Messagef(format string, a ...any) {
	s.Emit(fmt.Sprintf(format, a...))
}

// Dropped returns how many deliveries were skipped because a subscriber was
// full.
func (s *Signals) Dropped() uint64 { return s.dropped.Load() }
