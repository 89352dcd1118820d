package session

import (
	"sync"

	"github.com/hazadus/go-nowplaying/internal/model"
)

// EventKind вид уведомления менеджера
type EventKind int

const (
	// TrackChanged сменился текущий трек или воспроизведение остановлено
	TrackChanged EventKind = iota
	// PositionAdvanced очередное уведомление о позиции воспроизведения
	PositionAdvanced
	// PlaybackRestored состояние восстановлено после перезапуска
	PlaybackRestored
)

func (k EventKind) String() string {
	switch k {
	case TrackChanged:
		return "track-changed"
	case PositionAdvanced:
		return "position-advanced"
	case PlaybackRestored:
		return "playback-restored"
	}
	return "unknown"
}

// Event уведомление подписчикам. Track пуст, если воспроизведение остановлено.
type Event struct {
	Kind    EventKind
	Track   model.Track
	Seconds float64
}

const subscriptionBuffer = 64

// Subscription подписка на уведомления менеджера
type Subscription struct {
	C <-chan Event

	c    chan Event
	hub  *hub
	once sync.Once
}

// Close отменяет подписку и закрывает канал C
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.hub.remove(s)
	})
}

// hub рассылает уведомления без блокировки: медленный подписчик теряет события
type hub struct {
	mu     sync.Mutex
	subs   map[*Subscription]struct{}
	closed bool
}

func newHub() *hub {
	return &hub{subs: make(map[*Subscription]struct{})}
}

func (h *hub) subscribe() *Subscription {
	c := make(chan Event, subscriptionBuffer)
	s := &Subscription{C: c, c: c, hub: h}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		close(c)
		return s
	}
	h.subs[s] = struct{}{}
	return s
}

func (h *hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s]; ok {
		delete(h.subs, s)
		close(s.c)
	}
}

func (h *hub) publish(events ...Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, ev := range events {
		for s := range h.subs {
			select {
			case s.c <- ev:
			default:
			}
		}
	}
}

func (h *hub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for s := range h.subs {
		delete(h.subs, s)
		close(s.c)
	}
}
