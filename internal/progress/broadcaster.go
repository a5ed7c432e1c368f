// Package progress fans stage transition events out to a dynamic set of
// subscribers keyed by document and, optionally, by requesting user.
package progress

import (
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Update is one emitted progress event. Immutable, never persisted.
type Update struct {
	DocumentID      uuid.UUID `json:"documentId"`
	Stage           string    `json:"stage"`
	PercentComplete int       `json:"percentComplete"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
}

// Callback receives one update. Returning an error marks the subscriber
// dead and removes it from the registry.
type Callback func(Update) error

type subscriber struct {
	handle string
	userID uuid.UUID
	fn     Callback
	closed atomic.Bool
}

// Broadcaster is the observer registry shared across concurrent runs.
// Safe for concurrent subscribe/unsubscribe/broadcast.
type Broadcaster struct {
	mu   sync.RWMutex
	docs map[uuid.UUID]map[string]*subscriber
}

func NewBroadcaster() *Broadcaster {
	return &Broadcaster{docs: make(map[uuid.UUID]map[string]*subscriber)}
}

// Subscribe registers a callback for a document. The handle must be unique
// per document; re-subscribing a handle replaces the previous callback.
// userID may be uuid.Nil for subscribers not tied to a requesting user.
func (b *Broadcaster) Subscribe(documentID uuid.UUID, handle string, userID uuid.UUID, fn Callback) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.docs[documentID]
	if !ok {
		subs = make(map[string]*subscriber)
		b.docs[documentID] = subs
	}
	if old, ok := subs[handle]; ok {
		old.closed.Store(true)
	}
	subs[handle] = &subscriber{handle: handle, userID: userID, fn: fn}
}

// Unsubscribe removes a handle. Removing the last subscriber for a document
// deletes the per-document entry so churn does not grow the registry.
// No new callback deliveries begin after Unsubscribe returns; a callback
// already executing on another goroutine may still complete.
func (b *Broadcaster) Unsubscribe(documentID uuid.UUID, handle string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if s, ok := b.docs[documentID][handle]; ok {
		s.closed.Store(true)
	}
	b.removeLocked(documentID, handle)
}

func (b *Broadcaster) removeLocked(documentID uuid.UUID, handle string) {
	subs, ok := b.docs[documentID]
	if !ok {
		return
	}
	delete(subs, handle)
	if len(subs) == 0 {
		delete(b.docs, documentID)
	}
}

// Broadcast delivers an update to every subscriber of the document.
// Failing subscribers are removed; the broadcast itself never fails.
func (b *Broadcaster) Broadcast(documentID uuid.UUID, u Update) {
	b.deliver(documentID, u, func(*subscriber) bool { return true })
}

// BroadcastToUser restricts delivery to subscribers registered under userID.
func (b *Broadcaster) BroadcastToUser(userID, documentID uuid.UUID, u Update) {
	b.deliver(documentID, u, func(s *subscriber) bool { return s.userID == userID })
}

// SubscriberCount reports the live subscriber count for a document.
func (b *Broadcaster) SubscriberCount(documentID uuid.UUID) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.docs[documentID])
}

func (b *Broadcaster) deliver(documentID uuid.UUID, u Update, match func(*subscriber) bool) {
	b.mu.RLock()
	targets := make([]*subscriber, 0, len(b.docs[documentID]))
	for _, s := range b.docs[documentID] {
		if match(s) {
			targets = append(targets, s)
		}
	}
	b.mu.RUnlock()

	var dead []string
	for _, s := range targets {
		if err := b.invoke(s, u); err != nil {
			dead = append(dead, s.handle)
		}
	}

	if len(dead) == 0 {
		return
	}
	b.mu.Lock()
	for _, handle := range dead {
		b.removeLocked(documentID, handle)
	}
	b.mu.Unlock()
}

// invoke isolates one callback: a panic or error in one subscriber must not
// reach the others or the broadcasting run. Subscribers unsubscribed after
// the delivery snapshot was taken are skipped.
func (b *Broadcaster) invoke(s *subscriber, u Update) (err error) {
	if s.closed.Load() {
		return nil
	}
	defer func() {
		if r := recover(); r != nil {
			zap.L().Warn("progress: subscriber callback panicked",
				zap.String("handle", s.handle),
				zap.Any("panic", r),
			)
			err = errPanicked
		}
	}()
	return s.fn(u)
}

var errPanicked = eris.New("progress: subscriber panicked")
