package runtime

import (
	"chat-relay/domain/chat"
	"chat-relay/errors"
	"fmt"
	"sync"
)

type guardedMailbox struct {
	mu      sync.Mutex
	mailbox *chat.Mailbox
}

// MailboxStore keeps private messages per display name, not per connection,
// so a later connection claiming the name gets them replayed.
// Mailboxes grow without bound.
type MailboxStore struct {
	mu        sync.RWMutex
	mailboxes map[string]*guardedMailbox
}

func NewMailboxStore() *MailboxStore {
	return &MailboxStore{mailboxes: make(map[string]*guardedMailbox)}
}

func (s *MailboxStore) ensure(name string) *guardedMailbox {
	s.mu.RLock()
	g, ok := s.mailboxes[name]
	s.mu.RUnlock()
	if ok {
		return g
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok = s.mailboxes[name]; !ok {
		g = &guardedMailbox{mailbox: chat.NewMailbox(name)}
		s.mailboxes[name] = g
	}
	return g
}

func (s *MailboxStore) lookup(name string) (*guardedMailbox, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	g, ok := s.mailboxes[name]
	return g, ok
}

// DeliverPrivate enqueues message for recipient whether or not anyone
// currently uses that name.
func (s *MailboxStore) DeliverPrivate(recipient string, message chat.Message) {
	g := s.ensure(recipient)
	g.mu.Lock()
	defer g.mu.Unlock()
	g.mailbox.Deliver(message)
}

// Replay returns everything ever delivered to name, oldest first.
func (s *MailboxStore) Replay(name string) []chat.Message {
	g, ok := s.lookup(name)
	if !ok {
		return []chat.Message{}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.mailbox.Replay()
}

func (s *MailboxStore) mutate(name string, id chat.MessageID, fn func(m *chat.Mailbox) (chat.Message, bool)) (chat.Message, error) {
	g, ok := s.lookup(name)
	if !ok {
		return chat.Message{}, fmt.Errorf("%w: mailbox %q", errors.ErrNotFound, name)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	message, found := fn(g.mailbox)
	if !found {
		return chat.Message{}, fmt.Errorf("%w: message %d in mailbox %q", errors.ErrNotFound, id, name)
	}
	return message, nil
}

func (s *MailboxStore) Find(name string, id chat.MessageID) (chat.Message, error) {
	return s.mutate(name, id, func(m *chat.Mailbox) (chat.Message, bool) {
		return m.Find(id)
	})
}

func (s *MailboxStore) MarkRead(name string, id chat.MessageID) (chat.Message, error) {
	return s.mutate(name, id, func(m *chat.Mailbox) (chat.Message, bool) {
		return m.MarkRead(id)
	})
}

func (s *MailboxStore) React(name string, id chat.MessageID, reactor, symbol string) (chat.Message, error) {
	return s.mutate(name, id, func(m *chat.Mailbox) (chat.Message, bool) {
		return m.React(id, reactor, symbol)
	})
}

func (s *MailboxStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.mailboxes)
}

// MessageCount is the number of private messages queued across mailboxes.
func (s *MailboxStore) MessageCount() int {
	s.mu.RLock()
	mailboxes := make([]*guardedMailbox, 0, len(s.mailboxes))
	for _, g := range s.mailboxes {
		mailboxes = append(mailboxes, g)
	}
	s.mu.RUnlock()

	total := 0
	for _, g := range mailboxes {
		g.mu.Lock()
		total += g.mailbox.Len()
		g.mu.Unlock()
	}
	return total
}
