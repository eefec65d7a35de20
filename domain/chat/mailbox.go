package chat

// Mailbox keeps every private message addressed to one display name,
// in arrival order. It outlives the connections using that name.
type Mailbox struct {
	Owner    string
	messages []Message
}

func NewMailbox(owner string) *Mailbox {
	return &Mailbox{Owner: owner}
}

func (m *Mailbox) Deliver(message Message) {
	m.messages = append(m.messages, message.Clone())
}

func (m *Mailbox) Replay() []Message {
	return cloneAll(m.messages)
}

func (m *Mailbox) Find(id MessageID) (Message, bool) {
	i := indexOf(m.messages, id)
	if i < 0 {
		return Message{}, false
	}
	return m.messages[i].Clone(), true
}

func (m *Mailbox) MarkRead(id MessageID) (Message, bool) {
	i := indexOf(m.messages, id)
	if i < 0 {
		return Message{}, false
	}
	m.messages[i].Read = true
	return m.messages[i].Clone(), true
}

func (m *Mailbox) React(id MessageID, reactor, symbol string) (Message, bool) {
	i := indexOf(m.messages, id)
	if i < 0 {
		return Message{}, false
	}
	m.messages[i].React(reactor, symbol)
	return m.messages[i].Clone(), true
}

func (m *Mailbox) Len() int {
	return len(m.messages)
}
