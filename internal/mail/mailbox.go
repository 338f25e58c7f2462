package mail

import "sync"

// Queue is an unbounded FIFO message queue, safe for concurrent
// producers and consumers. With preempt ordering enabled,
// preempt-flagged messages enqueue ahead of normal ones but keep FIFO
// order among themselves.
type Queue struct {
	mu      sync.Mutex
	msgs    []*Message
	preempt bool
}

// NewQueue creates an empty queue. Preempt ordering is off: the
// preempt flag is advisory metadata unless enabled via mailbox option.
func NewQueue() *Queue {
	return &Queue{}
}

// Push appends a message to the queue.
func (q *Queue) Push(m *Message) {
	if m == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.preempt && m.Preempt {
		// Insert after the last preempt message already queued.
		i := 0
		for i < len(q.msgs) && q.msgs[i].Preempt {
			i++
		}
		q.msgs = append(q.msgs, nil)
		copy(q.msgs[i+1:], q.msgs[i:])
		q.msgs[i] = m
		return
	}
	q.msgs = append(q.msgs, m)
}

// Pop removes and returns the head of the queue. The second return
// is false when the queue is empty.
func (q *Queue) Pop() (*Message, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.msgs) == 0 {
		return nil, false
	}
	m := q.msgs[0]
	q.msgs[0] = nil
	q.msgs = q.msgs[1:]
	return m, true
}

// Drain removes and returns every queued message in order. Messages
// pushed after Drain starts are not included.
func (q *Queue) Drain() []*Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.msgs
	q.msgs = nil
	return out
}

// Len returns the number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.msgs)
}

// Empty reports whether the queue has no messages.
func (q *Queue) Empty() bool {
	return q.Len() == 0
}

// Mailbox pairs the inbound and outbound queues of one agent.
type Mailbox struct {
	inbound  *Queue
	outbound *Queue
}

// Option configures a Mailbox.
type Option func(*Mailbox)

// WithPreempt enables preempt ordering on both queues: messages with
// the preempt flag enqueue ahead of normal messages.
func WithPreempt(enabled bool) Option {
	return func(mb *Mailbox) {
		mb.inbound.preempt = enabled
		mb.outbound.preempt = enabled
	}
}

// NewMailbox creates a mailbox with empty inbound and outbound queues.
func NewMailbox(opts ...Option) *Mailbox {
	mb := &Mailbox{
		inbound:  NewQueue(),
		outbound: NewQueue(),
	}
	for _, opt := range opts {
		opt(mb)
	}
	return mb
}

// Inbound returns the inbound queue.
func (mb *Mailbox) Inbound() *Queue {
	return mb.inbound
}

// Outbound returns the outbound queue.
func (mb *Mailbox) Outbound() *Queue {
	return mb.outbound
}
