package mail

// Transport delivers messages between agents. The in-process router
// implements it over mailbox queues; a networked implementation could
// be substituted without changing agent logic.
type Transport interface {
	// Send delivers a message to the named agent's inbound queue.
	// Delivery to an unknown agent returns an error.
	Send(agentID string, m *Message) error
	// Receive pops the next inbound message for the named agent.
	// The second return is false when no message is waiting or the
	// agent is unknown.
	Receive(agentID string) (*Message, bool)
}
