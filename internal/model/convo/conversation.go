package convo

// Conversation holds the ordered turn history for one connection.
// It is owned exclusively by that connection's handler goroutine, so it
// carries no locking.
type Conversation struct {
	turns []Turn
}

// New returns an empty conversation.
func New() *Conversation {
	return &Conversation{turns: make([]Turn, 0, 8)}
}

// Append adds a turn to the end of the history.
func (c *Conversation) Append(role Role, content string) {
	c.turns = append(c.turns, Turn{Role: role, Content: content})
}

// Len reports the number of turns recorded so far.
func (c *Conversation) Len() int {
	return len(c.turns)
}

// Snapshot returns a copy of the history safe to hand to collaborators.
func (c *Conversation) Snapshot() []Turn {
	copied := make([]Turn, len(c.turns))
	copy(copied, c.turns)
	return copied
}

// Loggable reports whether the conversation contains a real exchange,
// i.e. at least one user turn beyond the seeded system and welcome turns.
func (c *Conversation) Loggable() bool {
	for _, t := range c.turns {
		if t.Role == RoleUser {
			return true
		}
	}
	return false
}
