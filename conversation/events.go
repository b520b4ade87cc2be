package conversation

// Event is one inbound message from the transport. When Command is set,
// Text carries the command name (for example "start" or "help") without
// any transport-specific prefix.
type Event struct {
	UserID  string
	Text    string
	Command bool
}

// Reply is an outbound message intent. Options, when present, are
// quick-reply suggestions the transport may render as buttons.
type Reply struct {
	UserID  string
	Text    string
	Options []string
}
