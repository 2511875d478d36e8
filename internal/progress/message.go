package progress

import "strings"

// Kind classifies a progress message.
type Kind int

const (
	KindAnnounce Kind = iota
	KindStdout
	KindStderr
	KindSucceeded
	KindFailed
	KindSpawnFailed
	KindSkipped
	KindComplete
	KindNotice
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindAnnounce:
		return "announce"
	case KindStdout:
		return "stdout"
	case KindStderr:
		return "stderr"
	case KindSucceeded:
		return "succeeded"
	case KindFailed:
		return "failed"
	case KindSpawnFailed:
		return "spawn_failed"
	case KindSkipped:
		return "skipped"
	case KindComplete:
		return "complete"
	case KindNotice:
		return "notice"
	case KindError:
		return "error"
	default:
		return "unknown"
	}
}

// IsStatus reports whether k closes out one program in a batch.
func (k Kind) IsStatus() bool {
	return k == KindSucceeded || k == KindFailed || k == KindSpawnFailed
}

// Message is one unit of progress text. Batch is empty for messages that do
// not belong to a build batch (preset saves, rejected invocations).
type Message struct {
	Kind    Kind   `json:"kind"`
	Batch   string `json:"batch,omitempty"`
	Program string `json:"program,omitempty"`
	Text    string `json:"text"`
}

func (m Message) String() string {
	return m.Text
}

// Log accumulates drained messages in arrival order.
type Log struct {
	messages []Message
}

// Append adds messages to the end of the log.
func (l *Log) Append(msgs ...Message) {
	l.messages = append(l.messages, msgs...)
}

// Messages returns a copy of the accumulated messages.
func (l *Log) Messages() []Message {
	return append([]Message(nil), l.messages...)
}

// Len returns the number of accumulated messages.
func (l *Log) Len() int {
	return len(l.messages)
}

// Reset empties the log.
func (l *Log) Reset() {
	l.messages = nil
}

// Text renders the log as newline-terminated message text.
func (l *Log) Text() string {
	var b strings.Builder
	for _, m := range l.messages {
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return b.String()
}
