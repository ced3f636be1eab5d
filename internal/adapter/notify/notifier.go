package notify

import (
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"github.com/rl1809/cart-store/internal/port"
)

// LogNotifier writes every message as a warning.
type LogNotifier struct {
	log logrus.FieldLogger
}

func NewLogNotifier(log logrus.FieldLogger) *LogNotifier {
	return &LogNotifier{log: log.WithField("component", "notifier")}
}

func (n *LogNotifier) Notify(message string) {
	n.log.Warn(message)
}

// ChannelNotifier buffers messages until they are drained. When the buffer
// is full new messages are dropped and counted.
type ChannelNotifier struct {
	messages chan string
	dropped  atomic.Int64
}

func NewChannelNotifier(size int) *ChannelNotifier {
	if size < 1 {
		size = 1
	}
	return &ChannelNotifier{messages: make(chan string, size)}
}

func (n *ChannelNotifier) Notify(message string) {
	select {
	case n.messages <- message:
	default:
		n.dropped.Add(1)
	}
}

// Drain returns the pending messages, oldest first, without waiting.
func (n *ChannelNotifier) Drain() []string {
	var out []string
	for {
		select {
		case msg := <-n.messages:
			out = append(out, msg)
		default:
			return out
		}
	}
}

func (n *ChannelNotifier) Dropped() int64 {
	return n.dropped.Load()
}

// Multi fans a message out to every notifier in order.
type Multi []port.Notifier

func (m Multi) Notify(message string) {
	for _, n := range m {
		n.Notify(message)
	}
}
