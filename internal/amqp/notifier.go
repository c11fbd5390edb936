package amqp

import (
	"context"
	"time"

	"feetax/internal/log"
	"feetax/internal/store"
)

// StatePublisher is the publishing half of Client.
type StatePublisher interface {
	PublishStateChanged(ctx context.Context, msg *StateChangedMessage) error
}

// Notifier publishes a StateChangedMessage for every durable store
// transition. Publishing failures are logged and never block the store.
type Notifier struct {
	pub     StatePublisher
	logger  *log.Logger
	timeout time.Duration
}

var _ store.Observer = (*Notifier)(nil)

func NewNotifier(pub StatePublisher, logger *log.Logger) *Notifier {
	if logger == nil {
		logger = log.Discard()
	}
	return &Notifier{pub: pub, logger: logger.WithComponent(log.ComponentAMQP), timeout: 5 * time.Second}
}

func (n *Notifier) StateChanged(ctx context.Context, ev store.Event) {
	if !ev.Durable {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()

	msg := NewStateChangedMessage(ev.Action, ev.State.Revision, len(ev.State.Records))
	if err := n.pub.PublishStateChanged(ctx, msg); err != nil {
		n.logger.WarnContext(ctx, "Failed to publish state change",
			log.FieldAction, ev.Action, log.FieldRevision, ev.State.Revision, log.FieldError, err)
	}
}
