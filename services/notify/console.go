package notifysvc

import (
	"github.com/trezcool/scolarite/core"
)

// ConsoleNotifier writes notifications to a logger.
type ConsoleNotifier struct {
	logger core.Logger
}

var _ core.Notifier = (*ConsoleNotifier)(nil)

func NewConsoleNotifier(logger core.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{logger: logger}
}

func (n ConsoleNotifier) Notify(kind core.NotificationKind, message string) {
	msg := "notification [" + string(kind) + "]: " + message
	switch kind {
	case core.NotifyError:
		n.logger.Error(msg)
	case core.NotifyWarning:
		n.logger.Warn(msg)
	default:
		n.logger.Info(msg)
	}
}
