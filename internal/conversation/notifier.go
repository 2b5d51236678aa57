package conversation

import (
	"context"
	"fmt"
	"sync"

	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/logger"
)

// Compile-time interface check.
var _ domain.Notifier = (*CLINotifier)(nil)

// PrintFunc prints one line of user-facing text.
// Matches display.UI.PrintChat and display.UI.PrintUrgent.
type PrintFunc func(text string)

// CLINotifier writes notifications through the terminal UI and keeps the
// most recent one for the status view.
type CLINotifier struct {
	log      *logger.Logger
	normalFn PrintFunc
	urgentFn PrintFunc

	mu   sync.Mutex
	last string
}

// NewCLINotifier creates a terminal notifier. Nil print functions fall
// back to stdout.
func NewCLINotifier(log *logger.Logger, normalFn, urgentFn PrintFunc) *CLINotifier {
	if normalFn == nil {
		normalFn = func(text string) { fmt.Println(text) }
	}
	if urgentFn == nil {
		urgentFn = func(text string) { fmt.Println("! " + text) }
	}
	return &CLINotifier{log: log, normalFn: normalFn, urgentFn: urgentFn}
}

// Notify prints a normal notification.
func (n *CLINotifier) Notify(ctx context.Context, message string) error {
	n.log.Debug("notify: %s", message)
	n.remember(message)
	n.normalFn(message)
	return nil
}

// NotifyUrgent prints an urgent notification.
func (n *CLINotifier) NotifyUrgent(ctx context.Context, message string) error {
	n.log.Debug("notify-urgent: %s", message)
	n.remember(message)
	n.urgentFn(message)
	return nil
}

// Last returns the most recent notification, or "".
func (n *CLINotifier) Last() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.last
}

func (n *CLINotifier) remember(message string) {
	n.mu.Lock()
	n.last = message
	n.mu.Unlock()
}
