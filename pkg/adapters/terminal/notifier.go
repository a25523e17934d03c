package terminal

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/wadjakorntonsri/onepanel-web/pkg/ports"
)

// Notifier prints toasts as single styled lines. A terminal keeps its
// scrollback, so nothing is dismissed.
type Notifier struct {
	mu  sync.Mutex
	out io.Writer
}

func NewNotifier(out io.Writer) *Notifier {
	return &Notifier{out: out}
}

func (n *Notifier) Toast(ctx context.Context, message string, isError bool) {
	if message == "" {
		return
	}
	line := styleToastOK.Render("✓ " + message)
	if isError {
		line = styleToastErr.Render("✗ " + message)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	fmt.Fprintln(n.out, line)
}

var _ ports.Notifier = (*Notifier)(nil)
