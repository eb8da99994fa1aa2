package notify

import (
	"context"
	"fmt"
	"os"
)

// Console is a Deliverer that prints reminders to stdout. Used by the CLI
// `due` command and as the default channel when nothing else is configured.
type Console struct{}

// Deliver implements Deliverer.
func (Console) Deliver(_ context.Context, text, recipientID string) error {
	_, err := fmt.Fprintf(os.Stdout, "--- reminder for %s ---\n%s\n", recipientID, text)
	return err
}
