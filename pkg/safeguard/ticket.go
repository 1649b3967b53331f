package safeguard

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/zhangjunmengyang/openclaw-watchdog/pkg/state"
)

// Ticket is the durable commit-confirmed record: a config change is in
// flight and will be rolled back from SnapshotPath unless the gateway
// stays healthy until Deadline. The healthy-since mark is deliberately
// NOT part of the ticket: after a supervisor crash the armed machine
// re-enters unseen and must observe health again.
type Ticket struct {
	Deadline     time.Time
	SnapshotPath string
}

// LoadTicket reads the ticket file. A missing file returns (nil, nil):
// nothing armed.
func LoadTicket(path string) (*Ticket, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("safeguard: reading ticket: %w", err)
	}

	lines := strings.SplitN(strings.TrimSpace(string(data)), "\n", 3)
	if len(lines) < 2 {
		return nil, fmt.Errorf("safeguard: malformed ticket file %s", path)
	}
	epoch, err := strconv.ParseInt(strings.TrimSpace(lines[0]), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("safeguard: malformed ticket deadline: %w", err)
	}
	snapshot := strings.TrimSpace(lines[1])
	if snapshot == "" {
		return nil, fmt.Errorf("safeguard: ticket missing snapshot path")
	}

	return &Ticket{
		Deadline:     time.Unix(epoch, 0),
		SnapshotPath: snapshot,
	}, nil
}

// SaveTicket persists the ticket with write-then-rename. Line 1 is the
// absolute deadline epoch, line 2 the absolute snapshot path.
func SaveTicket(path string, t *Ticket) error {
	content := fmt.Sprintf("%d\n%s\n", t.Deadline.Unix(), t.SnapshotPath)
	return state.WriteFileAtomic(path, []byte(content), 0644)
}

// RemoveTicket erases the ticket. Removing an absent ticket is fine;
// confirm is idempotent.
func RemoveTicket(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("safeguard: removing ticket: %w", err)
	}
	return nil
}
