package safeguard

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTicketRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rollback-armed.flag")
	in := &Ticket{
		Deadline:     time.Unix(1790000000, 0),
		SnapshotPath: "/var/lib/wd/snapshots/openclaw-20260730-120000-pre-change.json",
	}

	require.NoError(t, SaveTicket(path, in))

	out, err := LoadTicket(path)
	require.NoError(t, err)
	require.NotNil(t, out)
	assert.Equal(t, in.Deadline.Unix(), out.Deadline.Unix())
	assert.Equal(t, in.SnapshotPath, out.SnapshotPath)

	// two-line on-disk contract
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1790000000\n/var/lib/wd/snapshots/openclaw-20260730-120000-pre-change.json\n", string(data))
}

func TestLoadTicketMissing(t *testing.T) {
	out, err := LoadTicket(filepath.Join(t.TempDir(), "absent.flag"))
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestLoadTicketMalformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"one line", "1790000000\n"},
		{"bad epoch", "soon\n/path\n"},
		{"blank snapshot", "1790000000\n\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "flag")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0644))
			_, err := LoadTicket(path)
			assert.Error(t, err)
		})
	}
}

func TestRemoveTicketIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flag")
	require.NoError(t, SaveTicket(path, &Ticket{Deadline: time.Now(), SnapshotPath: "/s"}))

	require.NoError(t, RemoveTicket(path))
	require.NoError(t, RemoveTicket(path), "removing an absent ticket is fine")
}
