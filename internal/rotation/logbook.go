package rotation

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/skylink-net/skylinkctl/internal/credentials"
)

// Logbook is the append-only plain-text record of rotations. Each entry
// is a human-readable block with the timestamp, all four credential
// values, and the active descriptor. The file is never read back by the
// tool itself.
type Logbook struct {
	path string
	mu   sync.Mutex
}

// NewLogbook creates a logbook writing to the given path.
func NewLogbook(path string) *Logbook {
	return &Logbook{path: path}
}

// Path returns the logbook file path.
func (l *Logbook) Path() string {
	return l.path
}

// Append writes one rotation block. The file is opened per append so an
// operator can rotate or truncate the log between ticks.
func (l *Logbook) Append(ts time.Time, set credentials.Set, descriptor string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0700); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}

	f, err := os.OpenFile(l.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("failed to open rotation log: %w", err)
	}
	defer func() { _ = f.Close() }()

	var b strings.Builder
	fmt.Fprintf(&b, "==== rotation %s ====\n", ts.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "trojan password: %s\n", set.Password)
	fmt.Fprintf(&b, "vless id:        %s\n", set.VLESSID)
	fmt.Fprintf(&b, "grpc id:         %s\n", set.GRPCID)
	fmt.Fprintf(&b, "vmess id:        %s\n", set.VMessID)
	fmt.Fprintf(&b, "descriptor:      %s\n\n", descriptor)

	if _, err := f.WriteString(b.String()); err != nil {
		return fmt.Errorf("failed to append rotation log: %w", err)
	}
	return nil
}

// DefaultLogPath returns the default rotation log location, next to the
// JSON storage.
func DefaultLogPath(storageDir string) string {
	return filepath.Join(storageDir, "rotation.log")
}
