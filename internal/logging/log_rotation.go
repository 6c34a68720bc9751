package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/jonboulle/clockwork"
)

const rotatedStampLayout = "20060102-150405"

// LogRotation decides when the diagnostics file is rolled over and how many
// rolled files are kept next to it.
type LogRotation struct {
	maxSize    int64
	maxAge     time.Duration
	maxBackups int
	clock      clockwork.Clock
}

// NewLogRotation rotates when the file reaches maxSize bytes or has not been
// modified for maxAge. Zero disables the respective limit, and maxBackups <= 0
// keeps every rotated file.
func NewLogRotation(clock clockwork.Clock, maxSize int64, maxAge time.Duration, maxBackups int) *LogRotation {
	return &LogRotation{
		maxSize:    maxSize,
		maxAge:     maxAge,
		maxBackups: maxBackups,
		clock:      clock,
	}
}

func (lr *LogRotation) ShouldRotate(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.Size() == 0 {
		return false
	}
	if lr.maxSize > 0 && info.Size() >= lr.maxSize {
		return true
	}
	return lr.maxAge > 0 && lr.clock.Since(info.ModTime()) >= lr.maxAge
}

// Rotate renames path to a timestamped sibling and prunes the oldest siblings
// beyond maxBackups. Pruning failures are ignored.
func (lr *LogRotation) Rotate(path string) (string, error) {
	base, ext := splitExt(path)
	rotated := fmt.Sprintf("%s-%s%s", base, lr.clock.Now().Format(rotatedStampLayout), ext)

	if err := os.Rename(path, rotated); err != nil {
		return "", fmt.Errorf("rotate %s: %w", path, err)
	}
	lr.prune(path)
	return rotated, nil
}

// Backups lists rotated siblings of path, oldest first.
func (lr *LogRotation) Backups(path string) []string {
	base, ext := splitExt(path)
	matches, err := filepath.Glob(base + "-*" + ext)
	if err != nil {
		return nil
	}

	backups := matches[:0]
	for _, m := range matches {
		stamp := strings.TrimSuffix(strings.TrimPrefix(m, base+"-"), ext)
		if _, err := time.Parse(rotatedStampLayout, stamp); err == nil {
			backups = append(backups, m)
		}
	}
	// The stamp layout sorts lexically in time order.
	slices.Sort(backups)
	return backups
}

func (lr *LogRotation) prune(path string) {
	if lr.maxBackups <= 0 {
		return
	}
	backups := lr.Backups(path)
	for len(backups) > lr.maxBackups {
		_ = os.Remove(backups[0])
		backups = backups[1:]
	}
}

func splitExt(path string) (string, string) {
	ext := filepath.Ext(path)
	return strings.TrimSuffix(path, ext), ext
}
