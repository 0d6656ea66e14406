package capture

import (
	"errors"
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"golang.org/x/sys/unix"
)

// ErrInsufficientSpace reports a destination below the configured floor.
var ErrInsufficientSpace = errors.New("insufficient free space")

// CheckDestination creates dir if needed and verifies it is writable with at
// least minFree bytes available. A zero minFree skips the space check.
func CheckDestination(dir string, minFree uint64) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create destination: %w", err)
	}
	if err := unix.Access(dir, unix.W_OK); err != nil {
		return fmt.Errorf("destination %s not writable: %w", dir, err)
	}
	if minFree == 0 {
		return nil
	}
	free, err := FreeBytes(dir)
	if err != nil {
		return err
	}
	if free < minFree {
		return fmt.Errorf("%w: %s free in %s, need %s", ErrInsufficientSpace,
			humanize.IBytes(free), dir, humanize.IBytes(minFree))
	}
	return nil
}

// FreeBytes returns the space available to unprivileged writers at dir.
func FreeBytes(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", dir, err)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
