// Package archive stores generated insight report snapshots as named blobs.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// ErrNotFound is returned by Retrieve when no snapshot has the given name
var ErrNotFound = errors.New("snapshot not found")

// SnapshotPrefix starts the name of every report snapshot
const SnapshotPrefix = "insights-"

// Store defines the contract for snapshot storage
type Store interface {
	Store(ctx context.Context, name string, data []byte) error
	Retrieve(ctx context.Context, name string) ([]byte, error)
	List(ctx context.Context, prefix string) ([]string, error)
	Delete(ctx context.Context, name string) error
}

// SnapshotName returns the blob name for a report generated at t
func SnapshotName(t time.Time) string {
	return fmt.Sprintf("%s%s.json", SnapshotPrefix, t.UTC().Format("2006-01-02-15-04-05"))
}

// Snapshots lists report snapshots, newest first
func Snapshots(ctx context.Context, store Store) ([]string, error) {
	names, err := store.List(ctx, SnapshotPrefix)
	if err != nil {
		return nil, err
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Prune deletes all but the newest keep snapshots and returns how many it removed.
// keep <= 0 keeps everything.
func Prune(ctx context.Context, store Store, keep int) (int, error) {
	if keep <= 0 {
		return 0, nil
	}

	names, err := Snapshots(ctx, store)
	if err != nil {
		return 0, err
	}
	if len(names) <= keep {
		return 0, nil
	}

	removed := 0
	var failed []string
	for _, name := range names[keep:] {
		if err := store.Delete(ctx, name); err != nil {
			failed = append(failed, err.Error())
			continue
		}
		removed++
	}
	if len(failed) > 0 {
		return removed, fmt.Errorf("failed to prune snapshots: %s", strings.Join(failed, "; "))
	}
	return removed, nil
}
