// Package lock provides per-key advisory locks that serialise writers touching
// the same employee calendars.
package lock

import (
	"context"
	"errors"
	"sort"
)

// ErrNotAcquired is returned when a key could not be locked before the
// context was done or the lock backend could not be reached.
var ErrNotAcquired = errors.New("lock: not acquired")

// Locker acquires a set of keys atomically from the caller's point of view.
// Keys are always taken in sorted order so two callers with overlapping key
// sets cannot deadlock.
type Locker interface {
	Acquire(ctx context.Context, keys ...string) (release func(), err error)
}

const employeeKeyPrefix = "lock:employee:"

// EmployeeKeys returns the sorted, de-duplicated lock keys for employeeIDs.
func EmployeeKeys(employeeIDs ...string) []string {
	seen := make(map[string]struct{}, len(employeeIDs))
	keys := make([]string, 0, len(employeeIDs))
	for _, id := range employeeIDs {
		if id == "" {
			continue
		}
		key := employeeKeyPrefix + id
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func normalize(keys []string) []string {
	seen := make(map[string]struct{}, len(keys))
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, key)
	}
	sort.Strings(out)
	return out
}
