package statestore

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidPruneVersion is returned when a prune target is outside the committed range.
var ErrInvalidPruneVersion = errors.New("invalid prune version")

// PruneResult contains information about a state pruning operation.
type PruneResult struct {
	// PrunedCount is the number of versions pruned.
	PrunedCount int64

	// OldestVersion is the oldest version after pruning.
	OldestVersion int64

	// NewestVersion is the newest version (unchanged).
	NewestVersion int64

	// Duration is how long the pruning took.
	Duration time.Duration
}

// PruneTarget returns the version below which versions can be pruned so that
// keepRecent versions remain. Zero means nothing to prune.
func PruneTarget(currentVersion, keepRecent int64) int64 {
	if keepRecent <= 0 {
		return 0
	}
	target := currentVersion - keepRecent + 1
	if target <= 1 {
		return 0
	}
	return target
}

// PruneVersions removes every committed version below beforeVersion.
func (s *IAVLStore) PruneVersions(beforeVersion int64) (*PruneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()

	if beforeVersion <= 0 {
		return nil, ErrInvalidPruneVersion
	}

	currentVersion := s.tree.Version()
	if beforeVersion > currentVersion {
		return nil, fmt.Errorf("%w: version %d exceeds current version %d",
			ErrInvalidPruneVersion, beforeVersion, currentVersion)
	}

	availVersions := s.tree.AvailableVersions()

	var prunedCount int64
	for _, v := range availVersions {
		if int64(v) < beforeVersion {
			prunedCount++
		}
	}

	// DeleteVersionsTo is inclusive
	if prunedCount > 0 {
		if err := s.tree.DeleteVersionsTo(beforeVersion - 1); err != nil {
			return nil, fmt.Errorf("deleting versions to %d: %w", beforeVersion-1, err)
		}
	}

	availVersions = s.tree.AvailableVersions()
	var oldestVersion int64
	if len(availVersions) > 0 {
		oldestVersion = int64(availVersions[0])
	}

	return &PruneResult{
		PrunedCount:   prunedCount,
		OldestVersion: oldestVersion,
		NewestVersion: currentVersion,
		Duration:      time.Since(start),
	}, nil
}

// AvailableVersions returns the range of available versions.
func (s *IAVLStore) AvailableVersions() (oldest, newest int64) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.tree.AvailableVersions()
	if len(versions) == 0 {
		return 0, 0
	}
	return int64(versions[0]), int64(versions[len(versions)-1])
}
