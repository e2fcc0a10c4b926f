package state

import (
	"math"
	"sync"

	"github.com/google/uuid"

	"stablecore/internal/smath"
)

// PositionManager owns the in-memory position set. Positions are created
// lazily on first deposit and never explicitly destroyed by the core.
//
// Operations against the same position must not interleave; LockOwner hands
// out a per-owner mutex the engine holds for the duration of one operation.
// Operations against different positions proceed concurrently.
type PositionManager struct {
	mu        sync.RWMutex
	positions map[uuid.UUID]*Position
	locks     map[uuid.UUID]*sync.Mutex
}

func NewPositionManager() *PositionManager {
	return &PositionManager{
		positions: make(map[uuid.UUID]*Position),
		locks:     make(map[uuid.UUID]*sync.Mutex),
	}
}

// Get returns the existing position for owner, or nil.
func (pm *PositionManager) Get(owner uuid.UUID) *Position {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return pm.positions[owner]
}

// FindOrCreate returns the existing position for owner, creating a fresh
// zero-debt record when absent.
func (pm *PositionManager) FindOrCreate(owner uuid.UUID) *Position {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pos := pm.positions[owner]
	if pos == nil {
		pos = &Position{Owner: owner}
		pm.positions[owner] = pos
	}
	return pos
}

// Snapshot returns a copy of owner's position taken under the manager
// lock, safe against a concurrent Commit.
func (pm *PositionManager) Snapshot(owner uuid.UUID) (Position, bool) {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	pos := pm.positions[owner]
	if pos == nil {
		return Position{}, false
	}
	return *pos, true
}

// Commit records the post-operation debt for owner and bumps the version.
// The write happens under the manager lock so snapshot readers never
// observe a torn record; callers serialize per-owner via LockOwner. The
// committed copy is returned for persistence and events.
func (pm *PositionManager) Commit(owner uuid.UUID, newDebt uint64) Position {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	pos := pm.positions[owner]
	if pos == nil {
		pos = &Position{Owner: owner}
		pm.positions[owner] = pos
	}
	pos.AmountMinted = newDebt
	pos.Version++
	return *pos
}

// LockOwner returns the mutex serializing mutations of owner's position.
func (pm *PositionManager) LockOwner(owner uuid.UUID) *sync.Mutex {
	pm.mu.Lock()
	defer pm.mu.Unlock()

	lock := pm.locks[owner]
	if lock == nil {
		lock = &sync.Mutex{}
		pm.locks[owner] = lock
	}
	return lock
}

// Restore installs a persisted position, replacing any in-memory record
// for the same owner. Intended for startup recovery, before the engine
// starts accepting operations.
func (pm *PositionManager) Restore(pos Position) {
	pm.mu.Lock()
	defer pm.mu.Unlock()
	p := pos
	pm.positions[pos.Owner] = &p
}

// All returns a snapshot copy of every tracked position, for persistence
// and queries.
func (pm *PositionManager) All() []Position {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	out := make([]Position, 0, len(pm.positions))
	for _, pos := range pm.positions {
		out = append(out, *pos)
	}
	return out
}

// TotalDebt returns the sum of outstanding debt across all positions.
// The sum saturates at MaxUint64 instead of wrapping; the only consumer
// is the debt gauge, where a pinned reading beats a corrupted one.
func (pm *PositionManager) TotalDebt() uint64 {
	pm.mu.RLock()
	defer pm.mu.RUnlock()

	var total uint64
	for _, pos := range pm.positions {
		sum, err := smath.Add(total, pos.AmountMinted)
		if err != nil {
			return math.MaxUint64
		}
		total = sum
	}
	return total
}

// Count returns the number of tracked positions.
func (pm *PositionManager) Count() int {
	pm.mu.RLock()
	defer pm.mu.RUnlock()
	return len(pm.positions)
}
