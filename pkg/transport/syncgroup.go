package transport

import (
	"sort"
	"sync"

	"github.com/drivecan-protocol/drivecan-go/pkg/frame"
)

// SyncGroup tracks the motors on a bus that have accepted a deferred
// motion command and are waiting for the synchronized start broadcast.
//
// Motors join the group only after the drive acknowledges the deferred
// command, so a trigger never starts a motor whose command was lost.
type SyncGroup struct {
	mu      sync.Mutex
	pending map[frame.MotorAddress]struct{}
}

// NewSyncGroup creates an empty sync group.
func NewSyncGroup() *SyncGroup {
	return &SyncGroup{pending: make(map[frame.MotorAddress]struct{})}
}

// Add records that the motor has a deferred motion pending.
func (g *SyncGroup) Add(addr frame.MotorAddress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending[addr] = struct{}{}
}

// Remove clears the motor's pending deferred motion, if any.
func (g *SyncGroup) Remove(addr frame.MotorAddress) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.pending, addr)
}

// Contains reports whether the motor has a deferred motion pending.
func (g *SyncGroup) Contains(addr frame.MotorAddress) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.pending[addr]
	return ok
}

// Len returns the number of motors with deferred motion pending.
func (g *SyncGroup) Len() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.pending)
}

// Members returns the pending motor addresses in ascending order.
func (g *SyncGroup) Members() []frame.MotorAddress {
	g.mu.Lock()
	defer g.mu.Unlock()

	members := make([]frame.MotorAddress, 0, len(g.pending))
	for addr := range g.pending {
		members = append(members, addr)
	}
	sort.Slice(members, func(i, j int) bool { return members[i] < members[j] })
	return members
}

// Clear empties the group. Called after the synchronized start has been
// broadcast.
func (g *SyncGroup) Clear() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.pending = make(map[frame.MotorAddress]struct{})
}
