package view

import (
	"context"
	"sync"

	"github.com/foomo/teamdirectory/service/vo"
)

type ListingLoader func(ctx context.Context) []vo.Member

type ListingSnapshot struct {
	Loading bool
	Members []vo.Member
}

// ListingView holds the members shown on the listing page, guarded by the
// same generation scheme as ProfileView.
type ListingView struct {
	mu         sync.Mutex
	generation uint64
	closed     bool
	loading    bool
	members    []vo.Member
}

func NewListingView() *ListingView {
	return &ListingView{loading: true}
}

// Begin starts a (re)load and returns the generation to commit against.
func (v *ListingView) Begin() uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return v.generation
	}
	v.generation++
	v.loading = true
	return v.generation
}

func (v *ListingView) Commit(generation uint64, members []vo.Member) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || generation != v.generation {
		return false
	}
	v.loading = false
	v.members = members
	return true
}

func (v *ListingView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.generation++
}

func (v *ListingView) Snapshot() ListingSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ListingSnapshot{Loading: v.loading, Members: v.members}
}

func (v *ListingView) Load(ctx context.Context, load ListingLoader) ListingSnapshot {
	generation := v.Begin()
	members := load(ctx)
	if ctx.Err() == nil {
		v.Commit(generation, members)
	}
	return v.Snapshot()
}
