package view

import (
	"context"
	"sync"

	"github.com/foomo/teamdirectory/service/vo"
)

// ProfileLoader resolves a profile by route name, e.g. service.Service.GetProfile.
type ProfileLoader func(ctx context.Context, name string) *vo.Profile

type ProfileSnapshot struct {
	Name    string
	State   vo.ProfileState
	Profile *vo.Profile
}

// ProfileView is the displayed state of a detail page. It starts in loading,
// moves to loaded or not-found once, and only goes back to loading when
// navigating to a different member. Results are committed against the
// generation returned by Navigate so that late results of a previous
// navigation, or results arriving after Close, are dropped.
type ProfileView struct {
	mu         sync.Mutex
	generation uint64
	closed     bool
	name       string
	state      vo.ProfileState
	profile    *vo.Profile
}

func NewProfileView() *ProfileView {
	return &ProfileView{state: vo.ProfileStateLoading}
}

// Navigate switches the view to name. It returns the generation to commit
// against and whether a load has to be started; navigating to the member
// already shown starts nothing.
func (v *ProfileView) Navigate(name string) (uint64, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed {
		return v.generation, false
	}
	if v.generation > 0 && name == v.name {
		return v.generation, false
	}
	v.generation++
	v.name = name
	v.state = vo.ProfileStateLoading
	v.profile = nil
	return v.generation, true
}

// Commit applies a resolved profile. It reports false when the result is
// stale and was discarded.
func (v *ProfileView) Commit(generation uint64, profile *vo.Profile) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.closed || generation != v.generation || v.state != vo.ProfileStateLoading {
		return false
	}
	if profile.NotFound() {
		notFound := &vo.Profile{
			ID:    vo.MemberID(v.name),
			State: vo.ProfileStateNotFound,
			Body:  vo.NotFoundBody,
		}
		if profile != nil {
			notFound.Document = profile.Document
			notFound.HTML = profile.HTML
		}
		v.state = vo.ProfileStateNotFound
		v.profile = notFound
		return true
	}
	v.state = vo.ProfileStateLoaded
	v.profile = profile
	return true
}

// Close invalidates every outstanding generation.
func (v *ProfileView) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.closed = true
	v.generation++
}

func (v *ProfileView) Snapshot() ProfileSnapshot {
	v.mu.Lock()
	defer v.mu.Unlock()
	return ProfileSnapshot{Name: v.name, State: v.state, Profile: v.profile}
}

// Load navigates to name and, when needed, resolves it synchronously. A
// result obtained after ctx was cancelled is not committed.
func (v *ProfileView) Load(ctx context.Context, name string, load ProfileLoader) ProfileSnapshot {
	if generation, started := v.Navigate(name); started {
		profile := load(ctx, name)
		if ctx.Err() == nil {
			v.Commit(generation, profile)
		}
	}
	return v.Snapshot()
}
