// Package profile keeps the signed-in user's profile in step with the
// backend and tracks email verification.
package profile

import (
	"context"
	"sync"

	"github.com/GregMSThompson/dockly/pkg/api"
	"github.com/GregMSThompson/dockly/pkg/helpers"
	"github.com/GregMSThompson/dockly/pkg/logger"
)

// Remote is the profile endpoint set. *api.Client satisfies it.
type Remote interface {
	GetUser(ctx context.Context, uid string) (*api.UserProfile, error)
	CreateUser(ctx context.Context, p api.UserProfile) error
	UpdateUser(ctx context.Context, uid string, patch api.UserPatch) error
}

// Sync is a read-through cache of user profiles. Writes go to the backend
// first and reach the cache only once they succeed.
type Sync struct {
	remote Remote

	mu       sync.Mutex
	profiles map[string]api.UserProfile
}

func NewSync(remote Remote) *Sync {
	return &Sync{
		remote:   remote,
		profiles: make(map[string]api.UserProfile),
	}
}

// Get returns the cached profile, fetching it on a miss. A profile the
// backend does not know is reported as nil with no error.
func (s *Sync) Get(ctx context.Context, uid string) (*api.UserProfile, error) {
	s.mu.Lock()
	p, ok := s.profiles[uid]
	s.mu.Unlock()
	if ok {
		return &p, nil
	}
	return s.Refresh(ctx, uid)
}

// Refresh reads the profile from the backend and replaces the cached copy.
func (s *Sync) Refresh(ctx context.Context, uid string) (*api.UserProfile, error) {
	p, err := s.remote.GetUser(ctx, uid)
	if api.IsNotFound(err) {
		s.Forget(uid)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.profiles[uid] = *p
	s.mu.Unlock()

	out := *p
	return &out, nil
}

// Ensure creates the profile when the backend has none, as on first
// sign-in, and returns the stored profile.
func (s *Sync) Ensure(ctx context.Context, p api.UserProfile) (*api.UserProfile, error) {
	existing, err := s.Get(ctx, p.UID)
	if err != nil || existing != nil {
		return existing, err
	}

	if err := s.remote.CreateUser(ctx, p); err != nil {
		return nil, err
	}
	logger.FromContext(ctx).Info("user profile created", "uid", p.UID)
	return s.Refresh(ctx, p.UID)
}

// Update writes patch to the backend and merges it into the cached copy.
func (s *Sync) Update(ctx context.Context, uid string, patch api.UserPatch) error {
	if err := s.remote.UpdateUser(ctx, uid, patch); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[uid]
	if !ok {
		return nil
	}
	p.Email = helpers.ValueOr(patch.Email, p.Email)
	p.DisplayName = helpers.ValueOr(patch.DisplayName, p.DisplayName)
	p.PhotoURL = helpers.ValueOr(patch.PhotoURL, p.PhotoURL)
	s.profiles[uid] = p
	return nil
}

// Forget drops the cached profile, as on sign-out.
func (s *Sync) Forget(uid string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.profiles, uid)
}
