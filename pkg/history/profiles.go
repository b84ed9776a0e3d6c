package history

import (
	"context"
	"sync"
)

// ProfileResolver memoizes profile lookups for the life of a session so each
// sender is fetched at most once. Failed lookups are not cached; the next
// resolve retries.
type ProfileResolver struct {
	client *Client

	mu       sync.Mutex
	profiles map[string]*Profile
}

func NewProfileResolver(client *Client) *ProfileResolver {
	return &ProfileResolver{
		client:   client,
		profiles: make(map[string]*Profile),
	}
}

// Resolve returns the profile for userID, fetching it on first use.
func (r *ProfileResolver) Resolve(ctx context.Context, userID string) (*Profile, error) {
	r.mu.Lock()
	if p, ok := r.profiles[userID]; ok {
		r.mu.Unlock()
		return p, nil
	}
	r.mu.Unlock()

	p, err := r.client.Profile(ctx, userID)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.profiles[userID] = p
	r.mu.Unlock()
	return p, nil
}
