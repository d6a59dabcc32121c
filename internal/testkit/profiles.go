// Package testkit holds in-memory fakes shared by service tests.
package testkit

import (
	"context"
	"sync"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/user/entity"
)

// Profiles is an in-memory user.ProfileReader.
type Profiles struct {
	mu    sync.Mutex
	byID  map[string]entity.Profile
	Err   error
	Calls int
}

func NewProfiles(profiles ...entity.Profile) *Profiles {
	p := &Profiles{byID: map[string]entity.Profile{}}
	for _, pr := range profiles {
		p.byID[pr.ID] = pr
	}
	return p
}

// Delete forgets a profile, leaving references to it dangling.
func (p *Profiles) Delete(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.byID, id)
}

func (p *Profiles) ProfilesByIDs(_ context.Context, ids []string) (map[string]entity.Profile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Calls++
	if p.Err != nil {
		return nil, p.Err
	}
	out := make(map[string]entity.Profile, len(ids))
	for _, id := range ids {
		if pr, ok := p.byID[id]; ok {
			out[id] = pr
		}
	}
	return out, nil
}
