package user

import (
	"context"

	"github.com/ovaphlow/pitchfork/service-community-go/internal/user/entity"
)

// ProfileReader resolves user references to public profiles in one batch.
// Missing ids are absent from the returned map; callers decide per view
// whether an unresolved reference drops the row or blanks its fields.
type ProfileReader interface {
	ProfilesByIDs(ctx context.Context, ids []string) (map[string]entity.Profile, error)
}
