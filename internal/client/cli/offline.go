package cli

import (
	"context"

	"github.com/dmitrijs2005/recipelab/internal/client/repositories/settings"
	"github.com/dmitrijs2005/recipelab/internal/common"
	"github.com/dmitrijs2005/recipelab/internal/remote"
	"github.com/google/uuid"
)

// offlineIdentity serves a device without a remote store. The anonymous
// owner id is derived from the device id, so it is stable across restarts.
type offlineIdentity struct {
	settings settings.Repository
}

func (o offlineIdentity) SignInAnonymously(ctx context.Context) (*remote.Session, error) {
	id, ok, err := o.settings.Get(ctx, common.SettingDeviceID)
	if err != nil {
		return nil, err
	}
	if !ok {
		id = uuid.NewString()
		if err := o.settings.Set(ctx, common.SettingDeviceID, id); err != nil {
			return nil, err
		}
	}
	return &remote.Session{Identity: remote.Identity{OwnerID: "device-" + id, IsAnonymous: true}}, nil
}

func (offlineIdentity) LinkEmail(context.Context, string) (*remote.Session, error) {
	return nil, common.ErrUnavailable
}

func (offlineIdentity) SignInWithEmail(context.Context, string) (*remote.Session, error) {
	return nil, common.ErrUnavailable
}

func (offlineIdentity) SignOut(context.Context) error { return nil }

func (offlineIdentity) Resume(context.Context, string, string) (*remote.Session, error) {
	return nil, common.ErrUnavailable
}
