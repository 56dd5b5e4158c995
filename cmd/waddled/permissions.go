package main

import (
	"context"

	"github.com/waddle-im/waddle/auth"
	"github.com/waddle-im/waddle/storage"
)

// storePermissionService backs auth.PermissionService with whatever
// storage.MUCRoomStore the configured backend provides; object is always a
// room JID and subject a bare user JID for the affiliations this server
// currently tracks.
type storePermissionService struct {
	mucStore storage.MUCRoomStore
}

func newStorePermissionService(st storage.Storage) *storePermissionService {
	if st == nil {
		return &storePermissionService{}
	}
	return &storePermissionService{mucStore: st.MUCRoomStore()}
}

func (p *storePermissionService) ListRelations(ctx context.Context, object, subject string) ([]auth.Relation, error) {
	if p.mucStore == nil {
		return nil, nil
	}
	aff, err := p.mucStore.GetAffiliation(ctx, object, subject)
	if err != nil {
		if err == storage.ErrNotFound {
			return nil, nil
		}
		return nil, err
	}
	if aff == nil || aff.Affiliation == "" || aff.Affiliation == "none" {
		return nil, nil
	}
	return []auth.Relation{auth.Relation(aff.Affiliation)}, nil
}

func (p *storePermissionService) Authorize(ctx context.Context, principal, action, object string) (auth.Decision, error) {
	relations, err := p.ListRelations(ctx, object, principal)
	if err != nil {
		return auth.Deny, err
	}
	if len(relations) == 0 {
		return auth.Deny, nil
	}
	return auth.Allow, nil
}
