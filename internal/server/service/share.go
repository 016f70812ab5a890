package service

import (
	"time"

	"github.com/lifemoments/lifemoments/internal/database"
	"github.com/lifemoments/lifemoments/internal/lmerror"
	"github.com/lifemoments/lifemoments/internal/model"
	"github.com/lifemoments/lifemoments/internal/server/session"
	"github.com/pkg/errors"
)

type (
	// CreateShareParams are used to mint a share token.
	CreateShareParams struct {
		Params
		Label             string   `json:"label"`
		AllowedVisibility []string `json:"allowed_visibility"`
		ExpireAt          string   `json:"expire_at"` // RFC 3339, optional
	}

	// A ShareService mints and resolves share tokens.
	ShareService struct {
		db database.Client
	}
)

// NewShare returns a new ShareService.
func NewShare(db database.Client) *ShareService {
	return &ShareService{db: db}
}

// Create mints a bearer token bound to the owner and an allow-list of
// visibility tiers. Only the shareable tiers (family, public) are accepted.
func (s *ShareService) Create(user *model.User, params CreateShareParams) (*model.Share, error) {
	if len(params.AllowedVisibility) == 0 {
		return nil, lmerror.Validation("No visibility tier to share.")
	}

	allowed := make([]model.Visibility, 0, len(params.AllowedVisibility))
	for _, tier := range params.AllowedVisibility {
		visibility := model.Visibility(tier)
		if !visibility.Shareable() {
			return nil, lmerror.Validation("Only family and public entries can be shared.")
		}
		allowed = append(allowed, visibility)
	}

	share := &model.Share{
		OwnerID:           user.ID,
		Label:             params.Label,
		Token:             session.SecureToken(16),
		AllowedVisibility: allowed,
	}

	if params.ExpireAt != "" {
		at, err := time.Parse(time.RFC3339, params.ExpireAt)
		if err != nil {
			return nil, lmerror.Validation("Malformed expiry date.")
		}
		share.ExpireAt = &at
	}

	if err := s.db.Save(share); err != nil {
		return nil, errors.Wrap(err, "could not persist share")
	}
	return share, nil
}

// Resolve looks a share up by exact token match and returns the owner's
// visibility-filtered entry list. Unknown, expired and revoked tokens are
// indistinguishable from absent ones.
func (s *ShareService) Resolve(token string) (*model.Share, []*model.Entry, error) {
	share, err := s.db.FindShareByToken(token)
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, nil, lmerror.NotFound("Link not found or expired.")
		}
		return nil, nil, errors.Wrap(err, "could not get access to database")
	}

	if share.Expired(time.Now()) {
		return nil, nil, lmerror.NotFound("Link not found or expired.")
	}

	entries, err := s.db.FindEntriesByVisibility(share.OwnerID, share.AllowedVisibility)
	if err != nil {
		return nil, nil, errors.Wrap(err, "could not list shared entries")
	}
	return share, entries, nil
}

// List returns all the shares minted by the given owner.
func (s *ShareService) List(user *model.User) ([]*model.Share, error) {
	shares, err := s.db.FindSharesByOwner(user.ID)
	return shares, errors.Wrap(err, "could not list shares")
}

// Revoke deletes the given owner's share. The token stops resolving
// immediately.
func (s *ShareService) Revoke(id string, user *model.User) error {
	share, err := s.db.FindShareByOwner(id, user.ID)
	if err != nil {
		if s.db.IsNotFound(err) {
			return lmerror.NotFound("No such share.")
		}
		return errors.Wrap(err, "could not get access to database")
	}

	return errors.Wrap(s.db.Delete(share), "could not revoke share")
}
