package model

import (
	"time"
)

// A Share is a bearer capability granting read access to the subset of one
// owner's entries whose visibility belongs to the allowed set.
// The token is the whole credential. Anyone holding it reads the subset.
type Share struct {
	Base `msgpack:",inline" storm:"inline"`

	OwnerID string `json:"owner_id" msgpack:"owner_id" storm:"index"`
	Label   string `json:"label"    msgpack:"label"`
	Token   string `json:"token"    msgpack:"token"    storm:"unique"`

	// AllowedVisibility is restricted to the shareable tiers
	// (family and public) at creation time.
	AllowedVisibility []Visibility `json:"allowed_visibility" msgpack:"allowed_visibility"`

	// ExpireAt bounds the lifetime of the token. Nil means no expiry.
	ExpireAt *time.Time `json:"expire_at,omitempty" msgpack:"expire_at"`
}

// Allows returns true if the share exposes entries of the given tier.
func (s *Share) Allows(v Visibility) bool {
	for _, allowed := range s.AllowedVisibility {
		if allowed == v {
			return true
		}
	}
	return false
}

// Expired returns true if the share carries an expiry in the past.
func (s *Share) Expired(now time.Time) bool {
	return s.ExpireAt != nil && s.ExpireAt.Before(now)
}
