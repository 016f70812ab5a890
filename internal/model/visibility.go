package model

// A Visibility classifies who may read an entry.
// From the most restrictive to the loosest:
// private -> family -> link -> public.
type Visibility string

const (
	// VisibilityPrivate restricts an entry to its owner.
	VisibilityPrivate Visibility = "private"
	// VisibilityFamily opens an entry to share links allowing the family tier.
	VisibilityFamily Visibility = "family"
	// VisibilityLink opens an entry to anyone holding its direct URL.
	VisibilityLink Visibility = "link"
	// VisibilityPublic opens an entry to the unauthenticated surfaces.
	VisibilityPublic Visibility = "public"
)

// Valid returns true if v is one of the four known tiers.
func (v Visibility) Valid() bool {
	switch v {
	case VisibilityPrivate, VisibilityFamily, VisibilityLink, VisibilityPublic:
		return true
	}
	return false
}

// Shareable returns true if v may appear in a share link's allowed set.
// Private entries are never shareable and link entries are only reachable
// through their own direct URL.
func (v Visibility) Shareable() bool {
	return v == VisibilityFamily || v == VisibilityPublic
}

// DirectlyLinkable returns true if v allows unauthenticated access to a
// single entry through its direct URL.
func (v Visibility) DirectlyLinkable() bool {
	return v == VisibilityLink || v == VisibilityPublic
}

// VisibleTo evaluates the read-access policy of the given entry.
// The owner always sees its own entries. A share grants access when it
// belongs to the entry's owner and allows the entry's tier. It must be
// re-evaluated on every read since tiers change between reads.
func VisibleTo(entry *Entry, viewerID string, share *Share) bool {
	if entry == nil {
		return false
	}
	if viewerID != "" && viewerID == entry.OwnerID {
		return true
	}
	if share != nil && share.OwnerID == entry.OwnerID && share.Allows(entry.Visibility) {
		return true
	}
	return false
}
