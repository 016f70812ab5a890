package service

import "github.com/lifemoments/lifemoments/internal/model"

// M is an arbitrary map.
type M map[string]any

// A Render is an arbitrary payload serializable in JSON by the API.
type Render interface{}

// Params are the basic fields used in requests.
type Params struct {
	UserAgent string         `json:"-"`
	Session   *model.Session `json:"-"`
}
