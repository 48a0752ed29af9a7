package model

import "time"

// Territory is a named, colored grouping of zones used for sales
// organization. IDs are opaque and generated at creation.
type Territory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Color     string    `json:"color"`
	CreatedAt time.Time `json:"created_at"`
}

// TerritoryPatch carries partial territory updates. Nil fields are
// left unchanged.
type TerritoryPatch struct {
	Name  *string `json:"name,omitempty"`
	Color *string `json:"color,omitempty"`
}

// Apply copies the non-nil patch fields onto t.
func (p TerritoryPatch) Apply(t *Territory) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.Color != nil {
		t.Color = *p.Color
	}
}
