package model

import "time"

// Album is a named, ordered collection of photo references. A photo may
// belong to any number of albums; within one album it appears at most once.
//
// PhotoCount is denormalized for cheap listing but is recomputed inside the
// same transaction as every membership mutation, so it always equals
// len(PhotoIDs).
type Album struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	CoverPhotoURL string    `json:"coverPhotoUrl,omitempty"`
	PhotoIDs      []string  `json:"photoIds"`
	PhotoCount    int       `json:"photoCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}
