package models

import "time"

// Plant is a catalog entry. The exchange only needs the display names; the
// rest of the catalog (requirements, bloom data, native range) lives with
// the frontend dataset and is optional here.
type Plant struct {
	ID             string    `bson:"_id" json:"id"` // slug, e.g. "asclepias-tuberosa"
	CommonName     string    `bson:"common_name" json:"common_name"`
	ScientificName string    `bson:"scientific_name" json:"scientific_name"`
	Description    string    `bson:"description,omitempty" json:"description,omitempty"`
	Images         []string  `bson:"images,omitempty" json:"images,omitempty"` // S3 keys
	UpdatedAt      time.Time `bson:"updated_at" json:"updated_at"`
}
