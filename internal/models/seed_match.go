package models

import "time"

// MatchStatus is the lifecycle status of a match. Transitions only move
// forward: matched -> confirmed -> sent -> received -> complete.
type MatchStatus string

const (
	MatchMatched   MatchStatus = "matched"
	MatchConfirmed MatchStatus = "confirmed"
	MatchSent      MatchStatus = "sent"
	MatchReceived  MatchStatus = "received"
	MatchComplete  MatchStatus = "complete"
)

// PlantingStatus tracks the receiver's progress growing the seeds after
// delivery. Reaching "established" completes the match.
type PlantingStatus string

const (
	PlantingPlanted     PlantingStatus = "planted"
	PlantingSprouted    PlantingStatus = "sprouted"
	PlantingGrown       PlantingStatus = "grown"
	PlantingFlowered    PlantingStatus = "flowered"
	PlantingSeeded      PlantingStatus = "seeded"
	PlantingEstablished PlantingStatus = "established"
)

// ValidPlantingStatus reports whether s is one of the recognised planting
// progress values.
func ValidPlantingStatus(s PlantingStatus) bool {
	switch s {
	case PlantingPlanted, PlantingSprouted, PlantingGrown, PlantingFlowered, PlantingSeeded, PlantingEstablished:
		return true
	}
	return false
}

// SeedMatch pairs one packet of an offer with one request. Matches are
// created only by the matching engine, never directly by a user action.
type SeedMatch struct {
	ID         string      `bson:"_id" json:"id"`
	OfferID    string      `bson:"offer_id" json:"offer_id"`
	RequestID  string      `bson:"request_id" json:"request_id"`
	PlantID    string      `bson:"plant_id" json:"plant_id"`
	SenderID   string      `bson:"sender_id" json:"sender_id"`     // offer owner
	ReceiverID string      `bson:"receiver_id" json:"receiver_id"` // request owner
	Quantity   int         `bson:"quantity" json:"quantity"`       // always 1
	Status     MatchStatus `bson:"status" json:"status"`

	PlantingStatus *PlantingStatus `bson:"planting_status,omitempty" json:"planting_status,omitempty"`

	MatchedAt   time.Time  `bson:"matched_at" json:"matched_at"`
	ConfirmedAt *time.Time `bson:"confirmed_at,omitempty" json:"confirmed_at,omitempty"`
	SentAt      *time.Time `bson:"sent_at,omitempty" json:"sent_at,omitempty"`
	ReceivedAt  *time.Time `bson:"received_at,omitempty" json:"received_at,omitempty"`
	CompletedAt *time.Time `bson:"completed_at,omitempty" json:"completed_at,omitempty"`

	PlantedAt     *time.Time `bson:"planted_at,omitempty" json:"planted_at,omitempty"`
	SproutedAt    *time.Time `bson:"sprouted_at,omitempty" json:"sprouted_at,omitempty"`
	GrownAt       *time.Time `bson:"grown_at,omitempty" json:"grown_at,omitempty"`
	FloweredAt    *time.Time `bson:"flowered_at,omitempty" json:"flowered_at,omitempty"`
	SeededAt      *time.Time `bson:"seeded_at,omitempty" json:"seeded_at,omitempty"`
	EstablishedAt *time.Time `bson:"established_at,omitempty" json:"established_at,omitempty"`
}

// MatchDetails is a SeedMatch enriched with display strings for rendering a
// match timeline.
type MatchDetails struct {
	SeedMatch           `bson:",inline"`
	PlantCommonName     string `json:"plant_common_name"`
	PlantScientificName string `json:"plant_scientific_name"`
	SenderName          string `json:"sender_name"`
	ReceiverName        string `json:"receiver_name"`
}
