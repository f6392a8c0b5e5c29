package models

import "time"

// SeedShareStatus is the lifecycle status of an offer or a request.
type SeedShareStatus string

const (
	StatusOpen      SeedShareStatus = "open"
	StatusMatched   SeedShareStatus = "matched"
	StatusConfirmed SeedShareStatus = "confirmed"
	StatusSent      SeedShareStatus = "sent"
	StatusReceived  SeedShareStatus = "received"
	StatusComplete  SeedShareStatus = "complete"
	StatusCancelled SeedShareStatus = "cancelled"
)

// Offer quantity bounds. A user pledges between 1 and 10 seed packets per offer.
const (
	MinOfferQuantity = 1
	MaxOfferQuantity = 10
)

// SeedOffer is a pledge by a user to give away seed packets of one plant.
// Quantity is the number of packets not yet allocated to a match; it only
// ever decreases.
type SeedOffer struct {
	ID        string          `bson:"_id" json:"id"`
	PlantID   string          `bson:"plant_id" json:"plant_id"`
	UserID    string          `bson:"user_id" json:"user_id"`
	Quantity  int             `bson:"quantity" json:"quantity"`
	Status    SeedShareStatus `bson:"status" json:"status"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

// SeedRequest is a user's ask for exactly one seed packet of one plant.
type SeedRequest struct {
	ID        string          `bson:"_id" json:"id"`
	PlantID   string          `bson:"plant_id" json:"plant_id"`
	UserID    string          `bson:"user_id" json:"user_id"`
	Quantity  int             `bson:"quantity" json:"quantity"` // always 1
	Status    SeedShareStatus `bson:"status" json:"status"`
	CreatedAt time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time       `bson:"updated_at" json:"updated_at"`
}

// PlantVolume is the open exchange volume for a single plant: total packets
// on open offers and the number of open requests.
type PlantVolume struct {
	PlantID      string `bson:"plant_id" json:"plant_id"`
	OpenOffers   int    `bson:"open_offers" json:"open_offers"`
	OpenRequests int    `bson:"open_requests" json:"open_requests"`
}

// UserPlantActivity reports whether a user holds a non-cancelled offer
// and/or request for a plant, with their ids and statuses.
type UserPlantActivity struct {
	PlantID             string           `json:"plant_id"`
	HasActiveOffer      bool             `json:"has_active_offer"`
	HasActiveRequest    bool             `json:"has_active_request"`
	ActiveOfferID       string           `json:"active_offer_id,omitempty"`
	ActiveOfferQuantity int              `json:"active_offer_quantity,omitempty"`
	ActiveOfferStatus   *SeedShareStatus `json:"active_offer_status,omitempty"`
	ActiveRequestID     string           `json:"active_request_id,omitempty"`
	ActiveRequestStatus *SeedShareStatus `json:"active_request_status,omitempty"`
}
