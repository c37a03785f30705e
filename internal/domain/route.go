package domain

import "github.com/google/uuid"

// TravelEstimate is one routed leg between two addresses.
type TravelEstimate struct {
	Seconds int    `json:"seconds"`
	Text    string `json:"text"`
}

// RoutePoint is a stop as the route optimizer sees it.
type RoutePoint struct {
	ID    uuid.UUID `json:"id"`
	Order int       `json:"order"`
	Lat   float64   `json:"lat"`
	Lng   float64   `json:"lng"`
}
