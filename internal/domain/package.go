package domain

import "time"

type RoomType string

const (
	RoomQuad   RoomType = "quad"
	RoomTriple RoomType = "triple"
	RoomDouble RoomType = "double"
)

// RoomTypes lists the supported occupancies in display order.
var RoomTypes = []RoomType{RoomQuad, RoomTriple, RoomDouble}

// Duration is one priced itinerary length within a package. Within a
// package no two durations share the same Days value; the comparison
// engine assumes at most one match per Days.
type Duration struct {
	Days             int                  `json:"days"`
	BasePrice        float64              `json:"basePrice"`
	SharedRoomPrices map[RoomType]float64 `json:"sharedRoomPrices"`
}

type Inclusion struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
}

type Exclusion struct {
	ID          string `json:"id,omitempty"`
	Description string `json:"description"`
}

type Package struct {
	ID             string      `json:"id"`
	Type           string      `json:"type"`
	MakkahHotelID  string      `json:"makkahHotelId"`
	MadinahHotelID string      `json:"madinahHotelId"`
	TravelDate     *time.Time  `json:"travelDate,omitempty"`
	Image          string      `json:"image,omitempty"` // file store reference
	Durations      []Duration  `json:"durations"`
	Inclusions     []Inclusion `json:"inclusions"`
	Exclusions     []Exclusion `json:"exclusions"`
}

// Pricing is the per-duration price lookup for a single package.
// Nil fields mean no duration matched the requested days.
type Pricing struct {
	BasePrice        *float64             `json:"basePrice"`
	SharedRoomPrices map[RoomType]float64 `json:"sharedRoomPrices"`
}
