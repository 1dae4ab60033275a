// Package model defines core domain types shared across the service.
package model

import (
	"fmt"
	"time"
)

// BBox is a lon/lat rectangle, X is longitude and Y is latitude.
type BBox struct {
	X1, Y1 float64
	X2, Y2 float64
}

// String representation matching the minLon,minLat,maxLon,maxLat query format
func (b BBox) String() string {
	return fmt.Sprintf("%.6f,%.6f,%.6f,%.6f", b.X1, b.Y1, b.X2, b.Y2)
}

type Polygon struct {
	GeoJSON string
}

type Cells []string

type Attrs map[string]string

// Location is a named point registered against its DIGIPIN code.
type Location struct {
	ID        string    `json:"id"`
	Name      string    `json:"name,omitempty"`
	Code      string    `json:"code"`
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	Attrs     Attrs     `json:"attrs,omitempty"`
	Version   int64     `json:"version"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LocationInput is the writable part of a Location.
type LocationInput struct {
	Name    string  `json:"name,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Attrs   Attrs   `json:"attrs,omitempty"`
	Version int64   `json:"version,omitempty"`
}
