// Package ingest defines the location change events consumed from Kafka.
package ingest

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohammed-shakir/digipin/internal/core/model"
	"github.com/mohammed-shakir/digipin/pkg/digipin"
)

const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// Event is one change to a registered location. Version orders changes to
// the same id; replays and out-of-order versions are dropped.
type Event struct {
	Version int64       `json:"version"`
	Op      string      `json:"op"`
	ID      string      `json:"id"`
	Name    string      `json:"name,omitempty"`
	Lat     *float64    `json:"lat,omitempty"`
	Lon     *float64    `json:"lon,omitempty"`
	Attrs   model.Attrs `json:"attrs,omitempty"`
	TS      time.Time   `json:"ts"`
}

func (e Event) Validate() error {
	if e.Version <= 0 {
		return fmt.Errorf("version must be > 0")
	}
	switch e.Op {
	case OpUpsert, OpDelete:
	default:
		return fmt.Errorf("op must be upsert|delete")
	}
	if strings.TrimSpace(e.ID) == "" {
		return fmt.Errorf("id is required")
	}
	if e.Op == OpDelete {
		return nil
	}
	if e.Lat == nil || e.Lon == nil {
		return fmt.Errorf("lat and lon are required for upsert")
	}
	if !digipin.IsValidCoordinate(*e.Lat, *e.Lon) {
		return fmt.Errorf("coordinate (%g, %g) outside %s", *e.Lat, *e.Lon, digipin.IndiaBounds)
	}
	return nil
}

// Input converts an upsert event into registry input.
func (e Event) Input() model.LocationInput {
	in := model.LocationInput{Name: e.Name, Attrs: e.Attrs, Version: e.Version}
	if e.Lat != nil {
		in.Lat = *e.Lat
	}
	if e.Lon != nil {
		in.Lon = *e.Lon
	}
	return in
}
