package track

import (
	"encoding/json"
	"errors"
	"math"
	"time"
)

// ErrInvalidFix is returned when a reported fix has a latitude or longitude
// that is not a finite number. Fixes that fail validation never reach the
// state store.
var ErrInvalidFix = errors.New("latitude and longitude must be finite numbers")

// Position is a (latitude, longitude) coordinate pair.
//
// It serializes as a two-element JSON array [lat, lng], matching the wire
// format consumed by the map dashboard. The zero value (0, 0) is the
// sentinel for "no fix received yet" and is not treated as a real location.
type Position [2]float64

// NewPosition creates a Position from a latitude and longitude.
func NewPosition(lat, lng float64) Position {
	return Position{lat, lng}
}

// Lat returns the latitude component.
func (p Position) Lat() float64 { return p[0] }

// Lng returns the longitude component.
func (p Position) Lng() float64 { return p[1] }

// IsZero reports whether the position is the (0, 0) no-fix sentinel.
func (p Position) IsZero() bool { return p[0] == 0 && p[1] == 0 }

// Fix is a single position report from the tracked vehicle (or a simulator).
//
// Speed is deliberately lenient: an absent field decodes to 0 and no range
// check is applied. Only Lat and Lng gate acceptance.
type Fix struct {
	// Lat is the reported latitude in decimal degrees.
	Lat float64 `json:"lat"`

	// Lng is the reported longitude in decimal degrees.
	Lng float64 `json:"lng"`

	// Speed is the reported speed in km/h. Defaults to 0 when absent.
	Speed float64 `json:"speed,omitempty"`
}

// Validate checks that the fix carries finite coordinates.
//
// Returns [ErrInvalidFix] when Lat or Lng is NaN or infinite. Speed is not
// validated; the upstream contract accepts any value and the decoder
// defaults it to 0 when the field is missing.
func (f Fix) Validate() error {
	if !isFinite(f.Lat) || !isFinite(f.Lng) {
		return ErrInvalidFix
	}
	return nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// VehicleState is the single shared record describing the tracked vehicle.
//
// Exactly one VehicleState exists per tracker process. It is replaced
// wholesale on every accepted fix; the liveness monitor's Connected flip is
// the one documented exception to whole-record replacement. Values of this
// type are snapshots: safe to hand to consumers without risk of mutation.
type VehicleState struct {
	// Position is the last reported coordinate pair, or the (0, 0)
	// sentinel before the first fix.
	Position Position

	// Speed is the last reported speed in km/h.
	Speed float64

	// Timestamp is the instant of the last accepted fix. Zero until the
	// first fix arrives; it serializes as null in that case.
	Timestamp time.Time

	// Connected is true while fixes keep arriving within the staleness
	// window. It is derived, never reported by the device.
	Connected bool
}

// vehicleStateJSON is the wire shape of VehicleState. Timestamp is a
// pointer so that a never-connected state serializes as null rather than
// the zero time.
type vehicleStateJSON struct {
	Position  Position `json:"position"`
	Speed     float64  `json:"speed"`
	Timestamp *string  `json:"timestamp"`
	Connected bool     `json:"connected"`
}

// MarshalJSON implements json.Marshaler.
func (s VehicleState) MarshalJSON() ([]byte, error) {
	out := vehicleStateJSON{
		Position:  s.Position,
		Speed:     s.Speed,
		Connected: s.Connected,
	}
	if !s.Timestamp.IsZero() {
		ts := s.Timestamp.UTC().Format(time.RFC3339)
		out.Timestamp = &ts
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (s *VehicleState) UnmarshalJSON(data []byte) error {
	var in vehicleStateJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	s.Position = in.Position
	s.Speed = in.Speed
	s.Connected = in.Connected
	s.Timestamp = time.Time{}
	if in.Timestamp != nil {
		ts, err := time.Parse(time.RFC3339, *in.Timestamp)
		if err != nil {
			return err
		}
		s.Timestamp = ts
	}
	return nil
}
