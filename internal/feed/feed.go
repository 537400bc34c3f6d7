// Package feed subscribes to a NATS subject carrying GPS fixes and routes
// them into the ingest pipeline, as an alternative transport for devices
// that publish to a broker instead of POSTing over HTTP.
package feed

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/ghanabus/bustracker/track"
)

// Applier is the ingest pipeline as the feed sees it.
type Applier interface {
	Apply(fix track.Fix, userID string) (track.VehicleState, error)
}

// fixMessage is the broker wire shape. Pointers distinguish an absent
// coordinate from zero, matching the HTTP ingest endpoint.
type fixMessage struct {
	Lat      *float64 `json:"lat"`
	Lng      *float64 `json:"lng"`
	Speed    *float64 `json:"speed"`
	DeviceID string   `json:"deviceId"`
}

// Feed is a running NATS subscription delivering fixes to the pipeline.
type Feed struct {
	nc       *nats.Conn
	sub      *nats.Subscription
	pipeline Applier
	logger   *slog.Logger
}

// Connect dials the broker and subscribes to subject. Malformed or invalid
// messages are logged and dropped; the subscription stays alive.
func Connect(url, subject string, pipeline Applier, logger *slog.Logger) (*Feed, error) {
	nc, err := nats.Connect(url,
		nats.Name("bustracker"),
		nats.DisconnectHandler(func(_ *nats.Conn) {
			logger.Warn("nats disconnected")
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
		nats.ClosedHandler(func(_ *nats.Conn) {
			logger.Info("nats connection closed")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	f := &Feed{nc: nc, pipeline: pipeline, logger: logger}
	sub, err := nc.Subscribe(subject, f.handle)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", subject, err)
	}
	f.sub = sub

	logger.Info("nats feed started", "url", url, "subject", subject)
	return f, nil
}

func (f *Feed) handle(msg *nats.Msg) {
	var m fixMessage
	if err := json.Unmarshal(msg.Data, &m); err != nil {
		f.logger.Warn("dropping malformed feed message", "error", err)
		return
	}
	if m.Lat == nil || m.Lng == nil {
		f.logger.Warn("dropping feed message without coordinates")
		return
	}

	fix := track.Fix{Lat: *m.Lat, Lng: *m.Lng}
	if m.Speed != nil {
		fix.Speed = *m.Speed
	}

	if _, err := f.pipeline.Apply(fix, m.DeviceID); err != nil {
		f.logger.Warn("dropping invalid feed fix", "error", err)
	}
}

// Close drains the subscription and closes the connection.
func (f *Feed) Close() {
	if f.sub != nil {
		_ = f.sub.Drain()
	}
	if f.nc != nil {
		_ = f.nc.Drain()
		f.nc.Close()
	}
}
