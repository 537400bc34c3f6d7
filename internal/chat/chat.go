package chat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ghanabus/bustracker/track"
)

// SnapshotFunc returns the current vehicle state.
type SnapshotFunc func() track.VehicleState

// rule pairs a query pattern with the reply it renders.
type rule struct {
	name    string
	pattern *regexp.Regexp
	render  func(state track.VehicleState) string
}

// Responder answers free-text queries about the bus.
type Responder struct {
	snapshot SnapshotFunc
	rules    []rule
}

// NewResponder builds the rule ladder over the given state source.
func NewResponder(snapshot SnapshotFunc) *Responder {
	return &Responder{
		snapshot: snapshot,
		rules: []rule{
			{
				name:    "greeting",
				pattern: regexp.MustCompile(`^(hi|hello|hey|good morning|good afternoon|good evening)$`),
				render: func(track.VehicleState) string {
					return "Hello! I'm your Ghana Bus Tracker assistant. I can help you with bus location, speed, and status information. What would you like to know?"
				},
			},
			{
				name:    "location",
				pattern: regexp.MustCompile(`location|where|position|coordinates`),
				render:  renderLocation,
			},
			{
				name:    "speed",
				pattern: regexp.MustCompile(`speed|fast|velocity|moving`),
				render:  renderSpeed,
			},
			{
				name:    "eta",
				pattern: regexp.MustCompile(`eta|time|arrive|when|how long`),
				render: func(track.VehicleState) string {
					return "ETA calculation requires destination information. This feature will be available in future updates. For now, you can track the bus location in real-time on the map."
				},
			},
			{
				name:    "status",
				pattern: regexp.MustCompile(`status|connect|online|working`),
				render:  renderStatus,
			},
			{
				name:    "route",
				pattern: regexp.MustCompile(`route|destination|going|direction`),
				render: func(track.VehicleState) string {
					return "Route information is not available yet. The system currently tracks real-time location. Popular Ghana routes include Accra-Kumasi, Accra-Takoradi and Accra-Tamale."
				},
			},
			{
				name:    "help",
				pattern: regexp.MustCompile(`help|what|can|commands|options`),
				render: func(track.VehicleState) string {
					return "I can help you with the current bus location, speed and movement, and device connection status. Try asking 'Where is the bus?', 'What's the current speed?' or 'Is the device online?'"
				},
			},
			{
				name:    "region",
				pattern: regexp.MustCompile(`ghana|accra|kumasi|takoradi|tamale`),
				render: func(track.VehicleState) string {
					return "This bus tracker is designed for Ghana's transportation network. The system covers major routes including Accra-Kumasi, Accra-Takoradi, and other intercity connections across Ghana."
				},
			},
		},
	}
}

// Reply answers the query. An empty or whitespace-only query gets usage
// guidance rather than an error.
func (r *Responder) Reply(query string) string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "Please ask me something about the bus. Try 'Where is the bus?' or 'What's the current speed?'"
	}

	state := r.snapshot()
	for _, rule := range r.rules {
		if rule.pattern.MatchString(q) {
			return rule.render(state)
		}
	}

	return "I'm not sure about that. I can help with the bus location and coordinates, speed and movement status, and device connectivity. Try asking 'Where is the bus?' or 'What's the current speed?'"
}

func renderLocation(state track.VehicleState) string {
	if !state.Connected || state.Position.IsZero() {
		return "Bus location is not available at the moment. Please check if the GPS device is connected and sending data."
	}
	lat := strconv.FormatFloat(state.Position.Lat(), 'f', 6, 64)
	lng := strconv.FormatFloat(state.Position.Lng(), 'f', 6, 64)
	return "The bus is currently at coordinates: " + lat + ", " + lng + ". This location is in Ghana. You can see the exact position on the map above."
}

func renderSpeed(state track.VehicleState) string {
	if !state.Connected {
		return "Speed information is not available. Please check the GPS connection."
	}
	speed := strconv.FormatFloat(state.Speed, 'f', -1, 64)
	switch {
	case state.Speed == 0:
		return "The bus is currently stopped (0 km/h). It may be at a bus stop or in traffic."
	case state.Speed < 20:
		return "The bus is moving slowly at " + speed + " km/h. It might be in city traffic or approaching a stop."
	case state.Speed < 60:
		return "The bus is traveling at " + speed + " km/h. Normal city driving speed."
	default:
		return "The bus is traveling at " + speed + " km/h. Highway speed - likely on a long-distance route."
	}
}

func renderStatus(state track.VehicleState) string {
	var b strings.Builder
	if state.Connected {
		b.WriteString("The bus tracking device is online and sending data.")
	} else {
		b.WriteString("The bus tracking device appears to be offline.")
	}
	if state.Timestamp.IsZero() {
		b.WriteString(" No recent updates received.")
	} else {
		b.WriteString(" Last update: ")
		b.WriteString(state.Timestamp.UTC().Format("2006-01-02 15:04:05 UTC"))
		b.WriteString(".")
	}
	return b.String()
}
