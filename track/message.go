package track

import (
	"encoding/json"
	"fmt"
)

// MessageType discriminates the broadcast message envelope.
//
// MessageType is a string type so the discriminant is human-readable on the
// wire and in logs while keeping type safety through the defined constants.
type MessageType string

const (
	// MessageInitialData carries a full state snapshot, sent exactly once
	// to a subscriber when it connects and before any broadcast reaches it.
	MessageInitialData MessageType = "INITIAL_DATA"

	// MessagePositionUpdate carries the full state after an accepted fix.
	MessagePositionUpdate MessageType = "POSITION_UPDATE"

	// MessageConnectionStatus carries only the derived connected flag,
	// emitted when the liveness monitor flips the vehicle to stale.
	MessageConnectionStatus MessageType = "CONNECTION_STATUS"
)

// String returns the string representation of the message type.
// This implements the fmt.Stringer interface.
func (t MessageType) String() string { return string(t) }

// ConnectionStatus is the payload of a CONNECTION_STATUS message.
type ConnectionStatus struct {
	Connected bool `json:"connected"`
}

// Message is the tagged envelope pushed over the /stream channel.
//
// Exactly one of State or Status is meaningful, determined by Type:
// INITIAL_DATA and POSITION_UPDATE carry State; CONNECTION_STATUS carries
// Status. Construct messages with [NewInitialData], [NewPositionUpdate],
// or [NewConnectionStatus] so the pairing cannot be wrong.
//
// Messages carry no sequence numbers: ordering and deduplication are left
// to the transport.
type Message struct {
	Type   MessageType
	State  VehicleState
	Status ConnectionStatus
}

// NewInitialData builds the one-time snapshot message for a new subscriber.
func NewInitialData(state VehicleState) Message {
	return Message{Type: MessageInitialData, State: state}
}

// NewPositionUpdate builds the broadcast message for an accepted fix.
func NewPositionUpdate(state VehicleState) Message {
	return Message{Type: MessagePositionUpdate, State: state}
}

// NewConnectionStatus builds the broadcast message for a connectivity flip.
func NewConnectionStatus(connected bool) Message {
	return Message{Type: MessageConnectionStatus, Status: ConnectionStatus{Connected: connected}}
}

// envelope is the wire shape {type, data}.
type envelope struct {
	Type MessageType     `json:"type"`
	Data json.RawMessage `json:"data"`
}

// MarshalJSON implements json.Marshaler, producing the {type, data}
// envelope with the payload shape dictated by Type.
func (m Message) MarshalJSON() ([]byte, error) {
	var (
		data []byte
		err  error
	)
	switch m.Type {
	case MessageInitialData, MessagePositionUpdate:
		data, err = json.Marshal(m.State)
	case MessageConnectionStatus:
		data, err = json.Marshal(m.Status)
	default:
		return nil, fmt.Errorf("unknown message type %q", m.Type)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(envelope{Type: m.Type, Data: data})
}

// DecodeMessage parses a wire envelope into a Message.
//
// The type switch is exhaustive: an envelope with an unrecognized type is
// an error, never silently dropped, so protocol drift surfaces immediately
// in clients and tests.
func DecodeMessage(data []byte) (Message, error) {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, fmt.Errorf("invalid message envelope: %w", err)
	}

	msg := Message{Type: env.Type}
	switch env.Type {
	case MessageInitialData, MessagePositionUpdate:
		if err := json.Unmarshal(env.Data, &msg.State); err != nil {
			return Message{}, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
	case MessageConnectionStatus:
		if err := json.Unmarshal(env.Data, &msg.Status); err != nil {
			return Message{}, fmt.Errorf("invalid %s payload: %w", env.Type, err)
		}
	default:
		return Message{}, fmt.Errorf("unknown message type %q", env.Type)
	}
	return msg, nil
}
