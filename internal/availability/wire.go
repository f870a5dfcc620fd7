package availability

import (
	"time"

	"ferryline/pkg/model"
)

// Server-to-client message types on the push channel.
const (
	MsgConnected  = "connected"
	MsgSubscribed = "subscribed"
	MsgUpdate     = "availability_update"
	MsgPong       = "pong"
	MsgError      = "error"
)

// Client-to-server control actions.
const (
	ActionSubscribe   = "subscribe"
	ActionUnsubscribe = "unsubscribe"
	ActionPing        = "ping"
)

// ServerMessage is the envelope for everything the push server sends.
type ServerMessage struct {
	Type    string         `json:"type"`
	Route   string         `json:"route,omitempty"`
	Data    *UpdatePayload `json:"data,omitempty"`
	Routes  []string       `json:"routes,omitempty"`
	Message string         `json:"message,omitempty"`
}

// UpdatePayload carries one availability delta. The sailing identifier
// arrives under either of two wire spellings depending on which upstream
// produced the event; SailingID is the one normalization point, everything
// past it sees only the canonical id.
type UpdatePayload struct {
	FerryID       string                  `json:"ferryId"`
	FerryIDSnake  string                  `json:"ferry_id"`
	Route         string                  `json:"route"`
	DepartureTime string                  `json:"departureTime,omitempty"`
	Availability  model.AvailabilityDelta `json:"availability"`
	Source        string                  `json:"source,omitempty"`
	UpdatedAt     time.Time               `json:"updatedAt,omitempty"`
}

// SailingID returns the canonical sailing identifier, accepting either
// wire spelling.
func (p *UpdatePayload) SailingID() string {
	if p.FerryID != "" {
		return p.FerryID
	}
	return p.FerryIDSnake
}

// ClientFrame is a control frame sent to the push server.
type ClientFrame struct {
	Action string   `json:"action"`
	Routes []string `json:"routes,omitempty"`
}
