package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/techagentng/wastewatch/models"
)

const (
	// EventNotification is the frame name clients listen for.
	EventNotification = "newNotification"
	EventJoinRoom     = "joinRoom"
	EventLeaveRoom    = "leaveRoom"
)

// Event is the payload delivered for one stored notification.
type Event struct {
	ID        uuid.UUID   `json:"id"`
	Message   string      `json:"message"`
	Link      string      `json:"link,omitempty"`
	Role      models.Role `json:"role"`
	CreatedAt time.Time   `json:"createdAt"`
}

func EventFromNotification(n *models.Notification) Event {
	return Event{
		ID:        n.ID,
		Message:   n.Message,
		Link:      n.Link,
		Role:      n.AudienceRole,
		CreatedAt: n.CreatedAt,
	}
}

// Frame is the envelope written to and read from websocket connections.
type Frame struct {
	Event string          `json:"event"`
	Room  string          `json:"room,omitempty"`
	Data  json.RawMessage `json:"data,omitempty"`
}

func encodeEvent(ev Event) ([]byte, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Frame{Event: EventNotification, Data: data})
}

// Publisher sends an event to every subscriber of a room. Delivery is
// at-most-once; an error means the event did not leave this process.
//
//go:generate mockgen -destination=../mocks/publisher_mock.go -package=mocks github.com/techagentng/wastewatch/realtime Publisher
type Publisher interface {
	Publish(ctx context.Context, room string, ev Event) error
}
