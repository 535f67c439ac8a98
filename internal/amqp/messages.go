package amqp

import (
	"encoding/json"
	"time"
)

// Event names carried on the audit queue.
const (
	EventActivityCreated = "activity.created"
	EventActivityUpdated = "activity.updated"
	EventActivityDeleted = "activity.deleted"
	EventLogCreated      = "log.created"
	EventLogDeleted      = "log.deleted"
)

// ActivityEventMessage describes one mutation for the audit worker. It is
// intentionally small: ids only, no entity payload.
type ActivityEventMessage struct {
	Event      string    `json:"event"`
	UserID     string    `json:"user_id"`
	ActivityID string    `json:"activity_id"`
	LogID      string    `json:"log_id,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

func NewActivityEventMessage(event, userID, activityID, logID string) *ActivityEventMessage {
	return &ActivityEventMessage{
		Event:      event,
		UserID:     userID,
		ActivityID: activityID,
		LogID:      logID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *ActivityEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ActivityEventMessageFromJSON creates a message from JSON bytes.
func ActivityEventMessageFromJSON(data []byte) (*ActivityEventMessage, error) {
	var msg ActivityEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
