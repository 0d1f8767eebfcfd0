package models

import "github.com/google/uuid"

// Notification is the durable record of one fanout event. A nil AudienceID
// addresses every member of AudienceRole.
type Notification struct {
	Model
	AudienceID   *uuid.UUID `json:"audienceId,omitempty" gorm:"type:uuid;index"`
	AudienceRole Role       `json:"audienceRole" gorm:"type:varchar(16);not null;index"`
	Message      string     `json:"message" gorm:"not null"`
	Read         bool       `json:"read" gorm:"not null;default:false"`
	Link         string     `json:"link,omitempty"`
}

// Room is the routing key the notification was published to.
func (n *Notification) Room() string {
	return Room(n.AudienceRole, n.AudienceID)
}

// Broadcast reports whether the notification targets a whole role.
func (n *Notification) Broadcast() bool {
	return n.AudienceID == nil
}
