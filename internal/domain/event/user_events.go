package event

import (
	"time"

	"github.com/oksasatya/user-directory/internal/domain/entity"
)

// Event types
const (
	UserCreated = "user.created"
	UserUpdated = "user.updated"
	UserDeleted = "user.deleted"
)

// Event is the envelope put on the user events queue.
type Event struct {
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      UserData  `json:"data"`
}

// UserData is the user snapshot carried by an event. Deleted events carry only ID.
type UserData struct {
	ID       string `json:"id"`
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Age      int    `json:"age"`
	IsActive bool   `json:"is_active"`
}

// New builds an event for u stamped with the current UTC time.
func New(eventType string, u entity.User) Event {
	data := UserData{ID: u.ID}
	if eventType != UserDeleted {
		data = UserData{ID: u.ID, Name: u.Name, Email: u.Email, Age: u.Age, IsActive: u.IsActive}
	}
	return Event{Type: eventType, Timestamp: time.Now().UTC(), Data: data}
}

// User converts the snapshot back to an entity.
func (d UserData) User() entity.User {
	return entity.User{ID: d.ID, Name: d.Name, Email: d.Email, Age: d.Age, IsActive: d.IsActive}
}
