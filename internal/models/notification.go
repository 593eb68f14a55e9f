package models

import "time"

// Notification is a user-visible message handed to the display subsystem
type Notification struct {
	ID        string                 `json:"id"`
	Title     string                 `json:"title"`
	Body      string                 `json:"body"`
	Icon      string                 `json:"icon,omitempty"`
	Badge     string                 `json:"badge,omitempty"`
	Vibrate   []int                  `json:"vibrate,omitempty"`
	Tag       string                 `json:"tag,omitempty"`
	Data      map[string]interface{} `json:"data,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// MessageType discriminates frames sent to connected pages
type MessageType string

const (
	MessageNotification     MessageType = "notification"
	MessageControllerChange MessageType = "controllerchange"
)

// Message is a frame on the page events stream
type Message struct {
	Type         MessageType   `json:"type"`
	Namespace    string        `json:"namespace,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
}
