package handler

import (
	"time"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

type loginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type registerRequest struct {
	Name     string `json:"name"     validate:"required,max=100"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

// sessionResponse is the dashboard's view of the current session.
type sessionResponse struct {
	User          *domain.Identity `json:"user"`
	DemoExpiresAt *time.Time       `json:"demo_expires_at,omitempty"`
}

// sessionEventMessage is one websocket frame on /api/session/events.
type sessionEventMessage struct {
	Reason        string           `json:"reason"`
	User          *domain.Identity `json:"user"`
	At            time.Time        `json:"at"`
	DemoExpiresAt *time.Time       `json:"demo_expires_at,omitempty"`
}

type readingRequest struct {
	HiveID      string    `json:"hive_id"     validate:"required"`
	Temperature float64   `json:"temperature" validate:"gte=-40,lte=80"`
	Humidity    float64   `json:"humidity"    validate:"gte=0,lte=100"`
	Battery     float64   `json:"battery"     validate:"gte=0,lte=100"`
	RecordedAt  time.Time `json:"recorded_at" validate:"required"`
}

type createHiveRequest struct {
	Name              string `json:"name"                validate:"required,max=100"`
	Location          string `json:"location"            validate:"max=200"`
	EstimatedBeeCount int    `json:"estimated_bee_count" validate:"gte=0"`
}

type acceptedResponse struct {
	Message string `json:"message"`
	Count   int    `json:"count,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}
