package backend

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/beesense/hive-dashboard/internal/core/domain"
)

// The backend contract is unversioned and has drifted between camelCase and
// snake_case. The wire types below accept both spellings; everything past
// this file only sees the canonical domain types.

type wireAuth struct {
	User        wireIdentity `json:"user"`
	Token       string       `json:"token"`
	AccessToken string       `json:"access_token"`
}

type wireIdentity struct {
	ID          string `json:"id"`
	MongoID     string `json:"_id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	IsDemo      *bool  `json:"is_demo"`
	IsDemoCamel *bool  `json:"isDemo"`
}

type wireReading struct {
	HiveID          string     `json:"hive_id"`
	HiveIDCamel     string     `json:"hiveId"`
	Temperature     float64    `json:"temperature"`
	Humidity        float64    `json:"humidity"`
	Battery         *float64   `json:"battery"`
	BatteryLevel    *float64   `json:"battery_level"`
	RecordedAt      *time.Time `json:"recorded_at"`
	RecordedAtCamel *time.Time `json:"recordedAt"`
	Timestamp       *time.Time `json:"timestamp"`
}

type wireHive struct {
	ID                     string       `json:"id"`
	MongoID                string       `json:"_id"`
	HiveID                 string       `json:"hive_id"`
	HiveIDCamel            string       `json:"hiveId"`
	Name                   string       `json:"name"`
	Location               string       `json:"location"`
	EstimatedBeeCount      *int         `json:"estimated_bee_count"`
	EstimatedBeeCountCamel *int         `json:"estimatedBeeCount"`
	Status                 string       `json:"status"`
	LastReading            *wireReading `json:"last_reading"`
	LastReadingCamel       *wireReading `json:"lastReading"`
	CreatedAt              *time.Time   `json:"created_at"`
	CreatedAtCamel         *time.Time   `json:"createdAt"`
}

type wireAlert struct {
	ID             string     `json:"id"`
	MongoID        string     `json:"_id"`
	HiveID         string     `json:"hive_id"`
	HiveIDCamel    string     `json:"hiveId"`
	Kind           string     `json:"kind"`
	Type           string     `json:"type"`
	Severity       string     `json:"severity"`
	Message        string     `json:"message"`
	Value          float64    `json:"value"`
	Acknowledged   bool       `json:"acknowledged"`
	CreatedAt      *time.Time `json:"created_at"`
	CreatedAtCamel *time.Time `json:"createdAt"`
}

func (w wireAuth) toDomain() domain.AuthResult {
	return domain.AuthResult{
		User:  w.User.toDomain(),
		Token: firstString(w.Token, w.AccessToken),
	}
}

func (w wireIdentity) toDomain() domain.Identity {
	role := domain.Role(strings.ToLower(strings.TrimSpace(w.Role)))
	isDemo := role == domain.RoleDemo
	if b := firstBool(w.IsDemo, w.IsDemoCamel); b != nil {
		isDemo = *b
	}
	return domain.Identity{
		ID:     firstString(w.ID, w.MongoID, w.UserID),
		Name:   w.Name,
		Email:  w.Email,
		Role:   role,
		IsDemo: isDemo,
	}
}

func (w wireReading) toDomain() domain.Reading {
	var battery float64
	if w.Battery != nil {
		battery = *w.Battery
	} else if w.BatteryLevel != nil {
		battery = *w.BatteryLevel
	}
	return domain.Reading{
		HiveID:      firstString(w.HiveID, w.HiveIDCamel),
		Temperature: w.Temperature,
		Humidity:    w.Humidity,
		Battery:     battery,
		RecordedAt:  firstTime(w.RecordedAt, w.RecordedAtCamel, w.Timestamp),
	}
}

func (w wireHive) toDomain() domain.Hive {
	h := domain.Hive{
		ID:        firstString(w.ID, w.MongoID, w.HiveID, w.HiveIDCamel),
		Name:      w.Name,
		Location:  w.Location,
		Status:    domain.HiveStatus(strings.ToLower(w.Status)),
		CreatedAt: firstTime(w.CreatedAt, w.CreatedAtCamel),
	}
	if h.Status == "" {
		h.Status = domain.HiveStatusUnknown
	}
	if n := firstInt(w.EstimatedBeeCount, w.EstimatedBeeCountCamel); n != nil {
		h.EstimatedBeeCount = *n
	}
	last := w.LastReading
	if last == nil {
		last = w.LastReadingCamel
	}
	if last != nil {
		r := last.toDomain()
		if r.HiveID == "" {
			r.HiveID = h.ID
		}
		h.LastReading = &r
	}
	return h
}

func (w wireAlert) toDomain() domain.Alert {
	return domain.Alert{
		ID:           firstString(w.ID, w.MongoID),
		HiveID:       firstString(w.HiveID, w.HiveIDCamel),
		Kind:         domain.AlertKind(strings.ToLower(firstString(w.Kind, w.Type))),
		Severity:     domain.AlertSeverity(strings.ToLower(w.Severity)),
		Message:      w.Message,
		Value:        w.Value,
		Acknowledged: w.Acknowledged,
		CreatedAt:    firstTime(w.CreatedAt, w.CreatedAtCamel),
	}
}

// decodeList accepts either a bare JSON array or an envelope carrying the
// array under "data" or "items".
func decodeList[W any](raw []byte) ([]W, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var out []W
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode list: %w", err)
		}
		return out, nil
	}
	var env struct {
		Data  []W `json:"data"`
		Items []W `json:"items"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode list: %w", err)
	}
	if env.Data != nil {
		return env.Data, nil
	}
	return env.Items, nil
}

func convert[W interface{ toDomain() D }, D any](in []W) []D {
	out := make([]D, 0, len(in))
	for _, w := range in {
		out = append(out, w.toDomain())
	}
	return out
}

func firstString(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstInt(vals ...*int) *int {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstBool(vals ...*bool) *bool {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstTime(vals ...*time.Time) time.Time {
	for _, v := range vals {
		if v != nil && !v.IsZero() {
			return v.UTC()
		}
	}
	return time.Time{}
}
