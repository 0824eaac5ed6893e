package domain

import (
	"fmt"
	"time"
)

// HiveStatus summarises the latest known condition of a hive.
type HiveStatus string

const (
	HiveStatusUnknown  HiveStatus = "unknown"
	HiveStatusHealthy  HiveStatus = "healthy"
	HiveStatusWarning  HiveStatus = "warning"
	HiveStatusCritical HiveStatus = "critical"
)

// Hive is the canonical hive shape used by the dashboard.
type Hive struct {
	ID                string     `json:"id" bson:"_id"`
	Name              string     `json:"name" bson:"name"`
	Location          string     `json:"location" bson:"location"`
	EstimatedBeeCount int        `json:"estimated_bee_count" bson:"estimated_bee_count"`
	Status            HiveStatus `json:"status" bson:"status"`
	LastReading       *Reading   `json:"last_reading,omitempty" bson:"last_reading,omitempty"`
	CreatedAt         time.Time  `json:"created_at" bson:"created_at"`
}

// Reading is a single sensor sample reported by a hive.
type Reading struct {
	HiveID      string    `json:"hive_id" bson:"hive_id"`
	Temperature float64   `json:"temperature" bson:"temperature"`
	Humidity    float64   `json:"humidity" bson:"humidity"`
	Battery     float64   `json:"battery" bson:"battery"`
	RecordedAt  time.Time `json:"recorded_at" bson:"recorded_at"`
}

// AlertKind is the sensor dimension an alert was raised for.
type AlertKind string

const (
	AlertTemperature AlertKind = "temperature"
	AlertHumidity    AlertKind = "humidity"
	AlertBattery     AlertKind = "battery"
)

// AlertSeverity ranks alerts.
type AlertSeverity string

const (
	SeverityWarning  AlertSeverity = "warning"
	SeverityCritical AlertSeverity = "critical"
)

// Alert is raised when a reading falls outside the healthy range.
type Alert struct {
	ID           string        `json:"id" bson:"_id"`
	HiveID       string        `json:"hive_id" bson:"hive_id"`
	Kind         AlertKind     `json:"kind" bson:"kind"`
	Severity     AlertSeverity `json:"severity" bson:"severity"`
	Message      string        `json:"message" bson:"message"`
	Value        float64       `json:"value" bson:"value"`
	Acknowledged bool          `json:"acknowledged" bson:"acknowledged"`
	CreatedAt    time.Time     `json:"created_at" bson:"created_at"`
}

// threshold describes the healthy band of one sensor dimension. A zero bound
// is not checked.
type threshold struct {
	kind                      AlertKind
	warnLow, warnHigh         float64
	criticalLow, criticalHigh float64
	unit                      string
}

var thresholds = []threshold{
	{kind: AlertTemperature, warnLow: 30, warnHigh: 38, criticalLow: 25, criticalHigh: 40, unit: "°C"},
	{kind: AlertHumidity, warnLow: 40, warnHigh: 80, unit: "%"},
	{kind: AlertBattery, warnLow: 20, criticalLow: 10, unit: "%"},
}

func (r Reading) value(kind AlertKind) float64 {
	switch kind {
	case AlertTemperature:
		return r.Temperature
	case AlertHumidity:
		return r.Humidity
	default:
		return r.Battery
	}
}

// Evaluate returns one alert per dimension that is outside its healthy band.
// IDs and timestamps are left for the caller to fill in.
func (r Reading) Evaluate() []Alert {
	var alerts []Alert
	for _, t := range thresholds {
		v := r.value(t.kind)
		var sev AlertSeverity
		switch {
		case t.criticalLow != 0 && v < t.criticalLow, t.criticalHigh != 0 && v > t.criticalHigh:
			sev = SeverityCritical
		case t.warnLow != 0 && v < t.warnLow, t.warnHigh != 0 && v > t.warnHigh:
			sev = SeverityWarning
		default:
			continue
		}
		alerts = append(alerts, Alert{
			HiveID:   r.HiveID,
			Kind:     t.kind,
			Severity: sev,
			Value:    v,
			Message:  alertMessage(t, v),
		})
	}
	return alerts
}

func alertMessage(t threshold, v float64) string {
	return fmt.Sprintf("%s %.1f%s is outside the healthy range", t.kind, v, t.unit)
}

// StatusFromAlerts derives the hive status from the alerts a reading produced.
func StatusFromAlerts(alerts []Alert) HiveStatus {
	status := HiveStatusHealthy
	for _, a := range alerts {
		if a.Severity == SeverityCritical {
			return HiveStatusCritical
		}
		status = HiveStatusWarning
	}
	return status
}
