package storage

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// DateFormat is the calendar-date key used for all range queries.
const DateFormat = "2006-01-02"

// Mode classifies tracked time as work or leisure.
type Mode string

const (
	ModeWork    Mode = "work"
	ModeLeisure Mode = "leisure"
)

// UnmarshalJSON implements json.Unmarshaler to normalize the mode to lowercase.
func (m *Mode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}

	normalized := Mode(strings.ToLower(s))

	switch normalized {
	case ModeWork, ModeLeisure:
		*m = normalized
		return nil
	default:
		return fmt.Errorf("invalid mode: %s (must be work or leisure)", s)
	}
}

// MarshalJSON implements json.Marshaler to ensure lowercase output.
func (m Mode) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(m))
}

// Other returns the opposite mode.
func (m Mode) Other() Mode {
	if m == ModeWork {
		return ModeLeisure
	}
	return ModeWork
}

// Session represents one contiguous interval of detected activity in a
// single mode. While open, DurationSeconds is refreshed on every flush;
// once Active is false the record is write-once.
type Session struct {
	ID              string     `json:"id"`
	Date            string     `json:"date"`
	StartedAt       time.Time  `json:"started_at"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
	Mode            Mode       `json:"mode"`
	Active          bool       `json:"active"`
}

// PausePeriod represents a recorded interval of inactivity longer than
// the idle threshold. Immutable once written.
type PausePeriod struct {
	ID              string    `json:"id"`
	Date            string    `json:"date"`
	StartedAt       time.Time `json:"started_at"`
	EndedAt         time.Time `json:"ended_at"`
	DurationSeconds int64     `json:"duration_seconds"`
}

// DailySummary aggregates work and leisure seconds for one calendar date.
// It is derived from session records, never stored.
type DailySummary struct {
	Date           string `json:"date"`
	WorkSeconds    int64  `json:"work_seconds"`
	LeisureSeconds int64  `json:"leisure_seconds"`
}

// TotalSeconds returns combined work and leisure time for the day.
func (d DailySummary) TotalSeconds() int64 {
	return d.WorkSeconds + d.LeisureSeconds
}

// NewRecordID generates a unique record ID.
func NewRecordID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		// This should never happen with a working system RNG
		panic(fmt.Sprintf("failed to generate random record ID: %v", err))
	}
	return hex.EncodeToString(bytes)
}
