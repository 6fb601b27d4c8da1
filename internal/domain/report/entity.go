package report

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Status represents the lifecycle state of a report.
type Status string

const (
	StatusOpen       Status = "OPEN"
	StatusInProgress Status = "IN_PROGRESS"
	StatusResolved   Status = "RESOLVED"
	StatusRejected   Status = "REJECTED"
)

// Display returns the human-readable label for the status.
func (s Status) Display() string {
	switch s {
	case StatusOpen:
		return "Open"
	case StatusInProgress:
		return "In Progress"
	case StatusResolved:
		return "Resolved"
	case StatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// Color returns the embed color hint for the status. Presentation
// layers may ignore it.
func (s Status) Color() int {
	switch s {
	case StatusOpen:
		return 0x55ff55
	case StatusInProgress:
		return 0xffff55
	case StatusResolved:
		return 0x00aa00
	case StatusRejected:
		return 0xff5555
	default:
		return 0xaaaaaa
	}
}

// Valid reports whether s is one of the defined enum values.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusInProgress, StatusResolved, StatusRejected:
		return true
	}
	return false
}

// StatusFromString parses a status case-insensitively, defaulting to
// OPEN for unknown values.
func StatusFromString(s string) Status {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if !st.Valid() {
		return StatusOpen
	}
	return st
}

// Report is a single user-submitted incident record. Identity and the
// submission-time facts are immutable once stored; status, handler and
// the comment log may change.
type Report struct {
	ID          int64     `db:"id" json:"id"`
	PlayerName  string    `db:"player_name" json:"player_name"`
	PlayerUUID  string    `db:"player_uuid" json:"player_uuid"`
	Description string    `db:"description" json:"description"`
	World       string    `db:"world" json:"world"`
	X           float64   `db:"x" json:"x"`
	Y           float64   `db:"y" json:"y"`
	Z           float64   `db:"z" json:"z"`
	IPAddress   string    `db:"ip_address" json:"ip_address"`
	GameMode    string    `db:"game_mode" json:"game_mode"`
	Health      float64   `db:"health" json:"health"`
	Level       int       `db:"level" json:"level"`
	Inventory   string    `db:"inventory" json:"inventory"`
	Comments    string    `db:"comments" json:"-"`
	Status      Status    `db:"status" json:"status"`
	Handler     string    `db:"handler" json:"handler,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// Summary is the list-view projection of a report.
type Summary struct {
	ID          int64     `db:"id" json:"id"`
	PlayerName  string    `db:"player_name" json:"player_name"`
	Description string    `db:"description" json:"description"`
	Status      Status    `db:"status" json:"status"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Location formats the composite location string used by submission
// clients: "World: %s, X: %.2f, Y: %.2f, Z: %.2f".
func (r *Report) Location() string {
	return FormatLocation(r.World, r.X, r.Y, r.Z)
}

// FormatLocation builds the composite location string.
func FormatLocation(world string, x, y, z float64) string {
	return fmt.Sprintf("World: %s, X: %.2f, Y: %.2f, Z: %.2f", world, x, y, z)
}

// ParseLocation splits a composite location string back into its parts.
// The format is fixed; submission validation guarantees well-formed
// input before it reaches this split.
func ParseLocation(location string) (world string, x, y, z float64, err error) {
	parts := strings.Split(location, ", ")
	if len(parts) != 4 {
		return "", 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	world = strings.TrimPrefix(parts[0], "World: ")
	if world == parts[0] || world == "" {
		return "", 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
	}

	coords := [3]float64{}
	for i, prefix := range []string{"X: ", "Y: ", "Z: "} {
		raw := strings.TrimPrefix(parts[i+1], prefix)
		if raw == parts[i+1] {
			return "", 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
		}
		v, perr := strconv.ParseFloat(raw, 64)
		if perr != nil {
			return "", 0, 0, 0, fmt.Errorf("%w: %q", ErrInvalidLocation, location)
		}
		coords[i] = v
	}

	return world, coords[0], coords[1], coords[2], nil
}

// CommentTimeFormat is the timestamp layout used in comment log lines.
const CommentTimeFormat = "2006-01-02 15:04:05"

// FormatComment builds one comment log line. Lines are append-only and
// newline-joined inside the encrypted comments blob.
func FormatComment(at time.Time, author, text string) string {
	return fmt.Sprintf("[%s] %s: %s", at.Format(CommentTimeFormat), author, text)
}
