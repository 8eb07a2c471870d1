package model

import (
	"strings"
	"time"
)

// Position is one of the four fixed swing phases a photo can capture.
type Position string

const (
	PositionAddress       Position = "address"
	PositionTop           Position = "top"
	PositionImpact        Position = "impact"
	PositionFollowThrough Position = "follow_through"
)

// AllPositions lists the valid positions in canonical swing order. Request
// handling preserves upload order instead; this is reference data only.
var AllPositions = []Position{
	PositionAddress,
	PositionTop,
	PositionImpact,
	PositionFollowThrough,
}

// ParsePosition validates a position name, case-insensitively.
func ParsePosition(s string) (Position, bool) {
	p := Position(strings.ToLower(strings.TrimSpace(s)))
	for _, v := range AllPositions {
		if p == v {
			return v, true
		}
	}
	return "", false
}

// EncodedImage is an uploaded image in transport form: base64 payload plus
// the normalized media type sent to the vision model.
type EncodedImage struct {
	Data      string `json:"data"`
	MediaType string `json:"media_type"`
}

// Annotation carries the optional per-shot context a golfer supplies with an
// upload. Empty string and absent mean the same thing everywhere.
type Annotation struct {
	Club        string `json:"club,omitempty"`
	ShotOutcome string `json:"shot_outcome,omitempty"`
	FocusArea   string `json:"focus_area,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// Empty reports whether no annotation field carries a value.
func (a Annotation) Empty() bool {
	return strings.TrimSpace(a.Club) == "" &&
		strings.TrimSpace(a.ShotOutcome) == "" &&
		strings.TrimSpace(a.FocusArea) == "" &&
		strings.TrimSpace(a.Notes) == ""
}

// AnalysisRecord is one persisted swing analysis. Records are immutable once
// created; the only mutation is a hard delete.
type AnalysisRecord struct {
	ID        string                    `json:"id"`
	CreatedAt time.Time                 `json:"created_at"`
	Images    map[Position]EncodedImage `json:"images"`
	Analysis  string                    `json:"analysis"`
	Summary   string                    `json:"summary,omitempty"`
	Rating    *int                      `json:"rating,omitempty"`
	Positions []Position                `json:"positions"`
	Annotation
}

// NewRecord is the payload for Store.Create. The store assigns ID and
// CreatedAt.
type NewRecord struct {
	Images     map[Position]EncodedImage
	Analysis   string
	Summary    string
	Rating     *int
	Positions  []Position
	Annotation Annotation
}

// PositionsCSV renders the analyzed positions as the comma-joined form stored
// alongside the record.
func PositionsCSV(positions []Position) string {
	parts := make([]string, len(positions))
	for i, p := range positions {
		parts[i] = string(p)
	}
	return strings.Join(parts, ",")
}

// PositionsFromCSV parses the stored comma-joined form back into positions,
// preserving order and skipping anything unrecognized.
func PositionsFromCSV(s string) []Position {
	var out []Position
	for _, part := range strings.Split(s, ",") {
		if p, ok := ParsePosition(part); ok {
			out = append(out, p)
		}
	}
	return out
}
