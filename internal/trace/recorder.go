// Package trace records step-by-step execution of analysis requests and keeps
// a bounded in-memory ring of recent sessions for inspection.
package trace

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StepStatus is the state of one logged step event.
type StepStatus string

const (
	StepStarted   StepStatus = "started"
	StepCompleted StepStatus = "completed"
	StepFailed    StepStatus = "failed"
)

// Session lifecycle states.
const (
	StatusInProgress = "in_progress"
	StatusSuccess    = "success"
	StatusFailed     = "failed"
)

// StepCount is the number of canonical pipeline steps.
const StepCount = 15

// stepLabels names the canonical request flow. Steps 1-3 and 14-15 happen on
// the client and are logged descriptively only.
var stepLabels = map[int]string{
	1:  "User uploads images",
	2:  "Client compresses images",
	3:  "User adds annotations (club, outcome, focus, notes)",
	4:  "Client sends form data to backend",
	5:  "Backend validates images (size ceiling, MIME types)",
	6:  "Backend converts to base64 and normalizes formats",
	7:  "Backend fetches recent swings from the store",
	8:  "Backend builds prompt with history context",
	9:  "Backend calls the vision model",
	10: "Model analyzes swing and compares to history",
	11: "Backend parses response (rating and summary)",
	12: "Backend saves complete record to the store",
	13: "Backend returns structured response",
	14: "Client updates state",
	15: "Client renders analysis results",
}

// StepLabel returns the canonical label for a step number.
func StepLabel(n int) string {
	if label, ok := stepLabels[n]; ok {
		return label
	}
	return "Unknown step"
}

// StepEvent is one logged step within a session.
type StepEvent struct {
	StepNumber          int            `json:"step_number"`
	StepName            string         `json:"step_name"`
	Status              StepStatus     `json:"status"`
	Timestamp           time.Time      `json:"timestamp"`
	DurationFromStartMS int64          `json:"duration_from_start_ms"`
	Details             map[string]any `json:"details,omitempty"`
	Error               string         `json:"error,omitempty"`
}

// StepError is a failed step, collected separately for quick scanning.
type StepError struct {
	Step      int       `json:"step"`
	StepName  string    `json:"step_name"`
	Error     string    `json:"error"`
	Timestamp time.Time `json:"timestamp"`
}

// Session is one request's execution log. A session belongs to a single
// request flow, so it needs no internal locking; only the recorder's ring is
// shared between requests.
type Session struct {
	RequestID       string      `json:"request_id"`
	StartedAt       time.Time   `json:"started_at"`
	EndedAt         time.Time   `json:"ended_at,omitzero"`
	Status          string      `json:"status"`
	Steps           []StepEvent `json:"steps"`
	Errors          []StepError `json:"errors"`
	StepsCompleted  int         `json:"steps_completed"`
	TotalDurationMS int64       `json:"total_duration_ms"`
	ErrorCount      int         `json:"error_count"`
}

// LogStep appends an event for the given canonical step.
func (s *Session) LogStep(step int, status StepStatus, details map[string]any, errMsg string) {
	now := time.Now()
	event := StepEvent{
		StepNumber:          step,
		StepName:            StepLabel(step),
		Status:              status,
		Timestamp:           now,
		DurationFromStartMS: now.Sub(s.StartedAt).Milliseconds(),
		Details:             details,
		Error:               errMsg,
	}
	s.Steps = append(s.Steps, event)

	switch status {
	case StepCompleted:
		s.StepsCompleted = step
	case StepFailed:
		s.Errors = append(s.Errors, StepError{
			Step:      step,
			StepName:  event.StepName,
			Error:     errMsg,
			Timestamp: now,
		})
	}

	if errMsg != "" {
		zap.L().Warn("trace step failed",
			zap.String("request_id", s.RequestID),
			zap.Int("step", step),
			zap.String("step_name", event.StepName),
			zap.String("error", errMsg),
		)
	} else {
		zap.L().Debug("trace step",
			zap.String("request_id", s.RequestID),
			zap.Int("step", step),
			zap.String("step_name", event.StepName),
			zap.String("status", string(status)),
		)
	}
}

// Recorder owns the shared ring of finalized sessions. Construct one per
// process and inject it; tests build isolated instances.
type Recorder struct {
	mu       sync.Mutex
	capacity int
	sessions []*Session // oldest first
}

// NewRecorder creates a Recorder retaining up to capacity finalized sessions.
func NewRecorder(capacity int) *Recorder {
	if capacity < 1 {
		capacity = 50
	}
	return &Recorder{capacity: capacity}
}

// Capacity returns the ring size.
func (r *Recorder) Capacity() int {
	return r.capacity
}

// Start opens a new session, generating a request id if none is supplied.
func (r *Recorder) Start(requestID string) *Session {
	if requestID == "" {
		requestID = uuid.New().String()
	}
	s := &Session{
		RequestID: requestID,
		StartedAt: time.Now(),
		Status:    StatusInProgress,
	}
	zap.L().Debug("trace session started", zap.String("request_id", requestID))
	return s
}

// Finalize stamps the session outcome and pushes a snapshot into the ring,
// evicting the oldest session when full.
func (r *Recorder) Finalize(s *Session, success bool) {
	s.EndedAt = time.Now()
	s.TotalDurationMS = s.EndedAt.Sub(s.StartedAt).Milliseconds()
	s.ErrorCount = len(s.Errors)
	if success {
		s.Status = StatusSuccess
	} else {
		s.Status = StatusFailed
	}

	snap := s.snapshot()

	r.mu.Lock()
	r.sessions = append(r.sessions, snap)
	if len(r.sessions) > r.capacity {
		r.sessions = r.sessions[len(r.sessions)-r.capacity:]
	}
	r.mu.Unlock()

	zap.L().Info("trace session finalized",
		zap.String("request_id", s.RequestID),
		zap.String("status", s.Status),
		zap.Int64("duration_ms", s.TotalDurationMS),
		zap.Int("errors", s.ErrorCount),
	)
}

// Recent returns up to limit finalized sessions, most recent first. The limit
// is capped at the ring capacity.
func (r *Recorder) Recent(limit int) []*Session {
	if limit < 1 || limit > r.capacity {
		limit = r.capacity
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.sessions)
	if limit > n {
		limit = n
	}
	out := make([]*Session, limit)
	for i := 0; i < limit; i++ {
		out[i] = r.sessions[n-1-i]
	}
	return out
}

// Get returns the finalized session with the given request id.
func (r *Recorder) Get(requestID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Scan newest first so a reused request id resolves to the latest run.
	for i := len(r.sessions) - 1; i >= 0; i-- {
		if r.sessions[i].RequestID == requestID {
			return r.sessions[i], true
		}
	}
	return nil, false
}

// snapshot deep-copies the session so later mutation cannot reach the ring.
func (s *Session) snapshot() *Session {
	cp := *s
	cp.Steps = make([]StepEvent, len(s.Steps))
	copy(cp.Steps, s.Steps)
	cp.Errors = make([]StepError, len(s.Errors))
	copy(cp.Errors, s.Errors)
	return &cp
}
