// request_context.go - Per-inspection request tracking and step timing.
package common

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
)

// RequestContext tracks one inspection request's lifecycle: a request id
// for log correlation plus per-step timing, grounded on the teacher's
// request-tracking logger but stripped of the receipt-pricing concerns
// that have no analog here.
type RequestContext struct {
	RequestID        string
	SessionID        string
	StartTime        time.Time
	Steps            []StepLog
	CurrentStep      string
	CurrentStepStart time.Time
}

// StepLog is a single named phase of an inspection (e.g. "load_image",
// "dispatch_rois", "aggregate_and_resolve_barcodes").
type StepLog struct {
	Name     string    `json:"name"`
	Start    time.Time `json:"start_time"`
	Duration int64     `json:"duration_ms"`
	Status   string    `json:"status"`
	Error    string    `json:"error,omitempty"`
}

// NewRequestContext creates a new request tracking context for one
// inspection belonging to sessionID.
func NewRequestContext(sessionID string) *RequestContext {
	reqID := uuid.New().String()
	now := time.Now()
	log.Printf("[%s] inspection request started | session=%s", reqID, sessionID)
	return &RequestContext{RequestID: reqID, SessionID: sessionID, StartTime: now, Steps: []StepLog{}}
}

// StartStep begins tracking a new processing step.
func (rc *RequestContext) StartStep(name string) {
	rc.CurrentStep = name
	rc.CurrentStepStart = time.Now()
	log.Printf("[%s] step start: %s", rc.RequestID, name)
}

// EndStep completes the current step, recording its duration and outcome.
func (rc *RequestContext) EndStep(err error) {
	duration := time.Since(rc.CurrentStepStart).Milliseconds()
	step := StepLog{Name: rc.CurrentStep, Start: rc.CurrentStepStart, Duration: duration, Status: "success"}
	if err != nil {
		step.Status = "failed"
		step.Error = err.Error()
		log.Printf("[%s] step failed: %s (%dms) - %v", rc.RequestID, rc.CurrentStep, duration, err)
	} else {
		log.Printf("[%s] step done: %s (%dms)", rc.RequestID, rc.CurrentStep, duration)
	}
	rc.Steps = append(rc.Steps, step)
	rc.CurrentStep = ""
}

// Summary returns a final breakdown of the request's step timings, useful
// for attaching to logs or diagnostics endpoints.
func (rc *RequestContext) Summary() map[string]interface{} {
	totalMs := time.Since(rc.StartTime).Milliseconds()
	breakdown := make(map[string]int64, len(rc.Steps))
	for _, s := range rc.Steps {
		breakdown[s.Name] = s.Duration
	}
	return map[string]interface{}{
		"request_id":        rc.RequestID,
		"session_id":        rc.SessionID,
		"total_duration_ms": totalMs,
		"step_breakdown":    breakdown,
		"total_steps":       len(rc.Steps),
	}
}

// LogInfo logs an info-level message tagged with the request id.
func (rc *RequestContext) LogInfo(format string, args ...interface{}) {
	log.Printf("[%s] %s", rc.RequestID, fmt.Sprintf(format, args...))
}

// LogWarning logs a warning-level message tagged with the request id.
func (rc *RequestContext) LogWarning(format string, args ...interface{}) {
	log.Printf("[%s] WARN: %s", rc.RequestID, fmt.Sprintf(format, args...))
}
