// Package session manages per-client inspection sessions: UUID identity,
// a shared-filesystem workspace, and an idle-expiration sweeper (§4.7).
package session

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/bosocmputer/visual-inspector/internal/inspection"
)

// ErrNotFound is returned by Get when the session id is unknown or has
// already been closed/swept.
var ErrNotFound = errors.New("session_not_found")

// ErrConflict is returned by BeginInspection when an inspection is
// already in progress on that session.
var ErrConflict = errors.New("conflict")

// Session is the in-memory record plus workspace location for one
// client session. The embedded mutex guards every field below it.
type Session struct {
	ID          string
	ProductName string
	CreatedAt   time.Time

	mu                    sync.Mutex
	lastActivity          time.Time
	inspectionCount       int
	inspectionInProgress  bool
	lastResults           *inspection.Result
}

func (s *Session) touch() {
	s.lastActivity = time.Now()
}

// Status is a point-in-time, lock-safe snapshot of a session's
// mutable state, suitable for returning from a status endpoint.
type Status struct {
	SessionID            string
	ProductName          string
	InspectionCount      int
	LastActivity         time.Time
	InspectionInProgress bool
}

func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		SessionID:            s.ID,
		ProductName:          s.ProductName,
		InspectionCount:      s.inspectionCount,
		LastActivity:         s.lastActivity,
		InspectionInProgress: s.inspectionInProgress,
	}
}

// InputDir is where the client writes image files referenced by
// filename in an inspect request.
func (s *Session) InputDir(sharedRoot string) string {
	return filepath.Join(sharedRoot, "sessions", s.ID, "input")
}

// OutputDir is where the executor writes roi/golden artifacts.
func (s *Session) OutputDir(sharedRoot string) string {
	return filepath.Join(sharedRoot, "sessions", s.ID, "output")
}

func workspaceDir(sharedRoot, id string) string {
	return filepath.Join(sharedRoot, "sessions", id)
}

// Manager is the in-memory session registry plus idle sweeper (§4.7).
type Manager struct {
	SharedRoot string

	mu       sync.Mutex
	sessions map[string]*Session

	idleTimeout time.Duration
}

func NewManager(sharedRoot string, idleTimeout time.Duration) *Manager {
	return &Manager{
		SharedRoot:  sharedRoot,
		sessions:    make(map[string]*Session),
		idleTimeout: idleTimeout,
	}
}

// Create generates a UUID session, defensively clears any residual
// directory at the target workspace path, creates input/ and output/,
// and installs the record in the registry.
func (m *Manager) Create(productName string) (*Session, error) {
	id := uuid.New().String()
	dir := workspaceDir(m.SharedRoot, id)

	if err := os.RemoveAll(dir); err != nil {
		return nil, fmt.Errorf("clearing residual workspace: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "input"), 0o755); err != nil {
		return nil, fmt.Errorf("creating input dir: %w", err)
	}
	if err := os.MkdirAll(filepath.Join(dir, "output"), 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	now := time.Now()
	sess := &Session{
		ID:           id,
		ProductName:  productName,
		CreatedAt:    now,
		lastActivity: now,
	}

	m.mu.Lock()
	m.sessions[id] = sess
	m.mu.Unlock()

	log.Printf("session %s created for product %q", id, productName)
	return sess, nil
}

// Get returns the session record or ErrNotFound.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	sess, ok := m.sessions[id]
	m.mu.Unlock()
	if !ok {
		return nil, ErrNotFound
	}
	return sess, nil
}

// BeginInspection atomically marks the session busy, rejecting a second
// concurrent inspection with ErrConflict.
func (m *Manager) BeginInspection(id string) (*Session, error) {
	sess, err := m.Get(id)
	if err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	if sess.inspectionInProgress {
		return nil, ErrConflict
	}
	sess.inspectionInProgress = true
	sess.touch()
	return sess, nil
}

// EndInspection clears the in-progress flag, bumps the inspection
// counter, and stores the last result. Callers must invoke this on
// every path out of an inspection, including errors, so the flag is
// never left stuck (the scoped-acquisition guarantee of §4.7).
func (m *Manager) EndInspection(id string, result *inspection.Result) {
	sess, err := m.Get(id)
	if err != nil {
		return
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	sess.inspectionInProgress = false
	sess.inspectionCount++
	sess.lastResults = result
	sess.touch()
}

// Close removes the session record and deletes its workspace tree,
// reporting whether deletion succeeded (deletion failure does not
// corrupt the registry — it is logged and the record is still removed).
func (m *Manager) Close(id string) (deleted bool) {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return false
	}

	dir := workspaceDir(m.SharedRoot, id)
	if err := os.RemoveAll(dir); err != nil {
		log.Printf("session %s: workspace deletion failed: %v", id, err)
		return false
	}
	return true
}

// Sweep removes sessions idle longer than the configured timeout and
// deletes their workspaces. A session with an inspection in progress is
// left alone regardless of idle time.
func (m *Manager) Sweep() {
	now := time.Now()

	m.mu.Lock()
	var expired []string
	for id, sess := range m.sessions {
		sess.mu.Lock()
		idle := !sess.inspectionInProgress && now.Sub(sess.lastActivity) > m.idleTimeout
		sess.mu.Unlock()
		if idle {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	for _, id := range expired {
		dir := workspaceDir(m.SharedRoot, id)
		if err := os.RemoveAll(dir); err != nil {
			log.Printf("session %s: sweep workspace deletion failed: %v", id, err)
			continue
		}
		log.Printf("session %s swept after idle timeout", id)
	}
}

// StartSweeper runs Sweep on the given interval in a background goroutine
// until stop is closed or receives a value.
func (m *Manager) StartSweeper(interval time.Duration, stop <-chan struct{}) {
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				m.Sweep()
			case <-stop:
				return
			}
		}
	}()
}
