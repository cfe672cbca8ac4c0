package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"sync"

	"github.com/aarch64sim/aarch64sim/loader"
	"github.com/aarch64sim/aarch64sim/service"
)

var ErrSessionNotFound = errors.New("session not found")

// SessionManager tracks the set of live simulation sessions, identified by
// a random hex ID, following the teacher's api.SessionManager keyed-map
// shape.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*service.Session
}

func NewSessionManager() *SessionManager {
	return &SessionManager{sessions: make(map[string]*service.Session)}
}

// Create loads the ELF at path into a new session and starts it.
func (sm *SessionManager) Create(path string, maxCycles uint64) (string, *service.Session, error) {
	img, err := loader.LoadFile(path)
	if err != nil {
		return "", nil, err
	}

	id, err := newSessionID()
	if err != nil {
		return "", nil, err
	}

	sess := service.New(img, maxCycles)
	sess.Start()

	sm.mu.Lock()
	sm.sessions[id] = sess
	sm.mu.Unlock()

	return id, sess, nil
}

func (sm *SessionManager) Get(id string) (*service.Session, error) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	sess, ok := sm.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

func (sm *SessionManager) Delete(id string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	delete(sm.sessions, id)
}

func newSessionID() (string, error) {
	buf := make([]byte, 8)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
