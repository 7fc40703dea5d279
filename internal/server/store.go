package server

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"planning-poker/internal/estimation"
)

var (
	errSessionNotFound = errors.New("session not found")
	errSessionRunning  = errors.New("session already running")
)

type storeEntry struct {
	joinCode string

	mu      sync.Mutex
	session Session
}

// Store keeps the rooms of this process. The map is guarded by mu and every
// room has its own lock, so updates to one room are serialized without
// blocking the others.
type Store struct {
	mu      sync.Mutex
	nextID  int
	entries map[string]*storeEntry
}

func NewStore() *Store {
	return &Store{
		nextID:  1,
		entries: make(map[string]*storeEntry),
	}
}

func (s *Store) CreateSession(now time.Time) Session {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := fmt.Sprintf("session-%d", s.nextID)
	for s.entries[id] != nil {
		s.nextID++
		id = fmt.Sprintf("session-%d", s.nextID)
	}
	s.nextID++
	return s.insertLocked(id, now)
}

// EnsureSession returns the room with the given id, creating it when missing.
func (s *Store) EnsureSession(id string, now time.Time) Session {
	s.mu.Lock()
	entry, ok := s.entries[id]
	if !ok {
		defer s.mu.Unlock()
		return s.insertLocked(id, now)
	}
	s.mu.Unlock()
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.clone()
}

func (s *Store) insertLocked(id string, now time.Time) Session {
	code := newJoinCode()
	for s.joinCodeTakenLocked(code) {
		code = newJoinCode()
	}
	session := Session{
		ID:        id,
		JoinCode:  code,
		CreatedAt: now,
		State:     estimation.NewState(),
	}
	s.entries[id] = &storeEntry{joinCode: code, session: session}
	return session.clone()
}

func (s *Store) joinCodeTakenLocked(code string) bool {
	for _, entry := range s.entries {
		if entry.joinCode == code {
			return true
		}
	}
	return false
}

func (s *Store) GetSession(id string) (Session, bool) {
	entry, ok := s.entry(id)
	if !ok {
		return Session{}, false
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	return entry.session.clone(), true
}

func (s *Store) FindByJoinCode(code string) (Session, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return Session{}, false
	}
	s.mu.Lock()
	var found *storeEntry
	for _, entry := range s.entries {
		if entry.joinCode == code {
			found = entry
			break
		}
	}
	s.mu.Unlock()
	if found == nil {
		return Session{}, false
	}
	found.mu.Lock()
	defer found.mu.Unlock()
	return found.session.clone(), true
}

// Resolve looks a room up by id first, then by join code.
func (s *Store) Resolve(idOrCode string) (Session, bool) {
	if session, ok := s.GetSession(idOrCode); ok {
		return session, true
	}
	return s.FindByJoinCode(idOrCode)
}

// UpdateSession runs update with the room locked and returns a copy of the
// result. Changes made by a failing update are discarded.
func (s *Store) UpdateSession(id string, update func(session *Session) error) (Session, error) {
	entry, ok := s.entry(id)
	if !ok {
		return Session{}, errSessionNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	working := entry.session.clone()
	if err := update(&working); err != nil {
		return entry.session.clone(), err
	}
	working.ID = entry.session.ID
	working.JoinCode = entry.joinCode
	entry.session = working
	return working.clone(), nil
}

func (s *Store) RestoreSession(session Session) error {
	if session.ID == "" {
		return errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[session.ID]; ok {
		return errSessionRunning
	}
	if session.JoinCode != "" && s.joinCodeTakenLocked(session.JoinCode) {
		return errSessionRunning
	}
	if session.JoinCode == "" {
		session.JoinCode = newJoinCode()
	}
	s.entries[session.ID] = &storeEntry{joinCode: session.JoinCode, session: session.clone()}
	if id := sessionSortKey(session.ID); id >= s.nextID {
		s.nextID = id + 1
	}
	return nil
}

func (s *Store) ListSummaries() []SessionSummary {
	s.mu.Lock()
	entries := make([]*storeEntry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	s.mu.Unlock()

	list := make([]SessionSummary, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		list = append(list, SessionSummary{
			ID:           entry.session.ID,
			JoinCode:     entry.session.JoinCode,
			Participants: len(entry.session.State.Participants),
			Revealed:     entry.session.State.Revealed,
		})
		entry.mu.Unlock()
	}
	sort.Slice(list, func(i, j int) bool {
		left, right := sessionSortKey(list[i].ID), sessionSortKey(list[j].ID)
		if left != right {
			return left < right
		}
		return list[i].ID < list[j].ID
	})
	return list
}

func (s *Store) entry(id string) (*storeEntry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[id]
	return entry, ok
}

func sessionSortKey(id string) int {
	parts := strings.Split(id, "-")
	if len(parts) < 2 {
		return 0
	}
	value, err := strconv.Atoi(parts[len(parts)-1])
	if err != nil {
		return 0
	}
	return value
}
