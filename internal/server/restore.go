package server

import (
	"errors"
	"strings"

	"planning-poker/internal/db"
	"planning-poker/internal/estimation"

	"gorm.io/gorm"
)

var errNoDatabase = errors.New("database not configured")

// loadSessionFromDB rebuilds a room from its rows. param may be the room id or
// its join code.
func (s *Server) loadSessionFromDB(param string) (Session, error) {
	if s.db == nil {
		return Session{}, errNoDatabase
	}
	record, err := findSessionRecord(s.db, param)
	if err != nil {
		return Session{}, err
	}
	state, err := loadState(s.db, record)
	if err != nil {
		return Session{}, err
	}
	return Session{
		ID:        record.Slug,
		DBID:      record.ID,
		JoinCode:  record.JoinCode,
		CreatedAt: record.CreatedAt,
		State:     state,
	}, nil
}

func findSessionRecord(conn *gorm.DB, param string) (db.PokerSession, error) {
	param = strings.TrimSpace(param)
	var record db.PokerSession
	err := conn.Where("slug = ?", param).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = conn.Where("join_code = ?", strings.ToUpper(param)).First(&record).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return db.PokerSession{}, errSessionNotFound
	}
	return record, err
}

// loadState reads the rows of one room. conn may be a transaction.
func loadState(conn *gorm.DB, record db.PokerSession) (estimation.State, error) {
	var participants []db.Participant
	if err := conn.Where("session_id = ?", record.ID).Order("joined_at asc, id asc").Find(&participants).Error; err != nil {
		return estimation.State{}, err
	}
	var statuses []db.ParticipantStatus
	if err := conn.Where("session_id = ?", record.ID).Find(&statuses).Error; err != nil {
		return estimation.State{}, err
	}
	var votes []db.Vote
	if err := conn.Where("session_id = ?", record.ID).Order("id asc").Find(&votes).Error; err != nil {
		return estimation.State{}, err
	}
	var estimates []db.AdminEstimate
	if err := conn.Where("session_id = ?", record.ID).Find(&estimates).Error; err != nil {
		return estimation.State{}, err
	}
	return buildState(record, participants, statuses, votes, estimates), nil
}

func buildState(record db.PokerSession, participants []db.Participant, statuses []db.ParticipantStatus, votes []db.Vote, estimates []db.AdminEstimate) estimation.State {
	state := estimation.NewState()
	state.Revealed = record.Revealed
	for _, participant := range participants {
		if !state.HasParticipant(participant.Name) {
			state.Participants = append(state.Participants, participant.Name)
		}
	}
	for _, status := range statuses {
		if status.Finished {
			state.Finished[status.Name] = true
		}
		if status.Modified {
			state.Modified[status.Name] = true
		}
	}
	for _, vote := range votes {
		phase := state.Votes[vote.Phase]
		if phase == nil {
			phase = make(map[string]estimation.EstimateValue)
			state.Votes[vote.Phase] = phase
		}
		phase[vote.Participant] = estimation.EstimateValue(vote.Value)
	}
	for _, estimate := range estimates {
		state.AdminEstimates[estimate.Phase] = estimation.EstimateValue(estimate.Value)
	}
	return state
}

// restoreSession brings a room that exists only in the database into the
// store and returns it.
func (s *Server) restoreSession(param string) (Session, error) {
	loaded, err := s.loadSessionFromDB(param)
	if err != nil {
		return Session{}, err
	}
	if existing, ok := s.store.GetSession(loaded.ID); ok {
		return existing, nil
	}
	if err := s.store.RestoreSession(loaded); err != nil {
		if existing, ok := s.store.GetSession(loaded.ID); ok {
			return existing, nil
		}
		return Session{}, err
	}
	return loaded, nil
}

// reloadSession replaces the in-memory state of a running room with what the
// database holds.
func (s *Server) reloadSession(id string) (Session, error) {
	loaded, err := s.loadSessionFromDB(id)
	if err != nil {
		return Session{}, err
	}
	session, err := s.store.UpdateSession(loaded.ID, func(session *Session) error {
		session.DBID = loaded.DBID
		session.State = loaded.State
		return nil
	})
	if errors.Is(err, errSessionNotFound) {
		return s.restoreSession(loaded.ID)
	}
	return session, err
}
