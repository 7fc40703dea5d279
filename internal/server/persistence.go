package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"planning-poker/internal/db"
	"planning-poker/internal/estimation"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ensureSessionRow makes sure session has a poker_sessions row and records its
// primary key in session.DBID.
func (s *Server) ensureSessionRow(conn *gorm.DB, session *Session) error {
	if conn == nil || session.DBID != 0 {
		return nil
	}
	var existing db.PokerSession
	err := conn.Where("slug = ?", session.ID).First(&existing).Error
	if err == nil {
		session.DBID = existing.ID
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	record := db.PokerSession{
		Slug:     session.ID,
		JoinCode: session.JoinCode,
		Revealed: session.State.Revealed,
	}
	if err := conn.Create(&record).Error; err != nil {
		if !isUniqueViolation(err) {
			return err
		}
		if lookupErr := conn.Where("slug = ?", session.ID).First(&existing).Error; lookupErr != nil {
			return err
		}
		session.DBID = existing.ID
		return nil
	}
	session.DBID = record.ID
	return nil
}

type durableResult struct {
	current   estimation.State
	next      estimation.State
	changes   estimation.Changes
	actionErr error
}

// applyDurable applies action to the room as the database holds it, not as
// this process last saw it. The poker_sessions row stays locked until the
// transaction ends, so instances sharing the database apply actions to one
// room one at a time. A rejected action is reported in actionErr together
// with the stored state it was checked against.
func (s *Server) applyDurable(session *Session, actor estimation.Actor, action estimation.Action) (durableResult, error) {
	var result durableResult
	if err := s.ensureSessionRow(s.db, session); err != nil {
		return result, err
	}
	now := s.clock.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var record db.PokerSession
		if err := lockRow(tx).Where("id = ?", session.DBID).First(&record).Error; err != nil {
			return err
		}
		current, err := loadState(tx, record)
		if err != nil {
			return err
		}
		result.current = current
		next, err := s.machine.Apply(current, actor, action)
		if err != nil {
			result.actionErr = err
			return nil
		}
		result.next = next
		result.changes = estimation.Diff(current, next)
		if result.changes.Empty() {
			return nil
		}
		applied := *session
		applied.State = next
		payload, err := json.Marshal(eventPayloadFor(applied, actor, action))
		if err != nil {
			return err
		}
		return writeChanges(tx, record.ID, now, actor, action, result.changes, payload)
	})
	return result, err
}

// lockRow selects FOR UPDATE on Postgres. SQLite serializes writers on its own.
func lockRow(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// clearScope deletes every row a reset covers, whoever wrote it.
func clearScope(tx *gorm.DB, sessionID uint, action estimation.Action) error {
	var models []any
	switch a := action.(type) {
	case estimation.ResetPhase:
		if err := tx.Where("session_id = ? AND phase = ?", sessionID, a.Phase).Delete(&db.Vote{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ? AND phase = ?", sessionID, a.Phase).Delete(&db.AdminEstimate{}).Error; err != nil {
			return err
		}
		models = []any{&db.ParticipantStatus{}}
	case estimation.ResetVotes:
		models = []any{&db.Vote{}, &db.ParticipantStatus{}, &db.AdminEstimate{}}
	case estimation.ResetAll:
		models = []any{&db.Vote{}, &db.ParticipantStatus{}, &db.AdminEstimate{}, &db.Participant{}}
	default:
		return nil
	}
	for _, model := range models {
		if err := tx.Where("session_id = ?", sessionID).Delete(model).Error; err != nil {
			return err
		}
	}
	return tx.Model(&db.PokerSession{}).Where("id = ?", sessionID).Update("revealed", false).Error
}

// writeChanges writes exactly the keys listed in changes plus one event row.
func writeChanges(tx *gorm.DB, sessionID uint, now time.Time, actor estimation.Actor, action estimation.Action, changes estimation.Changes, payload []byte) error {
	if err := clearScope(tx, sessionID, action); err != nil {
		return err
	}
	for _, name := range changes.Joined {
		participant := db.Participant{
			SessionID: sessionID,
			Name:      name,
			JoinedAt:  now,
		}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&participant).Error; err != nil {
			return err
		}
	}
	if len(changes.Left) > 0 {
		if err := tx.Where("session_id = ? AND name IN ?", sessionID, changes.Left).Delete(&db.Participant{}).Error; err != nil {
			return err
		}
		if err := tx.Where("session_id = ? AND name IN ?", sessionID, changes.Left).Delete(&db.ParticipantStatus{}).Error; err != nil {
			return err
		}
	}
	for _, vote := range changes.VotesSet {
		row := db.Vote{
			SessionID:   sessionID,
			Phase:       vote.Phase,
			Participant: vote.Participant,
			Value:       float64(vote.Value),
			UpdatedAt:   now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "phase"}, {Name: "participant"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	for _, key := range changes.VotesDeleted {
		if err := tx.Where("session_id = ? AND phase = ? AND participant = ?", sessionID, key.Phase, key.Participant).
			Delete(&db.Vote{}).Error; err != nil {
			return err
		}
	}
	for _, status := range changes.Statuses {
		if !status.Finished && !status.Modified {
			if err := tx.Where("session_id = ? AND name = ?", sessionID, status.Participant).
				Delete(&db.ParticipantStatus{}).Error; err != nil {
				return err
			}
			continue
		}
		row := db.ParticipantStatus{
			SessionID: sessionID,
			Name:      status.Participant,
			Finished:  status.Finished,
			Modified:  status.Modified,
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"finished", "modified", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	for _, estimate := range changes.EstimatesSet {
		row := db.AdminEstimate{
			SessionID: sessionID,
			Phase:     estimate.Phase,
			Value:     float64(estimate.Value),
			UpdatedAt: now,
		}
		if err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}, {Name: "phase"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).Create(&row).Error; err != nil {
			return err
		}
	}
	if len(changes.EstimatesDeleted) > 0 {
		if err := tx.Where("session_id = ? AND phase IN ?", sessionID, changes.EstimatesDeleted).
			Delete(&db.AdminEstimate{}).Error; err != nil {
			return err
		}
	}
	if changes.RevealedChanged {
		if err := tx.Model(&db.PokerSession{}).Where("id = ?", sessionID).
			Updates(map[string]any{"revealed": changes.Revealed, "updated_at": now}).Error; err != nil {
			return err
		}
	}
	event := db.Event{
		SessionID: sessionID,
		Actor:     actor.Name,
		Type:      action.Type(),
		Payload:   datatypes.JSON(payload),
		CreatedAt: now,
	}
	return tx.Create(&event).Error
}

func (s *Server) persistCreated(session *Session) error {
	if s.db == nil {
		return nil
	}
	if err := s.ensureSessionRow(s.db, session); err != nil {
		return err
	}
	return s.persistCreatedEvent(*session)
}

func (s *Server) persistCreatedEvent(session Session) error {
	data, err := json.Marshal(EventPayload{SessionID: session.ID, JoinCode: session.JoinCode})
	if err != nil {
		return err
	}
	event := db.Event{
		SessionID: session.DBID,
		Type:      "session_created",
		Payload:   datatypes.JSON(data),
		CreatedAt: s.clock.Now().UTC(),
	}
	return s.db.Create(&event).Error
}

// createSession registers a new room. With a database the row is inserted
// first and the room id derives from its primary key, so instances sharing
// the database never hand out the same id.
func (s *Server) createSession() (Session, error) {
	now := s.clock.Now().UTC()
	if s.db == nil {
		return s.store.CreateSession(now), nil
	}
	record := db.PokerSession{Slug: uuid.NewString(), JoinCode: newJoinCode()}
	err := s.db.Create(&record).Error
	if err != nil && isUniqueViolation(err) {
		record = db.PokerSession{Slug: uuid.NewString(), JoinCode: newJoinCode()}
		err = s.db.Create(&record).Error
	}
	if err != nil {
		return Session{}, err
	}
	slug := fmt.Sprintf("session-%d", record.ID)
	if err := s.db.Model(&db.PokerSession{}).Where("id = ?", record.ID).Update("slug", slug).Error; err != nil {
		return Session{}, err
	}
	session := Session{
		ID:        slug,
		DBID:      record.ID,
		JoinCode:  record.JoinCode,
		CreatedAt: now,
		State:     estimation.NewState(),
	}
	if err := s.store.RestoreSession(session); err != nil {
		return Session{}, err
	}
	if err := s.persistCreatedEvent(session); err != nil {
		log.Error().Err(err).Str("session_id", session.ID).Msg("failed to record session event")
	}
	return session, nil
}

func (s *Server) listEvents(sessionDBID uint, page, perPage int) ([]db.Event, int64, error) {
	var total int64
	if err := s.db.Model(&db.Event{}).Where("session_id = ?", sessionDBID).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var events []db.Event
	err := s.db.Where("session_id = ?", sessionDBID).
		Order("created_at asc, id asc").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&events).Error
	if err != nil {
		return nil, 0, err
	}
	return events, total, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

func eventTime(event db.Event) string {
	return event.CreatedAt.UTC().Format(time.RFC3339)
}
