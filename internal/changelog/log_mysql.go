package changelog

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"tournament-engine/internal/entities"
)

// MySQLLogStore is the relational implementation of LogStore, one row
// per (tournament, batch-version, entity) the same way the teacher
// writes its other append-style tables.
type MySQLLogStore struct {
	db *sql.DB
}

func NewMySQLLogStore(db *sql.DB) *MySQLLogStore {
	return &MySQLLogStore{db: db}
}

const createTournamentLogTable = `
CREATE TABLE IF NOT EXISTS tournament_log (
	id            BIGINT AUTO_INCREMENT PRIMARY KEY,
	tournament_id CHAR(36)    NOT NULL,
	version       CHAR(36)    NOT NULL,
	entity_type   VARCHAR(64) NOT NULL,
	entity_id     CHAR(36)    NOT NULL,
	ts            DATETIME(6) NOT NULL,
	KEY idx_tournament_log_tournament (tournament_id, id)
)`

func (s *MySQLLogStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createTournamentLogTable)
	return err
}

func (s *MySQLLogStore) AppendLogTx(ctx context.Context, tx entities.Tx, tournamentID uuid.UUID, entries []LogEntry) error {
	for _, e := range entries {
		_, err := tx.SQL().ExecContext(ctx,
			`INSERT INTO tournament_log (tournament_id, version, entity_type, entity_id, ts) VALUES (?, ?, ?, ?, ?)`,
			tournamentID.String(), e.Version.String(), string(e.EntityType), e.EntityID.String(), e.Timestamp,
		)
		if err != nil {
			return entities.Transient(err, "append log entry for tournament %s", tournamentID)
		}
	}
	return nil
}

func (s *MySQLLogStore) LogSince(ctx context.Context, tournamentID uuid.UUID, since *uuid.UUID) ([]LogEntry, error) {
	var rows *sql.Rows
	var err error
	if since == nil {
		rows, err = s.db.QueryContext(ctx,
			`SELECT version, entity_type, entity_id, ts FROM tournament_log
			 WHERE tournament_id = ? ORDER BY id ASC`,
			tournamentID.String(),
		)
	} else {
		var cutoff int64
		err = s.db.QueryRowContext(ctx,
			`SELECT MAX(id) FROM tournament_log WHERE tournament_id = ? AND version = ?`,
			tournamentID.String(), since.String(),
		).Scan(&cutoff)
		if err == sql.ErrNoRows || cutoff == 0 {
			return nil, entities.NotFound("version %s not found in tournament %s log", since, tournamentID)
		}
		if err != nil {
			return nil, entities.Transient(err, "resolve log cutoff for %s", since)
		}
		rows, err = s.db.QueryContext(ctx,
			`SELECT version, entity_type, entity_id, ts FROM tournament_log
			 WHERE tournament_id = ? AND id > ? ORDER BY id ASC`,
			tournamentID.String(), cutoff,
		)
	}
	if err != nil {
		return nil, entities.Transient(err, "query log since %v for tournament %s", since, tournamentID)
	}
	defer rows.Close()

	var out []LogEntry
	for rows.Next() {
		var versionStr, idStr string
		var entry LogEntry
		if err := rows.Scan(&versionStr, &entry.EntityType, &idStr, &entry.Timestamp); err != nil {
			return nil, entities.Transient(err, "scan log row")
		}
		entry.Version, err = uuid.Parse(versionStr)
		if err != nil {
			return nil, entities.Transient(err, "parse log version")
		}
		entry.EntityID, err = uuid.Parse(idStr)
		if err != nil {
			return nil, entities.Transient(err, "parse log entity id")
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *MySQLLogStore) LogTip(ctx context.Context, tournamentID uuid.UUID) (*uuid.UUID, error) {
	var versionStr string
	err := s.db.QueryRowContext(ctx,
		`SELECT version FROM tournament_log WHERE tournament_id = ? ORDER BY id DESC LIMIT 1`,
		tournamentID.String(),
	).Scan(&versionStr)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, entities.Transient(err, "log tip for tournament %s", tournamentID)
	}
	v, err := uuid.Parse(versionStr)
	if err != nil {
		return nil, entities.Transient(err, "parse log tip version")
	}
	return &v, nil
}
