package entities

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// MySQLStore is the relational implementation of Store, built the way
// the teacher's repositories package talks to MySQL: raw SQL through
// database/sql, no ORM, ? placeholders, explicit context everywhere.
//
// The full per-entity-kind normalized schema (one table per §6.3, all
// FKs cascading) is an external-collaborator concern the spec places
// out of scope; what the engine itself needs is a uniform place to
// store and retrieve sixteen heterogeneous entity shapes by (type,
// uuid) and by tournament. MySQLStore keeps one envelope table and
// marshals each entity body to JSON, generalizing the same pattern the
// teacher already uses for its own complex columns (FormatConfig,
// CustomFields, OperationalHours) to the whole row. A production
// deployment overlays the §6.3 normalized tables via database
// migrations external to this package; MySQLStore's contract is
// unaffected either way.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

const createEntityRowsTable = `
CREATE TABLE IF NOT EXISTS entity_rows (
	entity_type   VARCHAR(64)  NOT NULL,
	uuid          CHAR(36)     NOT NULL,
	tournament_id CHAR(36)     NULL,
	body          JSON         NOT NULL,
	is_tombstone  BOOLEAN      NOT NULL DEFAULT FALSE,
	created_at    DATETIME(6)  NOT NULL,
	updated_at    DATETIME(6)  NOT NULL,
	PRIMARY KEY (entity_type, uuid),
	KEY idx_entity_rows_tournament (tournament_id, entity_type)
)`

// EnsureSchema creates the envelope table if it does not already
// exist. Called once at startup, mirroring the teacher's
// database.Initialize health-check-then-proceed style.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, createEntityRowsTable)
	return err
}

// txScopedStore overrides the point lookups ResolveTournamentID walks
// through so they observe rows written earlier in the same open
// transaction; everything else delegates to the plain store.
type txScopedStore struct {
	*MySQLStore
	tx *sql.Tx
}

func (s *txScopedStore) Get(ctx context.Context, t EntityType, id uuid.UUID) (Entity, error) {
	var body []byte
	err := s.tx.QueryRowContext(ctx,
		`SELECT body FROM entity_rows WHERE entity_type = ? AND uuid = ? AND is_tombstone = FALSE`,
		string(t), id.String(),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, NotFound("%s %s not found", t, id)
	}
	if err != nil {
		return nil, Transient(err, "get %s %s", t, id)
	}
	return decodeEntity(t, body)
}

func (s *txScopedStore) FindDebateByBallotID(ctx context.Context, ballotID uuid.UUID) (*TournamentDebate, bool, error) {
	var body []byte
	err := s.tx.QueryRowContext(ctx,
		`SELECT body FROM entity_rows
		 WHERE entity_type = ? AND is_tombstone = FALSE
		   AND JSON_UNQUOTE(JSON_EXTRACT(body, '$.ballot_id')) = ?
		 LIMIT 1`,
		string(TypeDebate), ballotID.String(),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Transient(err, "find debate by ballot %s", ballotID)
	}
	var d TournamentDebate
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, false, IntegrityViolation("decode debate: %v", err)
	}
	return &d, true, nil
}

// sqlTx adapts *sql.Tx to the Tx interface.
type sqlTx struct{ tx *sql.Tx }

func (t *sqlTx) Commit() error   { return t.tx.Commit() }
func (t *sqlTx) Rollback() error { return t.tx.Rollback() }
func (t *sqlTx) SQL() *sql.Tx    { return t.tx }

func (s *MySQLStore) BeginTx(ctx context.Context) (Tx, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
	if err != nil {
		return nil, Transient(err, "begin transaction")
	}
	return &sqlTx{tx: tx}, nil
}

// newEmpty returns a zero-valued pointer to the concrete type for t,
// used as an unmarshal target. This is the "closed set of Entity
// variants with shared save dispatch" the design notes call for.
func newEmpty(t EntityType) (Entity, error) {
	switch t {
	case TypeTournament:
		return &Tournament{}, nil
	case TypeInstitution:
		return &Institution{}, nil
	case TypeTeam:
		return &Team{}, nil
	case TypeParticipant:
		return &Participant{}, nil
	case TypeParticipantClash:
		return &ParticipantClash{}, nil
	case TypeRound:
		return &TournamentRound{}, nil
	case TypeDebate:
		return &TournamentDebate{}, nil
	case TypeBallot:
		return &Ballot{}, nil
	case TypeVenue:
		return &Venue{}, nil
	case TypeBreak:
		return &TournamentBreak{}, nil
	case TypePlanNode:
		return &TournamentPlanNode{}, nil
	case TypePlanEdge:
		return &TournamentPlanEdge{}, nil
	case TypeFeedbackForm:
		return &FeedbackForm{}, nil
	case TypeFeedbackQuestion:
		return &FeedbackQuestion{}, nil
	case TypeFeedbackResponse:
		return &FeedbackResponse{}, nil
	case TypeBallotSpeechTiming:
		return &BallotSpeechTiming{}, nil
	default:
		return nil, IntegrityViolation("unknown entity type %q", t)
	}
}

func (s *MySQLStore) Get(ctx context.Context, t EntityType, id uuid.UUID) (Entity, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM entity_rows WHERE entity_type = ? AND uuid = ? AND is_tombstone = FALSE`,
		string(t), id.String(),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, NotFound("%s %s not found", t, id)
	}
	if err != nil {
		return nil, Transient(err, "get %s %s", t, id)
	}
	return decodeEntity(t, body)
}

func (s *MySQLStore) GetMany(ctx context.Context, t EntityType, ids []uuid.UUID) ([]Entity, error) {
	got, err := s.TryGetMany(ctx, t, ids)
	if err != nil {
		return nil, err
	}
	for i, e := range got {
		if e == nil {
			return nil, NotFound("%s %s not found", t, ids[i])
		}
	}
	return got, nil
}

func (s *MySQLStore) TryGetMany(ctx context.Context, t EntityType, ids []uuid.UUID) ([]Entity, error) {
	byID := make(map[uuid.UUID][]byte, len(ids))
	if len(ids) > 0 {
		placeholders := make([]interface{}, 0, len(ids)+1)
		placeholders = append(placeholders, string(t))
		q := `SELECT uuid, body FROM entity_rows WHERE entity_type = ? AND is_tombstone = FALSE AND uuid IN (`
		for i, id := range ids {
			if i > 0 {
				q += ","
			}
			q += "?"
			placeholders = append(placeholders, id.String())
		}
		q += ")"
		rows, err := s.db.QueryContext(ctx, q, placeholders...)
		if err != nil {
			return nil, Transient(err, "get many %s", t)
		}
		defer rows.Close()
		for rows.Next() {
			var idStr string
			var body []byte
			if err := rows.Scan(&idStr, &body); err != nil {
				return nil, Transient(err, "scan %s row", t)
			}
			parsed, err := uuid.Parse(idStr)
			if err != nil {
				return nil, Transient(err, "parse uuid %s", idStr)
			}
			byID[parsed] = body
		}
	}
	result := make([]Entity, len(ids))
	for i, id := range ids {
		body, ok := byID[id]
		if !ok {
			continue
		}
		e, err := decodeEntity(t, body)
		if err != nil {
			return nil, err
		}
		result[i] = e
	}
	return result, nil
}

func (s *MySQLStore) GetAllInTournament(ctx context.Context, t EntityType, tournamentID uuid.UUID) ([]Entity, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT body FROM entity_rows WHERE entity_type = ? AND tournament_id = ? AND is_tombstone = FALSE`,
		string(t), tournamentID.String(),
	)
	if err != nil {
		return nil, Transient(err, "get all %s in tournament %s", t, tournamentID)
	}
	defer rows.Close()
	var out []Entity
	for rows.Next() {
		var body []byte
		if err := rows.Scan(&body); err != nil {
			return nil, Transient(err, "scan %s row", t)
		}
		e, err := decodeEntity(t, body)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (s *MySQLStore) Save(ctx context.Context, e Entity, guaranteeInsert bool) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := s.SaveTx(ctx, tx, e, guaranteeInsert); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *MySQLStore) SaveTx(ctx context.Context, tx Tx, e Entity, guaranteeInsert bool) error {
	// Resolve through the open transaction so an entity whose parent was
	// written earlier in the same batch still scopes correctly.
	tournamentID, err := e.ResolveTournamentID(ctx, &txScopedStore{MySQLStore: s, tx: tx.SQL()})
	if err != nil {
		return err
	}
	body, err := json.Marshal(e)
	if err != nil {
		return IntegrityViolation("marshal %s %s: %v", e.EntityType(), e.EntityID(), err)
	}

	var tidArg interface{}
	if tournamentID != uuid.Nil {
		tidArg = tournamentID.String()
	}

	if guaranteeInsert {
		_, err = tx.SQL().ExecContext(ctx,
			`INSERT INTO entity_rows (entity_type, uuid, tournament_id, body, is_tombstone, created_at, updated_at)
			 VALUES (?, ?, ?, ?, FALSE, UTC_TIMESTAMP(6), UTC_TIMESTAMP(6))`,
			string(e.EntityType()), e.EntityID().String(), tidArg, body,
		)
		if err != nil {
			return IntegrityViolation("insert %s %s: %v", e.EntityType(), e.EntityID(), err)
		}
		return nil
	}

	// Diff against the current row first: an identical body is left
	// untouched so untimestamped readers and replication see no write.
	var currentBody []byte
	err = tx.SQL().QueryRowContext(ctx,
		`SELECT body FROM entity_rows WHERE entity_type = ? AND uuid = ? AND is_tombstone = FALSE`,
		string(e.EntityType()), e.EntityID().String(),
	).Scan(&currentBody)
	if err == nil && bytes.Equal(currentBody, body) {
		return nil
	}
	if err != nil && err != sql.ErrNoRows {
		return Transient(err, "diff %s %s", e.EntityType(), e.EntityID())
	}

	res, err := tx.SQL().ExecContext(ctx,
		`UPDATE entity_rows SET tournament_id = ?, body = ?, is_tombstone = FALSE, updated_at = UTC_TIMESTAMP(6)
		 WHERE entity_type = ? AND uuid = ?`,
		tidArg, body, string(e.EntityType()), e.EntityID().String(),
	)
	if err != nil {
		return Transient(err, "upsert %s %s", e.EntityType(), e.EntityID())
	}
	if n, _ := res.RowsAffected(); n == 0 {
		_, err = tx.SQL().ExecContext(ctx,
			`INSERT INTO entity_rows (entity_type, uuid, tournament_id, body, is_tombstone, created_at, updated_at)
			 VALUES (?, ?, ?, ?, FALSE, UTC_TIMESTAMP(6), UTC_TIMESTAMP(6))`,
			string(e.EntityType()), e.EntityID().String(), tidArg, body,
		)
		if err != nil {
			return IntegrityViolation("insert %s %s: %v", e.EntityType(), e.EntityID(), err)
		}
	}
	return nil
}

func (s *MySQLStore) DeleteMany(ctx context.Context, t EntityType, ids []uuid.UUID) error {
	tx, err := s.BeginTx(ctx)
	if err != nil {
		return err
	}
	if err := s.DeleteManyTx(ctx, tx, t, ids); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (s *MySQLStore) DeleteManyTx(ctx context.Context, tx Tx, t EntityType, ids []uuid.UUID) error {
	for _, id := range ids {
		_, err := tx.SQL().ExecContext(ctx,
			`UPDATE entity_rows SET is_tombstone = TRUE, updated_at = UTC_TIMESTAMP(6) WHERE entity_type = ? AND uuid = ?`,
			string(t), id.String(),
		)
		if err != nil {
			return Transient(err, "tombstone %s %s", t, id)
		}
	}
	return nil
}

func (s *MySQLStore) FindDebateByBallotID(ctx context.Context, ballotID uuid.UUID) (*TournamentDebate, bool, error) {
	var body []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT body FROM entity_rows
		 WHERE entity_type = ? AND is_tombstone = FALSE
		   AND JSON_UNQUOTE(JSON_EXTRACT(body, '$.ballot_id')) = ?
		 LIMIT 1`,
		string(TypeDebate), ballotID.String(),
	).Scan(&body)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, Transient(err, "find debate by ballot %s", ballotID)
	}
	var d TournamentDebate
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, false, IntegrityViolation("decode debate: %v", err)
	}
	return &d, true, nil
}

func decodeEntity(t EntityType, body []byte) (Entity, error) {
	e, err := newEmpty(t)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(body, e); err != nil {
		return nil, IntegrityViolation("decode %s: %v", t, fmt.Errorf("%w", err))
	}
	return e, nil
}

// DecodeEntity decodes a JSON entity body into its concrete Entity
// type, for callers outside this package that receive one of the
// sixteen entity shapes over the wire (the sync protocol's FatLog,
// chiefly) and need the same type-directed construction MySQLStore
// uses internally.
func DecodeEntity(t EntityType, body []byte) (Entity, error) {
	return decodeEntity(t, body)
}
