package entities

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
)

// Tx is the transaction boundary every store operation runs inside.
// Concrete stores hand out a *sql.Tx-backed Tx from BeginTx; EntityGroup
// (internal/changelog) stages its writes through one Tx per attempt so
// that save_all / save_log / save_all_and_log commit atomically.
type Tx interface {
	Commit() error
	Rollback() error

	// SQL gives direct access to the underlying transaction for entity
	// codecs that need to issue their own statements (child-row diffing
	// for aggregate entities, referential-integrity checks, etc).
	SQL() *sql.Tx
}

// Store is the contract every entity type is loaded and saved through.
// MySQLStore is the concrete relational implementation; tests use
// in-memory fakes sized to the calls they exercise.
type Store interface {
	// Get loads a single entity by id, returning a *NotFound Error when
	// absent.
	Get(ctx context.Context, t EntityType, id uuid.UUID) (Entity, error)

	// GetMany loads entities by id, preserving the order of ids. Any
	// missing id is a *NotFound Error for the whole call.
	GetMany(ctx context.Context, t EntityType, ids []uuid.UUID) ([]Entity, error)

	// TryGetMany loads entities by id, preserving order; a missing id
	// yields a nil slot instead of failing the call.
	TryGetMany(ctx context.Context, t EntityType, ids []uuid.UUID) ([]Entity, error)

	// GetAllInTournament loads every entity of a kind scoped to a
	// tournament.
	GetAllInTournament(ctx context.Context, t EntityType, tournamentID uuid.UUID) ([]Entity, error)

	// Save upserts an entity. guaranteeInsert=true performs an
	// unconditional insert, failing on uuid conflict; otherwise the
	// existing row (if any) is diffed and only changed columns/child
	// rows are written, preserving child ordering and any untouched
	// joined-table metadata (e.g. adjudicator-team scores surviving a
	// speech reorder).
	Save(ctx context.Context, e Entity, guaranteeInsert bool) error

	// SaveTx is Save scoped to an already-open transaction, used by
	// EntityGroup to batch many saves atomically.
	SaveTx(ctx context.Context, tx Tx, e Entity, guaranteeInsert bool) error

	// DeleteMany tombstones a set of entities of one kind.
	DeleteMany(ctx context.Context, t EntityType, ids []uuid.UUID) error

	// DeleteManyTx is DeleteMany scoped to an open transaction.
	DeleteManyTx(ctx context.Context, tx Tx, t EntityType, ids []uuid.UUID) error

	// BeginTx opens a new serializable transaction. Every store op used
	// by a single reconciliation or EntityGroup save runs inside one Tx.
	BeginTx(ctx context.Context) (Tx, error)

	// FindDebateByBallotID resolves the reverse edge from a ballot to
	// the debate that references it, used by Ballot.ResolveTournamentID
	// since a Ballot may also exist unattached as a template. ok=false
	// when no debate references this ballot.
	FindDebateByBallotID(ctx context.Context, ballotID uuid.UUID) (debate *TournamentDebate, ok bool, err error)
}
