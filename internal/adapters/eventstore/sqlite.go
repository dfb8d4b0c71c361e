package eventstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/okian/parley/internal/domain/event"
	"github.com/okian/parley/internal/domain/state"
	"github.com/okian/parley/pkg/metrics"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS events (
	interview_id    TEXT    NOT NULL,
	seq             INTEGER NOT NULL,
	event_type      TEXT    NOT NULL,
	actor_type      TEXT    NOT NULL,
	section_id      TEXT,
	client_event_id TEXT,
	created_at      TEXT    NOT NULL,
	payload_json    TEXT    NOT NULL,
	PRIMARY KEY (interview_id, seq)
);
CREATE UNIQUE INDEX IF NOT EXISTS events_client_event
	ON events(interview_id, client_event_id)
	WHERE client_event_id IS NOT NULL;
`

// Open opens the SQLite database used by the stores. Transactions
// start in immediate mode so the append path takes its write lock up
// front; a deferred read-to-write upgrade would fail fast with
// SQLITE_BUSY under concurrent appends instead of waiting on the busy
// timeout.
func Open(path string) (*sql.DB, error) {
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return db, nil
}

// SQLiteStore implements Store on SQLite. The append transaction is
// the single writer per interview: sequence allocation, section
// attribution and the insert commit atomically or not at all.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite creates the store and its schema.
func NewSQLite(db *sql.DB, opts ...SQLiteOption) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	if _, err := db.Exec(schemaSQL); err != nil {
		return nil, fmt.Errorf("create events schema: %w", err)
	}
	return s, nil
}

// SQLiteOption configures the SQLite store.
type SQLiteOption func(*SQLiteStore)

// WithClock overrides the time source, for tests.
func WithClock(now func() time.Time) SQLiteOption {
	return func(s *SQLiteStore) {
		if now != nil {
			s.now = now
		}
	}
}

// Append implements Store.
func (s *SQLiteStore) Append(ctx context.Context, req AppendRequest) (AppendResult, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveStoreLatency("append", time.Since(start).Seconds())
	}()

	if req.InterviewID == "" {
		return AppendResult{}, fmt.Errorf("%w: interview id is required", ErrBadRequest)
	}
	if !req.Type.IsValid() {
		return AppendResult{}, fmt.Errorf("%w: event type is required", ErrBadRequest)
	}
	if !req.ActorType.IsValid() {
		return AppendResult{}, fmt.Errorf("%w: actor type %q", event.ErrBadActor, req.ActorType)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return AppendResult{}, fmt.Errorf("begin append tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	// Idempotency first: a replayed client event returns the original
	// position without writing anything.
	if req.ClientEventID != "" {
		var seq int64
		var createdAt string
		err := tx.QueryRowContext(ctx,
			`SELECT seq, created_at FROM events WHERE interview_id = ? AND client_event_id = ?`,
			req.InterviewID, req.ClientEventID,
		).Scan(&seq, &createdAt)
		switch {
		case err == nil:
			ts, perr := time.Parse(time.RFC3339Nano, createdAt)
			if perr != nil {
				return AppendResult{}, fmt.Errorf("parse stored created_at: %w", perr)
			}
			metrics.RecordEventDuplicate()
			return AppendResult{Seq: seq, CreatedAt: ts, Duplicate: true}, nil
		case errors.Is(err, sql.ErrNoRows):
			// fall through to the write path
		default:
			return AppendResult{}, fmt.Errorf("idempotency lookup: %w", err)
		}
	}

	// Replay the existing history inside the transaction so the new
	// event is attributed to whatever section is current before it.
	existing, err := scanEvents(tx.QueryContext(ctx,
		`SELECT interview_id, seq, event_type, actor_type, section_id, client_event_id, created_at, payload_json
		 FROM events WHERE interview_id = ? ORDER BY seq`,
		req.InterviewID,
	))
	if err != nil {
		return AppendResult{}, err
	}
	if err := verifySequence(existing); err != nil {
		return AppendResult{}, err
	}
	st := state.Reduce(existing)

	seq := st.LastSeq + 1
	createdAt := s.now().UTC()
	payload, err := event.MarshalPayload(req.Payload)
	if err != nil {
		return AppendResult{}, err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO events(interview_id, seq, event_type, actor_type, section_id, client_event_id, created_at, payload_json)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		req.InterviewID, seq, string(req.Type), string(req.ActorType),
		nullable(st.CurrentSectionID), nullable(req.ClientEventID),
		createdAt.Format(time.RFC3339Nano), string(payload),
	)
	if err != nil {
		return AppendResult{}, fmt.Errorf("insert event: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return AppendResult{}, fmt.Errorf("commit append: %w", err)
	}
	metrics.RecordEventAppended(string(req.Type))
	return AppendResult{Seq: seq, CreatedAt: createdAt}, nil
}

// GetEventsAndState implements Store.
func (s *SQLiteStore) GetEventsAndState(ctx context.Context, interviewID string) ([]event.Event, state.State, error) {
	start := time.Now()
	defer func() {
		metrics.ObserveStoreLatency("read", time.Since(start).Seconds())
	}()

	events, err := scanEvents(s.db.QueryContext(ctx,
		`SELECT interview_id, seq, event_type, actor_type, section_id, client_event_id, created_at, payload_json
		 FROM events WHERE interview_id = ? ORDER BY seq`,
		interviewID,
	))
	if err != nil {
		return nil, state.State{}, err
	}
	if len(events) == 0 {
		return nil, state.State{}, fmt.Errorf("%w: %s", ErrNotFound, interviewID)
	}
	if err := verifySequence(events); err != nil {
		return nil, state.State{}, err
	}
	return events, state.Reduce(events), nil
}

// EventsSince implements Store.
func (s *SQLiteStore) EventsSince(ctx context.Context, interviewID string, sinceSeq int64) ([]event.Event, error) {
	return scanEvents(s.db.QueryContext(ctx,
		`SELECT interview_id, seq, event_type, actor_type, section_id, client_event_id, created_at, payload_json
		 FROM events WHERE interview_id = ? AND seq > ? ORDER BY seq`,
		interviewID, sinceSeq,
	))
}

func scanEvents(rows *sql.Rows, err error) ([]event.Event, error) {
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []event.Event
	for rows.Next() {
		var (
			evt           event.Event
			eventType     string
			actorType     string
			sectionID     sql.NullString
			clientEventID sql.NullString
			createdAt     string
			payloadJSON   string
		)
		if err := rows.Scan(&evt.InterviewID, &evt.Seq, &eventType, &actorType, &sectionID, &clientEventID, &createdAt, &payloadJSON); err != nil {
			return nil, fmt.Errorf("scan event row: %w", err)
		}
		evt.Type = event.Type(eventType)
		evt.ActorType = event.ActorType(actorType)
		evt.SectionID = sectionID.String
		evt.ClientEventID = clientEventID.String
		ts, err := time.Parse(time.RFC3339Nano, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		evt.CreatedAt = ts
		payload, err := event.UnmarshalPayload(evt.Type, []byte(payloadJSON))
		if err != nil {
			return nil, err
		}
		evt.Payload = payload
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

// verifySequence checks the gap-free-from-1 invariant. A violation is
// a corrupted log, never a recoverable condition.
func verifySequence(events []event.Event) error {
	for i, evt := range events {
		if evt.Seq != int64(i)+1 {
			return fmt.Errorf("%w: position %d holds seq %d", ErrCorruptLog, i+1, evt.Seq)
		}
	}
	return nil
}

func nullable(v string) any {
	if v == "" {
		return nil
	}
	return v
}
