package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/giulioungaretti/PodPilot-sub000/internal/engine"
	"github.com/giulioungaretti/PodPilot-sub000/internal/infrastructure/database"
	"github.com/giulioungaretti/PodPilot-sub000/internal/proximity"
)

// Query limits for Recent.
const (
	defaultLimit = 50
	maxLimit     = 1000
)

// schema is applied on startup. Additive changes only.
const schema = `
CREATE TABLE IF NOT EXISTS device_state_history (
	id             INTEGER PRIMARY KEY AUTOINCREMENT,
	recorded_at    TEXT    NOT NULL,
	reason         TEXT    NOT NULL,
	product_id     INTEGER NOT NULL,
	model          TEXT    NOT NULL,
	name           TEXT    NOT NULL,
	paired         INTEGER NOT NULL,
	connected      INTEGER NOT NULL,
	audio_default  INTEGER NOT NULL,
	broadcast_seen INTEGER NOT NULL,
	rssi           INTEGER NOT NULL,
	left_battery   INTEGER,
	right_battery  INTEGER,
	case_battery   INTEGER,
	left_charging  INTEGER NOT NULL,
	right_charging INTEGER NOT NULL,
	case_charging  INTEGER NOT NULL,
	left_in_ear    INTEGER NOT NULL,
	right_in_ear   INTEGER NOT NULL,
	both_in_case   INTEGER NOT NULL,
	lid_open       INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_history_product_time
	ON device_state_history (product_id, recorded_at DESC);
`

// Logger is the minimal logging interface used by the recorder.
type Logger interface {
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Warn(string, ...any) {}

// Entry is one recorded state change, read back from the database.
type Entry struct {
	ID         int64               `json:"id"`
	RecordedAt time.Time           `json:"recorded_at"`
	Reason     engine.ChangeReason `json:"reason"`
	State      engine.DeviceState  `json:"state"`
}

// Recorder appends engine events to SQLite and serves history queries.
type Recorder struct {
	db     *database.DB
	logger Logger

	// now is replaceable in tests.
	now func() time.Time
}

// NewRecorder prepares the schema and returns a recorder ready to attach.
func NewRecorder(ctx context.Context, db *database.DB) (*Recorder, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("preparing history schema: %w", err)
	}
	return &Recorder{
		db:     db,
		logger: noopLogger{},
		now:    time.Now,
	}, nil
}

// SetLogger sets the logger for write failures.
func (r *Recorder) SetLogger(logger Logger) {
	if logger != nil {
		r.logger = logger
	}
}

// Attach subscribes the recorder to the engine's event stream.
// Call before engine.Start so no events are missed.
func (r *Recorder) Attach(eng *engine.Engine) {
	eng.Subscribe(func(ev engine.Event) {
		if err := r.Record(context.Background(), ev); err != nil {
			r.logger.Warn("recording state change", "reason", ev.Reason, "error", err)
		}
	})
}

// Record appends one event to the history table.
func (r *Recorder) Record(ctx context.Context, ev engine.Event) error {
	st := ev.State
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO device_state_history (
			recorded_at, reason, product_id, model, name,
			paired, connected, audio_default, broadcast_seen, rssi,
			left_battery, right_battery, case_battery,
			left_charging, right_charging, case_charging,
			left_in_ear, right_in_ear, both_in_case, lid_open
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.now().UTC().Format(time.RFC3339Nano),
		string(ev.Reason),
		int64(st.ProductID),
		st.Model,
		st.Name,
		st.Paired,
		st.Connected,
		st.AudioDefault,
		st.BroadcastSeen,
		st.RSSI,
		nullableInt(st.LeftBattery),
		nullableInt(st.RightBattery),
		nullableInt(st.CaseBattery),
		st.LeftCharging,
		st.RightCharging,
		st.CaseCharging,
		st.LeftInEar,
		st.RightInEar,
		st.BothInCase,
		st.LidOpen,
	)
	if err != nil {
		return fmt.Errorf("inserting history row: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for one product ID, newest first.
// A limit of zero or below uses the default; excessive limits are clamped.
func (r *Recorder) Recent(ctx context.Context, id proximity.ProductID, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}

	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT id, recorded_at, reason, product_id, model, name,
			paired, connected, audio_default, broadcast_seen, rssi,
			left_battery, right_battery, case_battery,
			left_charging, right_charging, case_charging,
			left_in_ear, right_in_ear, both_in_case, lid_open
		FROM device_state_history
		WHERE product_id = ?
		ORDER BY id DESC
		LIMIT ?`,
		int64(id), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading history rows: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var (
		entry      Entry
		recordedAt string
		productID  int64
		reason     string
		left       sql.NullInt64
		right      sql.NullInt64
		caseLevel  sql.NullInt64
	)
	st := &entry.State

	err := rows.Scan(
		&entry.ID, &recordedAt, &reason, &productID, &st.Model, &st.Name,
		&st.Paired, &st.Connected, &st.AudioDefault, &st.BroadcastSeen, &st.RSSI,
		&left, &right, &caseLevel,
		&st.LeftCharging, &st.RightCharging, &st.CaseCharging,
		&st.LeftInEar, &st.RightInEar, &st.BothInCase, &st.LidOpen,
	)
	if err != nil {
		return Entry{}, fmt.Errorf("scanning history row: %w", err)
	}

	entry.Reason = engine.ChangeReason(reason)
	st.ProductID = proximity.ProductID(productID)
	st.LeftBattery = fromNullable(left)
	st.RightBattery = fromNullable(right)
	st.CaseBattery = fromNullable(caseLevel)

	ts, err := time.Parse(time.RFC3339Nano, recordedAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing recorded_at %q: %w", recordedAt, err)
	}
	entry.RecordedAt = ts

	return entry, nil
}

func nullableInt(v *int) interface{} {
	if v == nil {
		return nil
	}
	return *v
}

func fromNullable(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	i := int(v.Int64)
	return &i
}
