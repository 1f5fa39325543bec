package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"

	"tracklive/internal/track"
)

// schema is applied on startup; every statement is idempotent.
const schema = `
CREATE TABLE IF NOT EXISTS order_states (
    order_key    TEXT PRIMARY KEY,
    status       TEXT NOT NULL,
    driver_name  TEXT,
    driver_phone TEXT,
    lat          DOUBLE PRECISION,
    lng          DOUBLE PRECISION,
    eta_minutes  INT,
    updated_at   TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS order_timeline (
    id        BIGSERIAL PRIMARY KEY,
    order_key TEXT NOT NULL,
    label     TEXT NOT NULL,
    ts        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS order_timeline_key_idx ON order_timeline (order_key, id);
`

const selectState = `SELECT order_key, status, driver_name, driver_phone, lat, lng, eta_minutes, updated_at
FROM order_states WHERE order_key = $1`

var _ Store = (*Postgres)(nil)

// Postgres is the durable Store backend. Merge semantics are shared with the
// memory store through track.OrderState.Apply; the row lock stands in for the
// memory store's mutex.
type Postgres struct {
	db    DB
	clock func() time.Time
}

// NewPostgres wraps db into a Store. clock stamps UpdatedAt and timeline
// entries; pass nil for time.Now.
func NewPostgres(db DB, clock func() time.Time) *Postgres {
	if clock == nil {
		clock = time.Now
	}
	return &Postgres{db: db, clock: clock}
}

// EnsureSchema creates the tables the store needs.
func (p *Postgres) EnsureSchema(ctx context.Context) error {
	if _, err := p.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply order store schema: %w", err)
	}
	return nil
}

type stateRow struct {
	OrderKey    string    `db:"order_key"`
	Status      string    `db:"status"`
	DriverName  *string   `db:"driver_name"`
	DriverPhone *string   `db:"driver_phone"`
	Lat         *float64  `db:"lat"`
	Lng         *float64  `db:"lng"`
	ETAMinutes  *int      `db:"eta_minutes"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type timelineRow struct {
	Label string    `db:"label"`
	TS    time.Time `db:"ts"`
}

func (p *Postgres) Get(ctx context.Context, key string) (track.OrderState, error) {
	var row stateRow
	err := p.db.Get(ctx, &row, selectState, key)
	if errors.Is(err, pgx.ErrNoRows) {
		return track.Pending(), nil
	}
	if err != nil {
		return track.OrderState{}, fmt.Errorf("get order state: %w", err)
	}

	timeline, err := p.timeline(ctx, p.db, key)
	if err != nil {
		return track.OrderState{}, err
	}
	return rowToState(row, timeline), nil
}

func (p *Postgres) Merge(ctx context.Context, key string, patch track.Patch, label string) (track.OrderState, error) {
	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return track.OrderState{}, fmt.Errorf("begin merge: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	cur := track.Pending()
	var row stateRow
	err = tx.Get(ctx, &row, selectState+` FOR UPDATE`, key)
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		// first event for this key, seed from the pending view
	case err != nil:
		return track.OrderState{}, fmt.Errorf("lock order state: %w", err)
	default:
		timeline, terr := p.timeline(ctx, tx, key)
		if terr != nil {
			return track.OrderState{}, terr
		}
		cur = rowToState(row, timeline)
	}

	next := cur.Apply(patch, label, p.clock())
	_, err = tx.Exec(ctx, `
        INSERT INTO order_states (order_key, status, driver_name, driver_phone, lat, lng, eta_minutes, updated_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        ON CONFLICT (order_key) DO UPDATE SET
            status = EXCLUDED.status,
            driver_name = EXCLUDED.driver_name,
            driver_phone = EXCLUDED.driver_phone,
            lat = EXCLUDED.lat,
            lng = EXCLUDED.lng,
            eta_minutes = EXCLUDED.eta_minutes,
            updated_at = EXCLUDED.updated_at
    `, key, string(next.Status), next.DriverName, next.DriverPhone, next.Lat, next.Lng, next.ETAMinutes, *next.UpdatedAt)
	if err != nil {
		return track.OrderState{}, fmt.Errorf("upsert order state: %w", err)
	}

	if label != "" {
		_, err = tx.Exec(ctx, `INSERT INTO order_timeline (order_key, label, ts) VALUES ($1, $2, $3)`,
			key, label, *next.UpdatedAt)
		if err != nil {
			return track.OrderState{}, fmt.Errorf("append timeline: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return track.OrderState{}, fmt.Errorf("commit merge: %w", err)
	}
	return next, nil
}

func (p *Postgres) Sweep(ctx context.Context, olderThan time.Time, keep func(string) bool) ([]string, error) {
	var stale []string
	err := p.db.Select(ctx, &stale, `SELECT order_key FROM order_states WHERE updated_at < $1`, olderThan)
	if err != nil {
		return nil, fmt.Errorf("list stale orders: %w", err)
	}

	var candidates []string
	for _, key := range stale {
		if keep != nil && keep(key) {
			continue
		}
		candidates = append(candidates, key)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	tx, err := p.db.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin sweep: %w", err)
	}
	defer func() {
		_ = tx.Rollback(context.Background())
	}()

	// A candidate may have been merged since the listing above; the
	// updated_at recheck limits the delete to rows that are still stale.
	var removed []string
	err = tx.Select(ctx, &removed,
		`DELETE FROM order_states WHERE order_key = ANY($1) AND updated_at < $2 RETURNING order_key`,
		candidates, olderThan)
	if err != nil {
		return nil, fmt.Errorf("sweep order states: %w", err)
	}
	if len(removed) == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx, `DELETE FROM order_timeline WHERE order_key = ANY($1)`, removed); err != nil {
		return nil, fmt.Errorf("sweep timeline: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit sweep: %w", err)
	}
	return removed, nil
}

// queryer lets timeline run on the pool or inside a transaction.
type queryer interface {
	Select(ctx context.Context, dest any, query string, args ...any) error
}

func (p *Postgres) timeline(ctx context.Context, q queryer, key string) ([]track.TimelineEntry, error) {
	var rows []timelineRow
	err := q.Select(ctx, &rows, `SELECT label, ts FROM order_timeline WHERE order_key = $1 ORDER BY id`, key)
	if err != nil {
		return nil, fmt.Errorf("load timeline: %w", err)
	}
	timeline := make([]track.TimelineEntry, 0, len(rows))
	for _, r := range rows {
		timeline = append(timeline, track.TimelineEntry{TS: r.TS, Label: r.Label})
	}
	return timeline, nil
}

func rowToState(r stateRow, timeline []track.TimelineEntry) track.OrderState {
	if timeline == nil {
		timeline = []track.TimelineEntry{}
	}
	ts := r.UpdatedAt
	return track.OrderState{
		Status:      track.Status(r.Status),
		DriverName:  r.DriverName,
		DriverPhone: r.DriverPhone,
		Lat:         r.Lat,
		Lng:         r.Lng,
		ETAMinutes:  r.ETAMinutes,
		Timeline:    timeline,
		UpdatedAt:   &ts,
	}
}
