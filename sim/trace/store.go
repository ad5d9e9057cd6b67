package trace

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Store persists traces in a SQLite database. Each saved trace is one run.
type Store struct {
	*sql.DB
}

// OpenStore opens (and if needed creates) the trace database at path.
// ":memory:" gives a private in-memory database.
func OpenStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening trace db: %w", err)
	}
	if path == ":memory:" {
		// an in-memory database exists per connection
		db.SetMaxOpenConns(1)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS runs (
			run_id            TEXT PRIMARY KEY,
			level             TEXT,
			total_decisions   BIGINT,
			confirmed         BIGINT,
			rejected          BIGINT,
			mean_delay        DOUBLE,
			stddev_delay      DOUBLE,
			max_delay         DOUBLE,
			timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS decisions (
			run_id            TEXT,
			seq               BIGINT,
			time              DOUBLE,
			vin               BIGINT,
			request_id        BIGINT,
			confirmed         BOOLEAN,
			reason            TEXT,
			arrival_lane      BIGINT,
			departure_lane    BIGINT,
			arrival_time      DOUBLE,
			delay             DOUBLE,
			PRIMARY KEY(run_id, seq),
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
		CREATE TABLE IF NOT EXISTS zone_samples (
			run_id            TEXT,
			time              DOUBLE,
			lane_id           BIGINT,
			current_size      DOUBLE,
			capacity          DOUBLE,
			FOREIGN KEY(run_id) REFERENCES runs(run_id)
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating trace schema: %w", err)
	}
	return &Store{db}, nil
}

// Save writes a trace and its summary in one transaction.
func (s *Store) Save(ctx context.Context, st *SimulationTrace) error {
	summary := Summarize(st)
	tx, err := s.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("beginning trace tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, level, total_decisions, confirmed, rejected, mean_delay, stddev_delay, max_delay) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		st.RunID.String(), string(st.Config.Level), summary.TotalDecisions, summary.ConfirmedCount,
		summary.RejectedCount, summary.MeanDelay, summary.StdDevDelay, summary.MaxDelay,
	); err != nil {
		return fmt.Errorf("inserting run %s: %w", st.RunID, err)
	}

	decisionStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO decisions (run_id, seq, time, vin, request_id, confirmed, reason, arrival_lane, departure_lane, arrival_time, delay) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing decision insert: %w", err)
	}
	defer decisionStmt.Close()
	for i, d := range st.Decisions {
		if _, err := decisionStmt.ExecContext(ctx, st.RunID.String(), i, d.Time, d.VIN, d.RequestID, d.Confirmed,
			d.Reason, d.ArrivalLaneID, d.DepartureLaneID, d.ArrivalTime, d.Delay); err != nil {
			return fmt.Errorf("inserting decision %d: %w", i, err)
		}
	}

	zoneStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO zone_samples (run_id, time, lane_id, current_size, capacity) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing zone insert: %w", err)
	}
	defer zoneStmt.Close()
	for _, z := range st.Zones {
		if _, err := zoneStmt.ExecContext(ctx, st.RunID.String(), z.Time, z.LaneID, z.CurrentSize, z.Capacity); err != nil {
			return fmt.Errorf("inserting zone sample: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing trace: %w", err)
	}
	return nil
}

// Decisions loads the decisions of a run in recording order.
func (s *Store) Decisions(ctx context.Context, runID uuid.UUID) ([]DecisionRecord, error) {
	rows, err := s.QueryContext(ctx,
		`SELECT time, vin, request_id, confirmed, reason, arrival_lane, departure_lane, arrival_time, delay FROM decisions WHERE run_id = ? ORDER BY seq`,
		runID.String())
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		var d DecisionRecord
		if err := rows.Scan(&d.Time, &d.VIN, &d.RequestID, &d.Confirmed, &d.Reason,
			&d.ArrivalLaneID, &d.DepartureLaneID, &d.ArrivalTime, &d.Delay); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Runs returns the ids of all stored runs.
func (s *Store) Runs(ctx context.Context) ([]uuid.UUID, error) {
	rows, err := s.QueryContext(ctx, `SELECT run_id FROM runs ORDER BY timestamp, run_id`)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var out []uuid.UUID
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parsing run id %q: %w", raw, err)
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
