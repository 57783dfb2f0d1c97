package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nvandessel/sense/internal/metric"
	"github.com/nvandessel/sense/internal/models"
)

// DBFile is the database file name inside the output directory.
const DBFile = "sense.db"

// SQLiteStore keeps records in <dir>/sense.db. Headline and per-judge
// scores are indexed in columns next to the JSON payload.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore opens or creates the database in dir.
func NewSQLiteStore(dir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	dbPath := filepath.Join(dir, DBFile)

	db, err := sql.Open("sqlite", dbPath+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1) // single writer

	if err := InitSchema(context.Background(), db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string { return s.dbPath }

// Get implements RecordStore.
func (s *SQLiteStore) Get(ctx context.Context, id models.ScenarioID) (*models.ScoreRecord, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM records WHERE scenario_id = ?`, id.String()).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query record %s: %w", id, err)
	}
	return decodePayload(payload)
}

// Put implements RecordStore.
func (s *SQLiteStore) Put(ctx context.Context, rec *models.ScoreRecord) error {
	if rec.ScenarioID == "" {
		return fmt.Errorf("record has no scenario id")
	}
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record %s: %w", rec.ScenarioID, err)
	}
	score := metric.ScoreOf(rec)

	var judgeAvg, judgeMajority *float64
	var judgeNames []string
	if gm := rec.GoalMetrics; gm != nil {
		judgeAvg, judgeMajority, judgeNames = gm.JudgeAvg, gm.JudgeMajority, gm.JudgeNames
	}
	createdAt := rec.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records WHERE scenario_id = ?`, rec.ScenarioID.String()); err != nil {
		return fmt.Errorf("failed to replace record %s: %w", rec.ScenarioID, err)
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO records (scenario_id, template_id, run_id, created_at,
			goal_self, goal_others, judge_avg, judge_majority, info_avg, payload)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ScenarioID.String(), rec.TemplateID, rec.RunID, createdAt.UTC().Format(time.RFC3339Nano),
		score.Self, score.Others, judgeAvg, judgeMajority, score.Info, string(payload),
	); err != nil {
		return fmt.Errorf("failed to insert record %s: %w", rec.ScenarioID, err)
	}

	for pos, judge := range judgeNames {
		v, ok := score.Judges[judge]
		if !ok {
			continue
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO judge_scores (scenario_id, judge, position, score) VALUES (?, ?, ?, ?)`,
			rec.ScenarioID.String(), judge, pos, v,
		); err != nil {
			return fmt.Errorf("failed to insert judge score %s/%s: %w", rec.ScenarioID, judge, err)
		}
	}
	return tx.Commit()
}

// Exists implements RecordStore.
func (s *SQLiteStore) Exists(ctx context.Context, id models.ScenarioID) (bool, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM records WHERE scenario_id = ?`, id.String()).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to query record %s: %w", id, err)
	}
	return n > 0, nil
}

// List implements RecordStore.
func (s *SQLiteStore) List(ctx context.Context) ([]*models.ScoreRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT payload FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var recs []*models.ScoreRecord
	for rows.Next() {
		var payload string
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		rec, err := decodePayload(payload)
		if err != nil {
			return nil, err
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortRecords(recs)
	return recs, nil
}

// Scores reads headline scores from the indexed columns without decoding
// payloads.
func (s *SQLiteStore) Scores(ctx context.Context) ([]metric.ScenarioScore, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT scenario_id, template_id, goal_self, goal_others, info_avg FROM records`)
	if err != nil {
		return nil, fmt.Errorf("failed to query scores: %w", err)
	}
	defer rows.Close()

	var scores []metric.ScenarioScore
	index := make(map[string]int)
	for rows.Next() {
		var (
			id           string
			template     sql.NullString
			self, others sql.NullFloat64
			info         sql.NullFloat64
		)
		if err := rows.Scan(&id, &template, &self, &others, &info); err != nil {
			return nil, fmt.Errorf("failed to scan score: %w", err)
		}
		index[id] = len(scores)
		scores = append(scores, metric.ScenarioScore{
			ScenarioID: id,
			TemplateID: template.String,
			Self:       nullable(self),
			Others:     nullable(others),
			Info:       nullable(info),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	judgeRows, err := s.db.QueryContext(ctx, `SELECT scenario_id, judge, score FROM judge_scores ORDER BY scenario_id, position`)
	if err != nil {
		return nil, fmt.Errorf("failed to query judge scores: %w", err)
	}
	defer judgeRows.Close()
	for judgeRows.Next() {
		var id, judge string
		var v float64
		if err := judgeRows.Scan(&id, &judge, &v); err != nil {
			return nil, fmt.Errorf("failed to scan judge score: %w", err)
		}
		i, ok := index[id]
		if !ok {
			continue
		}
		if scores[i].Judges == nil {
			scores[i].Judges = make(map[string]float64)
		}
		scores[i].Judges[judge] = v
	}
	if err := judgeRows.Err(); err != nil {
		return nil, err
	}

	sortScores(scores)
	return scores, nil
}

// Close implements RecordStore.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func decodePayload(payload string) (*models.ScoreRecord, error) {
	var rec models.ScoreRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return nil, fmt.Errorf("failed to parse stored record: %w", err)
	}
	return &rec, nil
}

func nullable(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	return &v.Float64
}
