package progress

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dbTimeout = 5 * time.Second

// PostgresStore is a PostgreSQL-backed Store implementation. The schema is
// created by database.Migrate.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a PostgreSQL-backed progress store.
func NewPostgresStore(pool *pgxpool.Pool) (*PostgresStore, error) {
	if pool == nil {
		return nil, fmt.Errorf("pool is nil")
	}
	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Load(ctx context.Context, learnerID string) (*LearnerProgress, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	p := &LearnerProgress{
		LearnerID: learnerID,
		Lessons:   make(map[string]LessonRecord),
		Badges:    []string{},
		Activity:  []ActivityEntry{},
	}
	err := s.pool.QueryRow(ctx,
		`SELECT created_at, total_points FROM learners WHERE id = $1`,
		learnerID,
	).Scan(&p.CreatedAt, &p.TotalPoints)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrLearnerNotFound, learnerID)
		}
		return nil, fmt.Errorf("get learner: %w", err)
	}
	p.CreatedAt = p.CreatedAt.UTC()

	if err := s.loadRecords(ctx, p); err != nil {
		return nil, err
	}
	if err := s.loadBadges(ctx, p); err != nil {
		return nil, err
	}
	if err := s.loadActivity(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PostgresStore) loadRecords(ctx context.Context, p *LearnerProgress) error {
	rows, err := s.pool.Query(ctx,
		`SELECT lesson_id, status, started_at, completed_at, completion_percentage,
		        quiz_score, time_spent_minutes, challenges_completed
		 FROM lesson_records
		 WHERE learner_id = $1`,
		p.LearnerID,
	)
	if err != nil {
		return fmt.Errorf("query lesson records: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var rec LessonRecord
		var status string
		var challenges []byte
		if err := rows.Scan(
			&rec.LessonID,
			&status,
			&rec.StartedAt,
			&rec.CompletedAt,
			&rec.CompletionPercentage,
			&rec.QuizScore,
			&rec.TimeSpentMinutes,
			&challenges,
		); err != nil {
			return fmt.Errorf("scan lesson record: %w", err)
		}
		rec.Status = Status(status)
		rec.StartedAt = utcPtr(rec.StartedAt)
		rec.CompletedAt = utcPtr(rec.CompletedAt)
		rec.ChallengesCompleted = []string{}
		if len(challenges) > 0 {
			if err := json.Unmarshal(challenges, &rec.ChallengesCompleted); err != nil {
				return fmt.Errorf("decode challenges for %s: %w", rec.LessonID, err)
			}
		}
		p.Lessons[rec.LessonID] = rec
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate lesson records: %w", err)
	}
	return nil
}

func (s *PostgresStore) loadBadges(ctx context.Context, p *LearnerProgress) error {
	rows, err := s.pool.Query(ctx,
		`SELECT badge_id FROM learner_badges WHERE learner_id = $1 ORDER BY position ASC`,
		p.LearnerID,
	)
	if err != nil {
		return fmt.Errorf("query badges: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return fmt.Errorf("collect badges: %w", err)
	}
	p.Badges = append(p.Badges, ids...)
	return nil
}

func (s *PostgresStore) loadActivity(ctx context.Context, p *LearnerProgress) error {
	rows, err := s.pool.Query(ctx,
		`SELECT id::text, kind, payload, created_at
		 FROM learner_activity
		 WHERE learner_id = $1
		 ORDER BY seq ASC`,
		p.LearnerID,
	)
	if err != nil {
		return fmt.Errorf("query activity: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var a ActivityEntry
		var kind string
		var payload []byte
		if err := rows.Scan(&a.ID, &kind, &payload, &a.Timestamp); err != nil {
			return fmt.Errorf("scan activity: %w", err)
		}
		a.Kind = ActivityKind(kind)
		a.Timestamp = a.Timestamp.UTC()
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &a.Payload); err != nil {
				return fmt.Errorf("decode activity payload: %w", err)
			}
		}
		p.Activity = append(p.Activity, a)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate activity: %w", err)
	}
	return nil
}

// Save writes the learner in one transaction. Activity rows are
// append-only: only entries past the highest stored seq are inserted.
func (s *PostgresStore) Save(ctx context.Context, p *LearnerProgress) error {
	if p == nil || p.LearnerID == "" {
		return fmt.Errorf("learner_id is required")
	}

	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	createdAt := p.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO learners (id, created_at, total_points)
		 VALUES ($1, $2, $3)
		 ON CONFLICT (id) DO UPDATE SET total_points = EXCLUDED.total_points`,
		p.LearnerID,
		createdAt,
		p.TotalPoints,
	); err != nil {
		return fmt.Errorf("upsert learner: %w", err)
	}

	for _, rec := range p.Lessons {
		challenges, err := json.Marshal(nonNil(rec.ChallengesCompleted))
		if err != nil {
			return fmt.Errorf("marshal challenges: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO lesson_records (learner_id, lesson_id, status, started_at, completed_at,
			                             completion_percentage, quiz_score, time_spent_minutes, challenges_completed)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb)
			 ON CONFLICT (learner_id, lesson_id) DO UPDATE SET
			   status = EXCLUDED.status,
			   started_at = EXCLUDED.started_at,
			   completed_at = EXCLUDED.completed_at,
			   completion_percentage = EXCLUDED.completion_percentage,
			   quiz_score = EXCLUDED.quiz_score,
			   time_spent_minutes = EXCLUDED.time_spent_minutes,
			   challenges_completed = EXCLUDED.challenges_completed`,
			p.LearnerID,
			rec.LessonID,
			string(rec.Status),
			rec.StartedAt,
			rec.CompletedAt,
			rec.CompletionPercentage,
			rec.QuizScore,
			rec.TimeSpentMinutes,
			string(challenges),
		); err != nil {
			return fmt.Errorf("upsert lesson record %s: %w", rec.LessonID, err)
		}
	}

	for i, id := range p.Badges {
		if _, err := tx.Exec(ctx,
			`INSERT INTO learner_badges (learner_id, badge_id, position)
			 VALUES ($1, $2, $3)
			 ON CONFLICT (learner_id, badge_id) DO NOTHING`,
			p.LearnerID,
			id,
			i,
		); err != nil {
			return fmt.Errorf("insert badge %s: %w", id, err)
		}
	}

	var lastSeq int
	if err := tx.QueryRow(ctx,
		`SELECT COALESCE(MAX(seq), -1) FROM learner_activity WHERE learner_id = $1`,
		p.LearnerID,
	).Scan(&lastSeq); err != nil {
		return fmt.Errorf("get activity seq: %w", err)
	}

	for i := lastSeq + 1; i < len(p.Activity); i++ {
		a := p.Activity[i]
		payload, err := json.Marshal(nonNilMap(a.Payload))
		if err != nil {
			return fmt.Errorf("marshal activity payload: %w", err)
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO learner_activity (id, learner_id, seq, kind, payload, created_at)
			 VALUES ($1::uuid, $2, $3, $4, $5::jsonb, $6)
			 ON CONFLICT (id) DO NOTHING`,
			a.ID,
			p.LearnerID,
			i,
			string(a.Kind),
			string(payload),
			a.Timestamp,
		); err != nil {
			return fmt.Errorf("insert activity: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit progress: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, dbTimeout)
	defer cancel()

	rows, err := s.pool.Query(ctx, `SELECT id FROM learners ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query learners: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("collect learners: %w", err)
	}
	return ids, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
