package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lib/pq"

	"gdd-orchestrator/internal/domain"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateJob(ctx context.Context, jobID, concept string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO jobs (id, concept, status)
		VALUES ($1, $2, $3)
		ON CONFLICT (id) DO NOTHING
	`, jobID, concept, domain.StatusReceived)
	return err
}

// SetJobObjectKey records where the concept lives. Only a RECEIVED job moves to STORED, so a
// late write never rewinds a job the worker has already advanced.
func (s *PostgresStore) SetJobObjectKey(ctx context.Context, jobID, objectKey string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET object_key = $2,
		    status = CASE WHEN status = $3 THEN $4 ELSE status END,
		    updated_at = NOW()
		WHERE id = $1
	`, jobID, objectKey, domain.StatusReceived, domain.StatusStored)
	return err
}

func (s *PostgresStore) UpdateJobStatus(ctx context.Context, jobID string, status domain.JobStatus) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, jobID, status)
	return err
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (domain.JobRecord, error) {
	var rec domain.JobRecord
	var finalJSON, resultJSON []byte
	var reason, failure sql.NullString
	var score sql.NullFloat64
	row := s.db.QueryRowContext(ctx, `
		SELECT id, COALESCE(object_key, ''), concept, status, termination_reason, success,
		       overall_score, total_iterations, final_json, result_json, failure_reason,
		       created_at, updated_at
		FROM jobs
		WHERE id = $1
	`, jobID)
	if err := row.Scan(
		&rec.ID,
		&rec.ObjectKey,
		&rec.Concept,
		&rec.Status,
		&reason,
		&rec.Success,
		&score,
		&rec.TotalIterations,
		&finalJSON,
		&resultJSON,
		&failure,
		&rec.CreatedAt,
		&rec.UpdatedAt,
	); err != nil {
		return domain.JobRecord{}, err
	}
	rec.FinalJSON = finalJSON
	rec.ResultJSON = resultJSON
	if reason.Valid {
		rec.TerminationReason = domain.TerminationReason(reason.String)
	}
	if score.Valid {
		rec.OverallScore = &score.Float64
	}
	if failure.Valid {
		rec.FailureReason = &failure.String
	}
	return rec, nil
}

func (s *PostgresStore) GetJobStatus(ctx context.Context, jobID string) (domain.JobStatus, domain.TerminationReason, error) {
	var status domain.JobStatus
	var reason sql.NullString
	row := s.db.QueryRowContext(ctx, `SELECT status, termination_reason FROM jobs WHERE id = $1`, jobID)
	if err := row.Scan(&status, &reason); err != nil {
		return "", "", err
	}
	return status, domain.TerminationReason(reason.String), nil
}

func (s *PostgresStore) InsertAudit(ctx context.Context, jobID string, state domain.AuditState, detail any) error {
	var payload []byte
	switch v := detail.(type) {
	case nil:
		payload = []byte("{}")
	case []byte:
		payload = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return err
		}
		payload = b
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO audit_log (job_id, state, detail)
		VALUES ($1, $2, $3::jsonb)
	`, jobID, state, string(payload))
	return err
}

// SaveIteration is idempotent per (job, iteration) so activity retries do not duplicate rows.
func (s *PostgresStore) SaveIteration(ctx context.Context, row domain.IterationRow) error {
	var decision sql.NullString
	if row.Decision != nil {
		decision = sql.NullString{String: string(*row.Decision), Valid: true}
	}
	var score sql.NullFloat64
	if row.OverallScore != nil {
		score = sql.NullFloat64{Float64: *row.OverallScore, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO iterations (job_id, iteration, state, decision, overall_score, auto_approved, issues, record)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8::jsonb)
		ON CONFLICT (job_id, iteration) DO UPDATE SET
			state = EXCLUDED.state,
			decision = EXCLUDED.decision,
			overall_score = EXCLUDED.overall_score,
			auto_approved = EXCLUDED.auto_approved,
			issues = EXCLUDED.issues,
			record = EXCLUDED.record
	`, row.JobID, row.Iteration, row.State, decision, score, row.AutoApproved, pq.Array(row.Issues), string(row.Record))
	return err
}

func (s *PostgresStore) ListIterations(ctx context.Context, jobID string) ([]domain.IterationRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT job_id, iteration, state, decision, overall_score, auto_approved, issues, record
		FROM iterations
		WHERE job_id = $1
		ORDER BY iteration ASC
	`, jobID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.IterationRow, 0)
	for rows.Next() {
		var item domain.IterationRow
		var decision sql.NullString
		var score sql.NullFloat64
		var issues []string
		var record []byte
		if err := rows.Scan(&item.JobID, &item.Iteration, &item.State, &decision, &score, &item.AutoApproved, pq.Array(&issues), &record); err != nil {
			return nil, err
		}
		if decision.Valid {
			d := domain.Decision(decision.String)
			item.Decision = &d
		}
		if score.Valid {
			item.OverallScore = &score.Float64
		}
		item.Issues = issues
		if item.Issues == nil {
			item.Issues = make([]string, 0)
		}
		item.Record = record
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// SaveResult stores the loop outcome and moves the job to the status its termination reason implies.
func (s *PostgresStore) SaveResult(ctx context.Context, jobID string, result domain.RefinementResult) error {
	finalJSON, err := json.Marshal(result.FinalGDD)
	if err != nil {
		return fmt.Errorf("marshal final gdd: %w", err)
	}
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}
	var score sql.NullFloat64
	if v, ok := result.FinalScore(); ok {
		score = sql.NullFloat64{Float64: v, Valid: true}
	}
	_, err = s.db.ExecContext(ctx, `
		UPDATE jobs
		SET final_json = $2::jsonb,
		    result_json = $3::jsonb,
		    termination_reason = $4,
		    success = $5,
		    overall_score = $6,
		    total_iterations = $7,
		    status = $8,
		    updated_at = NOW()
		WHERE id = $1
	`, jobID, string(finalJSON), string(resultJSON), result.TerminationReason, result.Success, score,
		result.TotalIterations, domain.StatusForTermination(result.TerminationReason))
	return err
}

func (s *PostgresStore) MarkFailed(ctx context.Context, jobID, reason string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, failure_reason = $3, updated_at = NOW()
		WHERE id = $1
	`, jobID, domain.StatusFailed, reason)
	return err
}

func (s *PostgresStore) QueueReview(ctx context.Context, jobID string, reasons []string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO review_queue (job_id, reasons, status)
		VALUES ($1, $2, 'PENDING')
		ON CONFLICT (job_id) DO UPDATE SET
			reasons = EXCLUDED.reasons,
			status = 'PENDING',
			updated_at = NOW()
	`, jobID, pq.Array(reasons))
	if err != nil {
		return err
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE jobs
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`, jobID, domain.StatusNeedsReview)
	if err != nil {
		return err
	}

	return tx.Commit()
}

func (s *PostgresStore) ResolveReview(ctx context.Context, jobID string, decision string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE review_queue
		SET status = $2, updated_at = NOW()
		WHERE job_id = $1
	`, jobID, decision)
	return err
}

func (s *PostgresStore) ListPendingReviews(ctx context.Context) ([]domain.ReviewQueueItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.job_id, r.reasons, j.final_json, r.status, j.overall_score
		FROM review_queue r
		JOIN jobs j ON j.id = r.job_id
		WHERE r.status = 'PENDING'
		ORDER BY r.created_at ASC
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.ReviewQueueItem, 0)
	for rows.Next() {
		var item domain.ReviewQueueItem
		var reasons []string
		var finalJSON []byte
		var score sql.NullFloat64
		if err := rows.Scan(&item.JobID, pq.Array(&reasons), &finalJSON, &item.Status, &score); err != nil {
			return nil, err
		}
		item.Reasons = reasons
		item.FinalJSON = finalJSON
		if score.Valid {
			item.OverallScore = &score.Float64
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *PostgresStore) CountJobs(ctx context.Context) (int64, error) {
	row := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs`)
	var count int64
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count jobs: %w", err)
	}
	return count, nil
}
