package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/repository"
)

var _ repository.GenerationJobRepository = (*PostgresJobRepo)(nil)

type PostgresJobRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresJobRepo(pool *pgxpool.Pool) *PostgresJobRepo {
	return &PostgresJobRepo{pool: pool}
}

func (r *PostgresJobRepo) Save(ctx context.Context, qx any, job *model.GenerationJob) error {
	const q = `
INSERT INTO generation_jobs (
  id, request_id, user_id, modality, state, artifact_urls, cause,
  submitted_at, updated_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  state=$5, artifact_urls=$6, cause=$7, updated_at=$9;
`
	args := []any{
		job.ID, job.RequestID, job.UserID, string(job.Modality), string(job.State),
		job.ArtifactURLs, job.Cause, job.SubmittedAt, job.UpdatedAt,
	}
	var err error
	switch v := qx.(type) {
	case pgx.Tx:
		_, err = v.Exec(ctx, q, args...)
	case *pgxpool.Conn:
		_, err = v.Exec(ctx, q, args...)
	default:
		_, err = r.pool.Exec(ctx, q, args...)
	}
	return err
}

const jobColumns = `
SELECT id, request_id, user_id, modality, state, artifact_urls, cause,
       submitted_at, updated_at
  FROM generation_jobs`

func (r *PostgresJobRepo) FindByID(ctx context.Context, qx any, id string) (*model.GenerationJob, error) {
	row := pickRow(r.pool, qx, jobColumns+` WHERE id=$1;`, id)
	return scanJob(row)
}

func (r *PostgresJobRepo) ListByUser(ctx context.Context, qx any, userID string, limit int) ([]*model.GenerationJob, error) {
	rows, err := r.pool.Query(ctx, jobColumns+` WHERE user_id=$1 ORDER BY submitted_at DESC LIMIT $2;`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func (r *PostgresJobRepo) ListStuck(ctx context.Context, qx any, olderThanSeconds int) ([]*model.GenerationJob, error) {
	const q = jobColumns + `
 WHERE state IN ('submitted','polling')
   AND updated_at < now() - make_interval(secs => $1);`
	rows, err := r.pool.Query(ctx, q, olderThanSeconds)
	if err != nil {
		return nil, fmt.Errorf("list stuck jobs: %w", err)
	}
	defer rows.Close()
	return collectJobs(rows)
}

func scanJob(row pgx.Row) (*model.GenerationJob, error) {
	var j model.GenerationJob
	var modality, state string
	if err := row.Scan(&j.ID, &j.RequestID, &j.UserID, &modality, &state,
		&j.ArtifactURLs, &j.Cause, &j.SubmittedAt, &j.UpdatedAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	j.Modality = model.Modality(modality)
	j.State = model.JobState(state)
	return &j, nil
}

func collectJobs(rows pgx.Rows) ([]*model.GenerationJob, error) {
	var out []*model.GenerationJob
	for rows.Next() {
		var j model.GenerationJob
		var modality, state string
		if err := rows.Scan(&j.ID, &j.RequestID, &j.UserID, &modality, &state,
			&j.ArtifactURLs, &j.Cause, &j.SubmittedAt, &j.UpdatedAt); err != nil {
			return nil, err
		}
		j.Modality = model.Modality(modality)
		j.State = model.JobState(state)
		out = append(out, &j)
	}
	return out, rows.Err()
}
