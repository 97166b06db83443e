package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"creative-ai-studio/internal/domain"
	"creative-ai-studio/internal/domain/model"
	"creative-ai-studio/internal/domain/ports/repository"
)

var _ repository.AccountRepository = (*PostgresAccountRepo)(nil)

type PostgresAccountRepo struct {
	pool *pgxpool.Pool
}

func NewPostgresAccountRepo(pool *pgxpool.Pool) *PostgresAccountRepo {
	return &PostgresAccountRepo{pool: pool}
}

func (r *PostgresAccountRepo) Save(ctx context.Context, qx any, a *model.Account) error {
	const q = `
INSERT INTO accounts (
  id, email, name, image_plan, video_plan, image_credits, video_credits,
  registered_at, last_active_at
) VALUES (
  $1,$2,$3,$4,$5,$6,$7,$8,$9
) ON CONFLICT (id) DO UPDATE SET
  email=$2, name=$3, image_plan=$4, video_plan=$5,
  image_credits=$6, video_credits=$7, last_active_at=$9;
`
	args := []any{
		a.ID, a.Email, a.Name, string(a.Plan.ImagePlan), string(a.Plan.VideoPlan),
		a.Balance.ImageCredits, a.Balance.VideoCredits, a.RegisteredAt, a.LastActiveAt,
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
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return domain.ErrAlreadyExists
	}
	return err
}

const accountColumns = `
SELECT id, email, name, image_plan, video_plan, image_credits, video_credits,
       registered_at, last_active_at
  FROM accounts`

func (r *PostgresAccountRepo) FindByID(ctx context.Context, qx any, id string) (*model.Account, error) {
	row := pickRow(r.pool, qx, accountColumns+` WHERE id=$1;`, id)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) FindByEmail(ctx context.Context, qx any, email string) (*model.Account, error) {
	row := pickRow(r.pool, qx, accountColumns+` WHERE email=$1;`, email)
	return scanAccount(row)
}

func (r *PostgresAccountRepo) UpdateBalance(ctx context.Context, qx any, id string, balance model.CreditBalance) error {
	const q = `UPDATE accounts SET image_credits=$2, video_credits=$3 WHERE id=$1;`
	var tag pgconn.CommandTag
	var err error
	switch v := qx.(type) {
	case pgx.Tx:
		tag, err = v.Exec(ctx, q, id, balance.ImageCredits, balance.VideoCredits)
	case *pgxpool.Conn:
		tag, err = v.Exec(ctx, q, id, balance.ImageCredits, balance.VideoCredits)
	default:
		tag, err = r.pool.Exec(ctx, q, id, balance.ImageCredits, balance.VideoCredits)
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	var imagePlan, videoPlan string
	if err := row.Scan(&a.ID, &a.Email, &a.Name, &imagePlan, &videoPlan,
		&a.Balance.ImageCredits, &a.Balance.VideoCredits,
		&a.RegisteredAt, &a.LastActiveAt); err != nil {
		if err == pgx.ErrNoRows {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Plan.ImagePlan = model.ImagePlan(imagePlan)
	a.Plan.VideoPlan = model.VideoPlan(videoPlan)
	return &a, nil
}
