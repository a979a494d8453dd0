package accounts

import (
	"context"
	"errors"
	"time"

	"github.com/mperic/liftlog/internal/telemetry/tracing"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.opentelemetry.io/otel/attribute"
)

var ErrAccountNotFound = errors.New("account not found")

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (_ *Account, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.getByEmail")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password_hash, created_at FROM account WHERE email = $1;`,
		email,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrAccountNotFound
	}

	return scanAccount(rows.Scan)
}

func (r *Repo) Get(ctx context.Context, id string) (_ *Account, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.accounts.get")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("account.id", id))

	rows, err := r.db.Query(
		ctx,
		`SELECT id, email, password_hash, created_at FROM account WHERE id = $1;`,
		id,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if !rows.Next() {
		return nil, ErrAccountNotFound
	}

	return scanAccount(rows.Scan)
}

func scanAccount(scan func(dest ...any) error) (*Account, error) {
	var a Account
	var createdAt time.Time
	if err := scan(&a.ID, &a.Email, &a.PasswordHash, &createdAt); err != nil {
		return nil, err
	}
	a.CreatedAt = createdAt
	return &a, nil
}
