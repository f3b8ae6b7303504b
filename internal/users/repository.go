package users

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/text/cases"

	"github.com/pictor-board/pictor/internal/access"
	"github.com/pictor-board/pictor/internal/auth"
	"github.com/pictor-board/pictor/internal/platform/db"
	"github.com/pictor-board/pictor/internal/shared"
)

// Repository defines persistence operations for user accounts. Methods run
// against the transaction carried by ctx when there is one.
type Repository interface {
	// Count returns the total number of accounts.
	Count(ctx context.Context) (int64, error)
	// FindByName fetches an account by case-insensitive name.
	FindByName(ctx context.Context, name string) (*User, error)
	// ConfirmedEmailInUse reports whether any account holds the address as
	// a confirmed email.
	ConfirmedEmailInUse(ctx context.Context, email string) (bool, error)
	// Create persists a new account and assigns its ID.
	Create(ctx context.Context, user *User) error
}

// FoldName canonicalizes an account name for case-insensitive comparison.
func FoldName(name string) string {
	return cases.Fold().String(name)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

func (r *PGRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := db.QuerierFrom(ctx, r.pool).
		QueryRow(ctx, `SELECT COUNT(*) FROM users`).
		Scan(&count)
	return count, err
}

func (r *PGRepository) FindByName(ctx context.Context, name string) (*User, error) {
	row := db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `
		SELECT id, name, password_hash, rank, confirmed_email, unconfirmed_email, email_token, created_at
		FROM users WHERE name_fold = $1`, FoldName(name))
	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shared.NewError(shared.KindNotFound, "User %q not found", name)
		}
		return nil, err
	}
	return user, nil
}

func (r *PGRepository) ConfirmedEmailInUse(ctx context.Context, email string) (bool, error) {
	var exists bool
	err := db.QuerierFrom(ctx, r.pool).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE lower(confirmed_email) = lower($1))`, email).
		Scan(&exists)
	return exists, err
}

func (r *PGRepository) Create(ctx context.Context, user *User) error {
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now().UTC()
	}
	err := db.QuerierFrom(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO users (name, name_fold, password_hash, rank, confirmed_email, unconfirmed_email, email_token, created_at)
		VALUES ($1, $2, $3, $4, NULLIF($5, ''), NULLIF($6, ''), NULLIF($7, ''), $8)
		RETURNING id`,
		user.Name, FoldName(user.Name), user.PasswordHash, int(user.Rank),
		user.ConfirmedEmail, user.UnconfirmedEmail, user.EmailToken, user.CreatedAt).
		Scan(&user.ID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			if pgErr.ConstraintName == "users_confirmed_email_key" {
				return shared.NewError(shared.KindDuplicateEmail, "User with this e-mail is already registered")
			}
			return shared.NewError(shared.KindDuplicateName, "User with this name is already registered")
		}
		return err
	}
	return nil
}

var _ Repository = (*PGRepository)(nil)

func scanUser(row pgx.Row) (*User, error) {
	var (
		user        User
		rank        int
		confirmed   *string
		unconfirmed *string
		token       *string
	)
	if err := row.Scan(&user.ID, &user.Name, &user.PasswordHash, &rank, &confirmed, &unconfirmed, &token, &user.CreatedAt); err != nil {
		return nil, err
	}
	user.Rank = access.Rank(rank)
	if confirmed != nil {
		user.ConfirmedEmail = *confirmed
	}
	if unconfirmed != nil {
		user.UnconfirmedEmail = *unconfirmed
	}
	if token != nil {
		user.EmailToken = *token
	}
	return &user, nil
}

// FindAccountByName adapts the repository to the auth credential lookup.
func (r *PGRepository) FindAccountByName(ctx context.Context, name string) (*auth.Account, error) {
	user, err := r.FindByName(ctx, name)
	if err != nil {
		return nil, err
	}
	return &auth.Account{
		ID:             user.ID,
		Name:           user.Name,
		PasswordHash:   user.PasswordHash,
		Rank:           user.Rank,
		EmailConfirmed: user.ConfirmedEmail != "",
	}, nil
}
