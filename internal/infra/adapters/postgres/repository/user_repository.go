package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jmoiron/sqlx"

	"github.com/qrave1/TaleRoom/internal/domain/models"
)

const uniqueViolation = "23505"

type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	// GetProfiles возвращает найденные профили, отсутствующие имена пропускаются.
	GetProfiles(ctx context.Context, usernames []string) ([]*models.User, error)
}

type userRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) UserRepository {
	return &userRepo{db: db}
}

const userColumns = "id, username, password, age, gender, interests, created_at, updated_at"

func (r *userRepo) CreateUser(ctx context.Context, user *models.User) error {
	query := `INSERT INTO users (id, username, password, age, gender, interests, created_at, updated_at)
		VALUES (:id, :username, :password, :age, :gender, :interests, :created_at, :updated_at)`

	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return models.ErrUserExists
		}

		return fmt.Errorf("create user: %w", err)
	}

	if aff, err := res.RowsAffected(); aff == 0 || err != nil {
		return fmt.Errorf("create user no rows affected: %w", err)
	}

	return nil
}

func (r *userRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id)
}

func (r *userRepo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getOne(ctx, "SELECT "+userColumns+" FROM users WHERE username = $1", username)
}

func (r *userRepo) GetProfiles(ctx context.Context, usernames []string) ([]*models.User, error) {
	if len(usernames) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In("SELECT "+userColumns+" FROM users WHERE username IN (?)", usernames)
	if err != nil {
		return nil, fmt.Errorf("build profiles query: %w", err)
	}

	var users []*models.User

	if err = r.db.SelectContext(ctx, &users, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select profiles: %w", err)
	}

	return users, nil
}

func (r *userRepo) getOne(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User

	err := r.db.GetContext(ctx, &user, query, arg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.ErrUserNotFound
		}

		return nil, fmt.Errorf("get user: %w", err)
	}

	return &user, nil
}
