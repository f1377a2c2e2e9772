package mysql

import (
	"context"
	"database/sql"
	"embed"
	"io/fs"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"shop/pkg/auth/domain/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Migrations() fs.FS { return migrationsFS }

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, role, created_at, is_active, last_login)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.Username, user.Email, user.PasswordHash, user.Role, user.CreatedAt, user.IsActive, user.LastLogin,
	)
	if err != nil {
		return errors.Wrap(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return errors.Wrap(err, "read user id")
	}
	user.ID = id
	return nil
}

func (r *UserRepository) Update(ctx context.Context, user *model.User) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE users SET email = ?, password_hash = ?, role = ?, is_active = ?, last_login = ? WHERE id = ?`,
		user.Email, user.PasswordHash, user.Role, user.IsActive, user.LastLogin, user.ID,
	)
	return errors.Wrap(err, "update user")
}

func (r *UserRepository) Find(ctx context.Context, id int64) (*model.User, error) {
	return r.findBy(ctx, `SELECT * FROM users WHERE id = ?`, id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*model.User, error) {
	return r.findBy(ctx, `SELECT * FROM users WHERE username = ?`, username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.findBy(ctx, `SELECT * FROM users WHERE email = ?`, email)
}

func (r *UserRepository) findBy(ctx context.Context, query string, arg interface{}) (*model.User, error) {
	var user model.User
	if err := r.db.GetContext(ctx, &user, query, arg); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "select user")
	}
	return &user, nil
}

func (r *UserRepository) List(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := r.db.SelectContext(ctx, &users, `SELECT * FROM users ORDER BY id`); err != nil {
		return nil, errors.Wrap(err, "select users")
	}
	return users, nil
}
