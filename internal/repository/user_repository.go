package repository

import (
	"context"

	"grocerly/internal/domain/user"
)

type userRepository struct {
	db DBTX
}

func NewUserRepository(db DBTX) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, u *user.User) error {
	_, err := r.db.ExecContext(ctx, `
        INSERT INTO users (id, email, display_name, family, password_hash, created_at)
        VALUES ($1,$2,$3,$4,$5,$6)
    `, u.ID, u.Email, u.DisplayName, u.Family, u.PasswordHash, u.CreatedAt)
	return translateErr(err)
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (user.User, error) {
	var u user.User
	err := r.db.QueryRowContext(ctx, `
        SELECT id, email, display_name, family, password_hash, created_at
        FROM users
        WHERE email = $1
    `, email).Scan(&u.ID, &u.Email, &u.DisplayName, &u.Family, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		return user.User{}, translateErr(err)
	}
	return u, nil
}
