package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/innovalab/center/core/user"
)

const userColumns = `id, names, surnames, email, phone, password_hash, role, auth_provider, is_verified,
	password_change_count, password_changed_at, created_at, updated_at`

type userRow struct {
	ID                  int64      `db:"id"`
	Names               string     `db:"names"`
	Surnames            string     `db:"surnames"`
	Email               string     `db:"email"`
	Phone               string     `db:"phone"`
	PasswordHash        null.Bytes `db:"password_hash"`
	Role                string     `db:"role"`
	Provider            string     `db:"auth_provider"`
	IsVerified          bool       `db:"is_verified"`
	PasswordChangeCount int        `db:"password_change_count"`
	PasswordChangedAt   null.Time  `db:"password_changed_at"`
	CreatedAt           time.Time  `db:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at"`
}

func toUserRow(usr user.User) userRow {
	return userRow{
		ID:                  usr.ID,
		Names:               usr.Names,
		Surnames:            usr.Surnames,
		Email:               usr.Email,
		Phone:               usr.Phone,
		PasswordHash:        null.NewBytes(usr.PasswordHash, len(usr.PasswordHash) > 0),
		Role:                usr.Role,
		Provider:            usr.Provider,
		IsVerified:          usr.IsVerified,
		PasswordChangeCount: usr.PasswordChangeCount,
		PasswordChangedAt:   null.NewTime(usr.PasswordChangedAt.UTC(), !usr.PasswordChangedAt.IsZero()),
		CreatedAt:           usr.CreatedAt.UTC(),
		UpdatedAt:           usr.UpdatedAt.UTC(),
	}
}

func (r userRow) toUser() user.User {
	usr := user.User{
		ID:                  r.ID,
		Names:               r.Names,
		Surnames:            r.Surnames,
		Email:               r.Email,
		Phone:               r.Phone,
		Role:                r.Role,
		Provider:            r.Provider,
		IsVerified:          r.IsVerified,
		PasswordChangeCount: r.PasswordChangeCount,
		CreatedAt:           r.CreatedAt.UTC(),
		UpdatedAt:           r.UpdatedAt.UTC(),
	}
	if r.PasswordHash.Valid {
		usr.PasswordHash = r.PasswordHash.Bytes
	}
	if r.PasswordChangedAt.Valid {
		usr.PasswordChangedAt = r.PasswordChangedAt.Time.UTC()
	}
	return usr
}

type userRepository struct {
	db *sqlx.DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *sqlx.DB) *userRepository {
	return &userRepository{db: db}
}

func (repo userRepository) CreateUser(ctx context.Context, usr user.User) (user.User, error) {
	exec := getExec(ctx, repo.db)
	q, args, err := exec.BindNamed(`
		INSERT INTO users (names, surnames, email, phone, password_hash, role, auth_provider, is_verified,
			password_change_count, password_changed_at, created_at, updated_at)
		VALUES (:names, :surnames, :email, :phone, :password_hash, :role, :auth_provider, :is_verified,
			:password_change_count, :password_changed_at, :created_at, :updated_at)
		ON CONFLICT (email) DO NOTHING
		RETURNING `+userColumns, toUserRow(usr))
	if err != nil {
		return user.User{}, errors.Wrap(err, "binding user")
	}

	var row userRow
	if err = exec.GetContext(ctx, &row, q, args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrEmailExists, "inserting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByID(ctx context.Context, id int64) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, id); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) GetUserByEmail(ctx context.Context, email string) (user.User, error) {
	var row userRow
	q := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	if err := getExec(ctx, repo.db).GetContext(ctx, &row, q, email); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "getting user")
	}
	return row.toUser(), nil
}

func (repo userRepository) UpdateUser(ctx context.Context, id int64, patch user.Patch) (user.User, error) {
	b := userPatchBuilder(patch)
	if b.empty() {
		return repo.GetUserByID(ctx, id)
	}
	b.set("updated_at", user.NowFunc().UTC())
	q, args := b.build(id, userColumns)

	exec := getExec(ctx, repo.db)
	var row userRow
	if err := exec.GetContext(ctx, &row, exec.Rebind(q), args...); err != nil {
		return user.User{}, trapNoRowsErr(err, user.ErrNotFound, "updating user")
	}
	return row.toUser(), nil
}

func userPatchBuilder(patch user.Patch) *updateBuilder {
	b := newUpdateBuilder("users")
	if patch.Names != nil {
		b.set("names", *patch.Names)
	}
	if patch.Surnames != nil {
		b.set("surnames", *patch.Surnames)
	}
	if patch.PasswordHash != nil {
		b.set("password_hash", patch.PasswordHash)
	}
	if patch.Role != nil {
		b.set("role", *patch.Role)
	}
	if patch.Provider != nil {
		b.set("auth_provider", *patch.Provider)
	}
	if patch.PasswordChangeCount != nil {
		b.set("password_change_count", *patch.PasswordChangeCount)
	}
	if patch.PasswordChangedAt != nil {
		b.set("password_changed_at", patch.PasswordChangedAt.UTC())
	}
	return b
}
