package inmemdb

import (
	"context"

	"github.com/innovalab/center/core/user"
)

type userRepository struct {
	db *DB
}

var _ user.Repository = (*userRepository)(nil) // interface compliance check

func NewUserRepository(db *DB) *userRepository {
	return &userRepository{db: db}
}

func (repo *userRepository) CreateUser(_ context.Context, usr user.User) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	for _, u := range repo.db.users {
		if u.Email == usr.Email {
			return user.User{}, user.ErrEmailExists
		}
	}
	usr.ID = repo.db.nextID()
	repo.db.users[usr.ID] = usr
	return usr, nil
}

func (repo *userRepository) GetUserByID(_ context.Context, id int64) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	if usr, ok := repo.db.users[id]; ok {
		return usr, nil
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	repo.db.mutex.RLock()
	defer repo.db.mutex.RUnlock()

	for _, usr := range repo.db.users {
		if usr.Email == email {
			return usr, nil
		}
	}
	return user.User{}, user.ErrNotFound
}

func (repo *userRepository) UpdateUser(_ context.Context, id int64, patch user.Patch) (user.User, error) {
	repo.db.mutex.Lock()
	defer repo.db.mutex.Unlock()

	usr, ok := repo.db.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	if patch.IsEmpty() {
		return usr, nil
	}

	if patch.Names != nil {
		usr.Names = *patch.Names
	}
	if patch.Surnames != nil {
		usr.Surnames = *patch.Surnames
	}
	if patch.PasswordHash != nil {
		usr.PasswordHash = patch.PasswordHash
	}
	if patch.Role != nil {
		usr.Role = *patch.Role
	}
	if patch.Provider != nil {
		usr.Provider = *patch.Provider
	}
	if patch.PasswordChangeCount != nil {
		usr.PasswordChangeCount = *patch.PasswordChangeCount
	}
	if patch.PasswordChangedAt != nil {
		usr.PasswordChangedAt = patch.PasswordChangedAt.UTC()
	}
	usr.UpdatedAt = user.NowFunc().UTC()
	repo.db.users[id] = usr
	return usr, nil
}
