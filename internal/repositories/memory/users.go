package memory

import (
	"context"
	"fmt"
	"time"

	"venue_pos_backend/internal/models"
	"venue_pos_backend/internal/repositories"
)

func (s *Store) CreateUser(ctx context.Context, user *models.User, hashedPassword string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Username == user.Username {
			return 0, fmt.Errorf("%w: username '%s' already exists", repositories.ErrDuplicateKey, user.Username)
		}
	}
	now := time.Now()
	user.ID = s.nextID()
	user.IsActive = true
	user.CreatedAt, user.UpdatedAt = now, now
	stored := *user
	stored.PasswordHash = ""
	s.users[user.ID] = &stored
	s.passwords[user.ID] = hashedPassword
	return user.ID, nil
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, u := range s.users {
		if u.Username == username {
			out := *u
			return &out, s.passwords[id], nil
		}
	}
	return nil, "", repositories.ErrNotFound
}

func (s *Store) FindUserByID(ctx context.Context, userID int64) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	out := *u
	return &out, nil
}

func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.users)), nil
}
