package store

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore is the development/test account store.
type InMemoryStore struct {
	mu    sync.RWMutex
	users map[string]User // id -> user
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{users: make(map[string]User)}
}

func (s *InMemoryStore) Create(_ context.Context, p CreateUserParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, p.Email) {
			return User{}, ErrEmailTaken
		}
		if strings.EqualFold(u.Username, p.Username) {
			return User{}, ErrUsernameTaken
		}
	}
	role := p.Role
	if role == "" {
		role = "user"
	}
	u := User{
		ID:             uuid.NewString(),
		Username:       p.Username,
		Email:          p.Email,
		PasswordHash:   p.PasswordHash,
		ProfilePicture: p.ProfilePicture,
		Role:           role,
		CreatedAt:      time.Now().UTC(),
	}
	s.users[u.ID] = u
	return u, nil
}

func (s *InMemoryStore) GetByID(_ context.Context, id string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *InMemoryStore) GetPublic(ctx context.Context, id string) (PublicUser, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return PublicUser{}, err
	}
	return PublicUser{ID: u.ID, Username: u.Username, ProfilePicture: u.ProfilePicture, JoinedAt: u.CreatedAt}, nil
}

func (s *InMemoryStore) FindByLogin(_ context.Context, login string) (User, error) {
	login = strings.TrimSpace(login)
	if login == "" {
		return User{}, ErrNotFound
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if strings.EqualFold(u.Email, login) || strings.EqualFold(u.Username, login) {
			return u, nil
		}
	}
	return User{}, ErrNotFound
}

func (s *InMemoryStore) UpdateProfile(_ context.Context, id string, p UpdateProfileParams) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return User{}, ErrNotFound
	}
	if p.Username != nil {
		for otherID, other := range s.users {
			if otherID != id && strings.EqualFold(other.Username, *p.Username) {
				return User{}, ErrUsernameTaken
			}
		}
		u.Username = *p.Username
	}
	if p.ProfilePicture != nil {
		u.ProfilePicture = *p.ProfilePicture
	}
	s.users[id] = u
	return u, nil
}
