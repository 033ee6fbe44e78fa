package account

import (
	"context"
	"sync"

	"accounthub/internal/domain"
	"accounthub/internal/events"
	"accounthub/internal/media"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

type mockUserStore struct {
	mock.Mock
}

func (m *mockUserStore) FindByID(ctx context.Context, id string, projection domain.Projection) (*domain.User, error) {
	args := m.Called(ctx, id, projection)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*domain.User, error) {
	args := m.Called(ctx, username, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserStore) Update(ctx context.Context, id string, fields domain.UserUpdate, opts domain.UpdateOptions) (*domain.User, error) {
	args := m.Called(ctx, id, fields, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserStore) SwapRefreshToken(ctx context.Context, id, expected, next string) error {
	args := m.Called(ctx, id, expected, next)
	return args.Error(0)
}

type mockUploader struct {
	mock.Mock
}

func (m *mockUploader) Upload(ctx context.Context, localPath string) (*media.Asset, error) {
	args := m.Called(ctx, localPath)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*media.Asset), args.Error(1)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []events.Type {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]events.Type, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// memoryStore is a UserStore kept in a map, for flows that need real
// read-after-write behaviour.
type memoryStore struct {
	mu    sync.Mutex
	users map[string]domain.User
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: make(map[string]domain.User)}
}

func (s *memoryStore) FindByID(_ context.Context, id string, projection domain.Projection) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return u.Apply(projection), nil
}

func (s *memoryStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	username, email = domain.NormalizeUsername(username), domain.NormalizeEmail(email)
	for _, u := range s.users {
		if (username != "" && u.Username == username) || (email != "" && u.Email == email) {
			out := u
			return &out, nil
		}
	}
	return nil, domain.ErrUserNotFound
}

func (s *memoryStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Username, u.Email = domain.NormalizeUsername(u.Username), domain.NormalizeEmail(u.Email)
	for _, existing := range s.users {
		if existing.Username == u.Username || existing.Email == u.Email {
			return domain.ErrDuplicateUser
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	s.users[u.ID] = *u
	return nil
}

func (s *memoryStore) Update(_ context.Context, id string, fields domain.UserUpdate, opts domain.UpdateOptions) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	if fields.Email != nil {
		email := domain.NormalizeEmail(*fields.Email)
		for otherID, other := range s.users {
			if otherID != id && other.Email == email {
				return nil, domain.ErrDuplicateUser
			}
		}
		u.Email = email
	}
	if fields.FullName != nil {
		u.FullName = *fields.FullName
	}
	if fields.Avatar != nil {
		u.Avatar = *fields.Avatar
	}
	if fields.CoverImage != nil {
		u.CoverImage = *fields.CoverImage
	}
	if fields.PasswordHash != nil {
		u.PasswordHash = *fields.PasswordHash
	}
	if fields.RefreshToken != nil {
		u.RefreshToken = *fields.RefreshToken
	}
	s.users[id] = u
	return u.Apply(opts.Projection), nil
}

func (s *memoryStore) SwapRefreshToken(_ context.Context, id, expected, next string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	if u.RefreshToken != expected {
		return domain.ErrRefreshTokenMismatch
	}
	u.RefreshToken = next
	s.users[id] = u
	return nil
}

func (s *memoryStore) get(id string) domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.users[id]
}
