package users

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/aussiebroadwan/idp/internal/idp/domain"
	"github.com/aussiebroadwan/idp/pkg/cryptox"
)

// User is a seedable in-memory account.
type User struct {
	SubjectID string
	Username  string
	Password  string
	Name      string
	Active    bool
	Claims    []domain.Claim
}

type record struct {
	subjectID    string
	passwordHash string
	name         string
	active       bool
	claims       []domain.Claim
}

// InMemoryService holds users in a map with argon2id password hashes.
// Intended for tests and single-node bootstrap deployments.
type InMemoryService struct {
	mu         sync.RWMutex
	byUsername map[string]*record
	bySubject  map[string]*record
}

func NewInMemoryService(seed ...User) (*InMemoryService, error) {
	s := &InMemoryService{
		byUsername: make(map[string]*record),
		bySubject:  make(map[string]*record),
	}
	for _, u := range seed {
		if err := s.Add(u); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add registers a user, hashing the password before it is stored.
func (s *InMemoryService) Add(u User) error {
	hash, err := cryptox.HashPassword(u.Password)
	if err != nil {
		return err
	}

	r := &record{
		subjectID:    u.SubjectID,
		passwordHash: hash,
		name:         u.Name,
		active:       u.Active,
		claims:       slices.Clone(u.Claims),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.byUsername[u.Username] = r
	s.bySubject[u.SubjectID] = r
	return nil
}

func (s *InMemoryService) AuthenticateLocal(ctx context.Context, username, password string) (*domain.Subject, error) {
	s.mu.RLock()
	r, ok := s.byUsername[username]
	s.mu.RUnlock()

	if !ok {
		// Burn a verification anyway so unknown usernames cost the same
		// as wrong passwords.
		_ = cryptox.VerifyPassword(password, dummyHash)
		return nil, ErrInvalidCredentials
	}

	if err := cryptox.VerifyPassword(password, r.passwordHash); err != nil {
		return nil, ErrInvalidCredentials
	}
	if !r.active {
		return nil, ErrAccountInactive
	}

	return &domain.Subject{
		ID:                   r.subjectID,
		Name:                 r.name,
		AuthenticationMethod: domain.AuthenticationMethodPassword,
		AuthenticationTime:   time.Now().UTC(),
		IdentityProvider:     domain.LocalIdentityProvider,
	}, nil
}

func (s *InMemoryService) IsActive(ctx context.Context, subjectID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.bySubject[subjectID]
	if !ok {
		return false, nil
	}
	return r.active, nil
}

func (s *InMemoryService) GetProfileClaims(ctx context.Context, subjectID string, requested []string, includeAll bool) ([]domain.Claim, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.bySubject[subjectID]
	if !ok {
		return nil, nil
	}

	if includeAll {
		return slices.Clone(r.claims), nil
	}

	var out []domain.Claim
	for _, c := range r.claims {
		if slices.Contains(requested, c.Type) {
			out = append(out, c)
		}
	}
	return out, nil
}

var _ Service = (*InMemoryService)(nil)

// dummyHash is verified against for unknown usernames. Any well-formed
// argon2id hash works; it never matches.
var dummyHash = func() string {
	h, err := cryptox.HashPassword("not-a-real-password")
	if err != nil {
		panic(err)
	}
	return h
}()
