// Package memory is the in-process store implementation. It backs tests
// and DB-less development runs with the same semantics the postgres
// implementation provides, including the one-time-code consume CAS.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/hamzaiqbal/crmconnect/internal/errs"
	"github.com/hamzaiqbal/crmconnect/internal/models"
)

type Store struct {
	mu       sync.RWMutex
	tenants  map[uuid.UUID]*models.Tenant
	users    map[uuid.UUID]*models.User
	codes    map[uuid.UUID]*models.OneTimeCode
	accounts map[uuid.UUID]*models.ChannelAccount
}

func New() *Store {
	return &Store{
		tenants:  make(map[uuid.UUID]*models.Tenant),
		users:    make(map[uuid.UUID]*models.User),
		codes:    make(map[uuid.UUID]*models.OneTimeCode),
		accounts: make(map[uuid.UUID]*models.ChannelAccount),
	}
}

func (s *Store) CreateTenant(ctx context.Context, t *models.Tenant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == uuid.Nil {
		t.ID = uuid.New()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	cp := *t
	s.tenants[t.ID] = &cp
	return nil
}

func (s *Store) GetTenant(ctx context.Context, id uuid.UUID) (*models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tenants[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *Store) ListTenants(ctx context.Context) ([]models.Tenant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Tenant, 0, len(s.tenants))
	for _, t := range s.tenants {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *Store) UpdateTenantStatus(ctx context.Context, id uuid.UUID, from, to models.TenantStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tenants[id]
	if !ok {
		return errs.ErrNotFound
	}
	if t.Status != from {
		return errs.ErrInvalidTransition
	}
	t.Status = to
	t.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range s.users {
		if strings.ToLower(existing.Email) == email {
			return errs.ErrDuplicateEmail
		}
		if u.Phone != "" && existing.Phone == u.Phone {
			return errs.ErrDuplicatePhone
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range s.users {
		if strings.ToLower(u.Email) == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *Store) GetUserByPhone(ctx context.Context, phone string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Phone != "" && u.Phone == phone {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *Store) GetTenantAdmin(ctx context.Context, tenantID uuid.UUID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.TenantID != nil && *u.TenantID == tenantID && u.Role == models.RoleTenantAdmin {
			cp := *u
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *Store) SetUserVerified(ctx context.Context, id uuid.UUID, channel models.CodeChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return errs.ErrNotFound
	}
	switch channel {
	case models.CodeChannelEmail:
		u.EmailVerified = true
	case models.CodeChannelPhone:
		u.PhoneVerified = true
	default:
		return errs.ErrInvalidInput
	}
	return nil
}

func (s *Store) CreateCode(ctx context.Context, c *models.OneTimeCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	cp := *c
	s.codes[c.ID] = &cp
	return nil
}

func (s *Store) LatestCode(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) (*models.OneTimeCode, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var latest *models.OneTimeCode
	for _, c := range s.codes {
		if c.UserID != userID || c.Channel != channel {
			continue
		}
		if latest == nil || c.CreatedAt.After(latest.CreatedAt) {
			latest = c
		}
	}
	if latest == nil {
		return nil, errs.ErrNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *Store) ConsumeCode(ctx context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.codes[id]
	if !ok {
		return false, errs.ErrNotFound
	}
	if c.Used {
		return false, nil
	}
	c.Used = true
	return true, nil
}

func (s *Store) InvalidateCodes(ctx context.Context, userID uuid.UUID, channel models.CodeChannel) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range s.codes {
		if c.UserID == userID && c.Channel == channel {
			c.Used = true
		}
	}
	return nil
}

func (s *Store) CreateAccount(ctx context.Context, a *models.ChannelAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.accounts {
		if existing.Channel == a.Channel && existing.ExternalID == a.ExternalID {
			return errs.ErrRoutingKeyTaken
		}
	}
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now
	cp := *a
	s.accounts[a.ID] = &cp
	return nil
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (*models.ChannelAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.accounts[id]
	if !ok {
		return nil, errs.ErrNotFound
	}
	cp := *a
	return &cp, nil
}

func (s *Store) GetAccountByRoutingKey(ctx context.Context, channel models.Channel, externalID string) (*models.ChannelAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.accounts {
		if a.Channel == channel && a.ExternalID == externalID {
			cp := *a
			return &cp, nil
		}
	}
	return nil, errs.ErrNotFound
}

func (s *Store) ListAccounts(ctx context.Context) ([]models.ChannelAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ChannelAccount, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, *a)
	}
	return out, nil
}

func (s *Store) ListTenantAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.ChannelAccount
	for _, a := range s.accounts {
		if a.TenantID == tenantID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (s *Store) UpdateAccountToken(ctx context.Context, id uuid.UUID, token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.AccessToken = token
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) UpdateAccountCredentials(ctx context.Context, id uuid.UUID, token, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return errs.ErrNotFound
	}
	a.AccessToken = token
	a.AppSecret = secret
	a.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *Store) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return errs.ErrNotFound
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) DeleteTenantAccounts(ctx context.Context, tenantID uuid.UUID) ([]models.ChannelAccount, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var removed []models.ChannelAccount
	for id, a := range s.accounts {
		if a.TenantID == tenantID {
			removed = append(removed, *a)
			delete(s.accounts, id)
		}
	}
	return removed, nil
}
