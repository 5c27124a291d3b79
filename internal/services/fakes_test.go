package services

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"authservice/internal/models"
	"authservice/internal/repositories"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// fakeTokenRepo mirrors the SQL: deactivate-then-insert under partial unique
// indexes on live (purpose, token) and (account_id, purpose), and a
// compare-and-swap consume optionally scoped to an owner.
type fakeTokenRepo struct {
	mu      sync.Mutex
	rows    []*models.Token
	dupNext int
}

func (r *fakeTokenRepo) Replace(_ context.Context, t *models.Token) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.dupNext > 0 {
		r.dupNext--
		return repositories.ErrDuplicate
	}
	var deactivated []*models.Token
	for _, row := range r.rows {
		if row.Active && row.AccountID == t.AccountID && row.Purpose == t.Purpose {
			row.Active = false
			deactivated = append(deactivated, row)
		}
	}
	for _, row := range r.rows {
		if row.Active && row.Purpose == t.Purpose && row.Value == t.Value {
			for _, d := range deactivated {
				d.Active = true
			}
			return repositories.ErrDuplicate
		}
	}
	cp := *t
	cp.Active = true
	cp.UpdatedAt = t.CreatedAt
	r.rows = append(r.rows, &cp)
	t.Active = true
	return nil
}

func (r *fakeTokenRepo) Consume(_ context.Context, value string, purpose models.Purpose, owner uuid.NullUUID, now time.Time) (*models.Token, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if owner.Valid && row.AccountID != owner.UUID {
			continue
		}
		if row.Active && row.Value == value && row.Purpose == purpose {
			row.Active = false
			row.UpdatedAt = now
			cp := *row
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeTokenRepo) PurgeStale(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*models.Token
	var n int64
	for _, row := range r.rows {
		if (!row.Active && row.UpdatedAt.Before(before)) || row.ExpiresAt.Before(before) {
			n++
			continue
		}
		kept = append(kept, row)
	}
	r.rows = kept
	return n, nil
}

// active returns the live token value for (account, purpose) or "".
func (r *fakeTokenRepo) active(accountID uuid.UUID, purpose models.Purpose) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, row := range r.rows {
		if row.Active && row.AccountID == accountID && row.Purpose == purpose {
			return row.Value
		}
	}
	return ""
}

func (r *fakeTokenRepo) countActive(accountID uuid.UUID, purpose models.Purpose) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, row := range r.rows {
		if row.Active && row.AccountID == accountID && row.Purpose == purpose {
			n++
		}
	}
	return n
}

type fakeAccountRepo struct {
	mu   sync.Mutex
	byID map[uuid.UUID]*models.Account
}

func newFakeAccountRepo() *fakeAccountRepo {
	return &fakeAccountRepo{byID: map[uuid.UUID]*models.Account{}}
}

func (r *fakeAccountRepo) put(a *models.Account) {
	r.mu.Lock()
	cp := *a
	r.byID[a.ID] = &cp
	r.mu.Unlock()
}

func (r *fakeAccountRepo) get(id uuid.UUID) *models.Account {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok {
		return nil
	}
	cp := *a
	return &cp
}

func (r *fakeAccountRepo) Create(_ context.Context, a *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, x := range r.byID {
		if x.Email == a.Email || (a.Phone != "" && x.Phone == a.Phone) || (a.Username != "" && x.Username == a.Username) {
			return repositories.ErrDuplicate
		}
	}
	cp := *a
	r.byID[a.ID] = &cp
	return nil
}

func (r *fakeAccountRepo) find(match func(*models.Account) bool) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		if !a.Deleted && match(a) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, repositories.ErrNotFound
}

func (r *fakeAccountRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Account, error) {
	return r.find(func(a *models.Account) bool { return a.ID == id })
}

func (r *fakeAccountRepo) GetByEmail(_ context.Context, email string) (*models.Account, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return r.find(func(a *models.Account) bool { return a.Email == email })
}

func (r *fakeAccountRepo) FindByIdentifier(_ context.Context, id string) (*models.Account, error) {
	id = strings.TrimSpace(id)
	return r.find(func(a *models.Account) bool {
		return a.Email == strings.ToLower(id) || (a.Phone != "" && a.Phone == id) || (a.Username != "" && a.Username == id)
	})
}

func (r *fakeAccountRepo) ExistsBy(_ context.Context, field models.Identifier, value string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.byID {
		switch field {
		case models.IdentifierEmail:
			if a.Email == strings.ToLower(value) {
				return true, nil
			}
		case models.IdentifierPhone:
			if a.Phone == value {
				return true, nil
			}
		case models.IdentifierUsername:
			if a.Username == value {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *fakeAccountRepo) update(id uuid.UUID, fn func(a *models.Account)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.byID[id]
	if !ok || a.Deleted {
		return repositories.ErrNotFound
	}
	fn(a)
	return nil
}

func (r *fakeAccountRepo) UpdateProfile(_ context.Context, a *models.Account) error {
	return r.update(a.ID, func(x *models.Account) {
		x.FirstName, x.LastName, x.OtherNames = a.FirstName, a.LastName, a.OtherNames
		x.Avatar, x.Location, x.UpdatedAt = a.Avatar, a.Location, a.UpdatedAt
	})
}

func (r *fakeAccountRepo) UpdatePassword(_ context.Context, id uuid.UUID, hash string, lvf *time.Time, now time.Time) error {
	return r.update(id, func(x *models.Account) {
		x.PasswordHash = hash
		if lvf != nil {
			x.LoginValidFrom = *lvf
		}
		x.UpdatedAt = now
	})
}

func (r *fakeAccountRepo) SetLoginValidFrom(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.update(id, func(x *models.Account) { x.LoginValidFrom, x.UpdatedAt = at, at })
}

func (r *fakeAccountRepo) MarkEmailVerified(_ context.Context, id uuid.UUID, now time.Time) error {
	return r.update(id, func(x *models.Account) { x.EmailVerified, x.UpdatedAt = true, now })
}

func (r *fakeAccountRepo) MarkPhoneVerified(_ context.Context, id uuid.UUID, now time.Time) error {
	return r.update(id, func(x *models.Account) { x.PhoneVerified, x.UpdatedAt = true, now })
}

func (r *fakeAccountRepo) List(_ context.Context, f models.AccountFilter) ([]*models.Account, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []*models.Account
	for _, a := range r.byID {
		if f.Email != "" && !strings.Contains(a.Email, f.Email) {
			continue
		}
		if f.Role != "" && a.Role != f.Role {
			continue
		}
		cp := *a
		all = append(all, &cp)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	total := len(all)
	from := f.Offset()
	if from > total {
		from = total
	}
	to := from + f.PageSize
	if to > total {
		to = total
	}
	return all[from:to], total, nil
}

type fakeTOTPRepo struct {
	mu      sync.Mutex
	secrets map[uuid.UUID]models.TOTPSecret
}

func (r *fakeTOTPRepo) Get(_ context.Context, id uuid.UUID) (*models.TOTPSecret, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.secrets[id]
	if !ok {
		return nil, repositories.ErrNotFound
	}
	return &s, nil
}

func (r *fakeTOTPRepo) Upsert(_ context.Context, s *models.TOTPSecret) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.secrets == nil {
		r.secrets = map[uuid.UUID]models.TOTPSecret{}
	}
	r.secrets[s.AccountID] = *s
	return nil
}

type recordingQueue struct {
	mu   sync.Mutex
	sent []models.Notification
}

func (q *recordingQueue) Enqueue(n models.Notification) {
	q.mu.Lock()
	q.sent = append(q.sent, n)
	q.mu.Unlock()
}

func (q *recordingQueue) all() []models.Notification {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]models.Notification(nil), q.sent...)
}

// env wires real services over in-memory storage.
type env struct {
	clock    *fakeClock
	accounts *fakeAccountRepo
	tokens   *fakeTokenRepo
	queue    *recordingQueue
	creds    CredentialService
	sessions SessionService
	deps     Deps
	auth     AuthService
	user     UserService
}

func newEnv() *env {
	e := &env{
		clock:    newFakeClock(),
		accounts: newFakeAccountRepo(),
		tokens:   &fakeTokenRepo{},
		queue:    &recordingQueue{},
		creds:    NewCredentialService(4),
		sessions: NewSessionService("test-secret"),
	}
	log := zap.NewNop()
	e.deps = Deps{
		Accounts:      e.accounts,
		Tokens:        NewTokenService(e.tokens, DefaultTokenPolicies(), e.clock, log),
		Credentials:   e.creds,
		Sessions:      e.sessions,
		TOTP:          NewTOTPService(&fakeTOTPRepo{}, TOTPOptions{Issuer: "test", Skew: 1}, e.clock),
		Notifications: e.queue,
		Templates:     NewTemplates("test", "https://app.example.com"),
		Clock:         e.clock,
		Logger:        log,
	}
	e.auth = NewAuthService(e.deps)
	e.user = NewUserService(e.deps)
	return e
}

// seed stores a verified account with the given password.
func (e *env) seed(email, password string) *models.Account {
	hash, err := e.creds.Hash(password)
	if err != nil {
		panic(err)
	}
	a := models.NewAccount(models.AccountFields{Email: email}, hash, e.clock.Now())
	a.EmailVerified = true
	e.accounts.put(a)
	return a
}
