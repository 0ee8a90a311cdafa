package store

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/crypto/bcrypt"

	"github.com/sells-group/event-planner/internal/model"
)

// MinPasswordLen is the shortest password CreateUser accepts.
const MinPasswordLen = 8

var (
	// ErrNotFound is returned when an event, user or service line does not exist.
	ErrNotFound = eris.New("store: not found")
	// ErrEmailTaken is returned by CreateUser for a duplicate email.
	ErrEmailTaken = eris.New("store: email already registered")
	// ErrInvalidCredentials is returned by Authenticate on a bad email or password.
	ErrInvalidCredentials = eris.New("store: invalid email or password")
)

// Store defines the persistence interface for event plans and users.
type Store interface {
	// Users
	CreateUser(ctx context.Context, email, password string) (*model.User, error)
	Authenticate(ctx context.Context, email, password string) (*model.User, error)

	// Events
	CreateEvent(ctx context.Context, ev *model.EventPlan) (*model.EventPlan, error)
	GetEvent(ctx context.Context, eventID string) (*model.EventPlan, error)
	ListEventsByUser(ctx context.Context, userID string) ([]model.EventPlan, error)
	UpdateServices(ctx context.Context, eventID string, services []model.ServiceLine) error
	UpdateServiceProvider(ctx context.Context, eventID, serviceName string, p *model.Provider) error
	UpdateInvitation(ctx context.Context, eventID string, inv *model.Invitation) error

	// Discovery cache
	GetCachedDiscovery(ctx context.Context, key string) ([]model.Provider, bool, error)
	SetCachedDiscovery(ctx context.Context, key string, providers []model.Provider, ttl time.Duration) error
	DeleteExpiredDiscoveries(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashPassword(email, password string) (string, error) {
	if email == "" || !strings.Contains(email, "@") {
		return "", eris.Errorf("store: invalid email %q", email)
	}
	if len(password) < MinPasswordLen {
		return "", eris.Errorf("store: password must be at least %d characters", MinPasswordLen)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", eris.Wrap(err, "store: hash password")
	}
	return string(hash), nil
}

func checkPassword(u *model.User, password string) (*model.User, error) {
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return u, nil
}

// prepareEvent fills the id and timestamps of a new event and repairs any
// service line whose status disagrees with its selected provider.
func prepareEvent(ev *model.EventPlan, id string, now time.Time) *model.EventPlan {
	out := *ev
	if out.ID == "" {
		out.ID = id
	}
	out.CreatedAt = now
	out.UpdatedAt = now
	out.Services = normalizeServices(ev.Services)
	return &out
}

func normalizeServices(services []model.ServiceLine) []model.ServiceLine {
	out := make([]model.ServiceLine, len(services))
	for i, s := range services {
		out[i] = s
		out[i].Select(s.SelectedProvider)
	}
	return out
}

// applyProvider sets or clears the provider on the named service line.
// Applying the same value twice leaves the same state.
func applyProvider(services []model.ServiceLine, eventID, serviceName string, p *model.Provider) ([]model.ServiceLine, error) {
	i := model.FindService(services, serviceName)
	if i < 0 {
		return nil, eris.Wrapf(ErrNotFound, "service %q on event %s", serviceName, eventID)
	}
	out := append([]model.ServiceLine(nil), services...)
	out[i].Select(p)
	return out, nil
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*PostgresStore)(nil)
)
