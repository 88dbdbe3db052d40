// Package session keeps the signed-in users of the storefront.
//
// There is no real authentication here: passwords are checked for shape only and
// are never stored, and sessions live in memory with no expiry. Each session owns
// the catalog view its pages render.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"log/slog"

	"github.com/google/uuid"
	"github.com/icco/kodflex/lib/catalog"
	"github.com/icco/kodflex/lib/metrics"
	"github.com/icco/kodflex/lib/validation"
	"github.com/icco/kodflex/models"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrEmailTaken         = errors.New("an account with this email already exists")
	ErrNotFound           = errors.New("session not found")

	// ErrStorage wraps failures of the user directory itself.
	ErrStorage = errors.New("user directory unavailable")
)

// Profile is what the registration form collects.
type Profile struct {
	Name        string
	Email       string
	Password    string
	PhoneNumber string
}

// Session is one signed-in browser.
type Session struct {
	ID      string
	Name    string
	Email   string
	Catalog *catalog.Aggregator
}

// ViewFactory builds the catalog view for a new session.
type ViewFactory func() *catalog.Aggregator

type Manager struct {
	db      *gorm.DB
	logger  *slog.Logger
	newView ViewFactory

	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewManager(db *gorm.DB, logger *slog.Logger, newView ViewFactory) *Manager {
	return &Manager{
		db:       db,
		logger:   logger,
		newView:  newView,
		sessions: make(map[string]*Session),
	}
}

// Register stores the profile and signs the new user in.
func (m *Manager) Register(ctx context.Context, p Profile) (*Session, error) {
	if err := validation.ValidateName(p.Name); err != nil {
		return nil, err
	}
	email, err := validation.ValidateEmail(p.Email)
	if err != nil {
		return nil, err
	}
	if err := validation.ValidatePassword(p.Password); err != nil {
		return nil, err
	}

	user := models.User{
		Name:        strings.TrimSpace(p.Name),
		Email:       email,
		PhoneNumber: strings.TrimSpace(p.PhoneNumber),
	}

	err = m.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
			return fmt.Errorf("%w: failed to check email: %w", ErrStorage, err)
		}
		if count > 0 {
			return ErrEmailTaken
		}
		if err := tx.Create(&user).Error; err != nil {
			// Another registration for the same email won the race.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEmailTaken
			}
			return fmt.Errorf("%w: failed to create user: %w", ErrStorage, err)
		}
		return nil
	})
	if errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrStorage) {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStorage, err)
	}

	m.logger.InfoContext(ctx, "Registered user", slog.Uint64("user_id", uint64(user.ID)))
	return m.start(user), nil
}

// Login signs in a registered user.
func (m *Manager) Login(ctx context.Context, email, password string) (*Session, error) {
	email, err := validation.ValidateEmail(email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	if err := validation.ValidatePassword(password); err != nil {
		return nil, ErrInvalidCredentials
	}

	var user models.User
	if err := m.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("%w: failed to look up user: %w", ErrStorage, err)
	}

	return m.start(user), nil
}

// Logout drops the session and its catalog view. Unknown ids are ignored.
func (m *Manager) Logout(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		delete(m.sessions, id)
		metrics.ActiveSessions.Dec()
	}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return s, nil
}

func (m *Manager) start(user models.User) *Session {
	s := &Session{
		ID:      uuid.NewString(),
		Name:    user.Name,
		Email:   user.Email,
		Catalog: m.newView(),
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	metrics.ActiveSessions.Inc()

	return s
}
