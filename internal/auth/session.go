package auth

import (
	"sync"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/kakomon/admin/internal/models"
)

type State string

const (
	StateLoading   State = "loading"
	StateGuest     State = "guest"
	StateUser      State = "user"
	StateAdmin     State = "admin"
	StateSignedOut State = "signed_out"
)

// ── Credentials ───────────────────────────────────────

type account struct {
	hash []byte
	user models.User
}

var (
	accountsOnce sync.Once
	accounts     map[string]account
	dummyHash    []byte
)

// The credential table is fixed. Hashes are computed once on first use so
// plain passwords are only ever compared through bcrypt.
func loadAccounts() {
	accountsOnce.Do(func() {
		hash := func(pw string) []byte {
			h, err := bcrypt.GenerateFromPassword([]byte(pw), bcrypt.MinCost)
			if err != nil {
				panic(err)
			}
			return h
		}
		accounts = map[string]account{
			"admin": {hash: hash("admin123"), user: models.User{ID: 1, Username: "admin", Role: models.RoleAdmin, Email: "admin@example.com"}},
			"user":  {hash: hash("user123"), user: models.User{ID: 2, Username: "user", Role: models.RoleUser, Email: "user@example.com"}},
		}
		dummyHash = hash("not-a-real-password")
	})
}

func checkCredentials(username, password string) (*models.User, bool) {
	loadAccounts()
	acct, ok := accounts[username]
	if !ok {
		// same cost as a wrong password
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return nil, false
	}
	if err := bcrypt.CompareHashAndPassword(acct.hash, []byte(password)); err != nil {
		return nil, false
	}
	u := acct.user
	return &u, true
}

// ── Manager ───────────────────────────────────────────

// Manager is the session state machine for one client. It is not safe for
// concurrent use; each request (or CLI invocation) gets its own.
type Manager struct {
	store Store
	user  *models.User
	state State
	log   *zap.Logger
}

func NewManager(store Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{store: store, state: StateLoading, log: log}
}

// Bootstrap restores the stored session. Missing or unreadable data is
// replaced by a fresh guest session, which is persisted. A store that
// reports ErrSignedOut leaves the manager signed out.
func (m *Manager) Bootstrap() *models.User {
	u, err := m.store.Load()
	switch {
	case err == ErrSignedOut:
		m.user = nil
		m.state = StateSignedOut
		return nil
	case err != nil:
		m.log.Warn("discarding stored session", zap.Error(err))
		u = nil
	}
	if u == nil {
		u = models.GuestUser()
		if err := m.store.Save(u); err != nil {
			m.log.Warn("persist guest session", zap.Error(err))
		}
	}
	m.set(u)
	return u
}

// Login accepts only the fixed credential table.
func (m *Manager) Login(username, password string) bool {
	u, ok := checkCredentials(username, password)
	if !ok {
		m.log.Info("login rejected", zap.String("username", username))
		return false
	}
	if err := m.store.Save(u); err != nil {
		m.log.Warn("persist session", zap.Error(err))
	}
	m.set(u)
	m.log.Info("login", zap.String("username", u.Username), zap.String("role", string(u.Role)))
	return true
}

func (m *Manager) LoginAsGuest() {
	u := models.GuestUser()
	if err := m.store.Save(u); err != nil {
		m.log.Warn("persist guest session", zap.Error(err))
	}
	m.set(u)
}

func (m *Manager) Logout() {
	if err := m.store.Clear(); err != nil {
		m.log.Warn("clear session", zap.Error(err))
	}
	m.user = nil
	m.state = StateSignedOut
}

func (m *Manager) User() *models.User { return m.user }
func (m *Manager) State() State       { return m.state }

func (m *Manager) set(u *models.User) {
	m.user = u
	switch u.Role {
	case models.RoleAdmin:
		m.state = StateAdmin
	case models.RoleUser:
		m.state = StateUser
	default:
		m.state = StateGuest
	}
}
