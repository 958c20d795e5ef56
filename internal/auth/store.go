package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/kakomon/admin/internal/models"
)

var (
	// ErrCorruptSession is returned by Load when stored data cannot be decoded.
	ErrCorruptSession = errors.New("corrupt session data")
	// ErrSignedOut is returned by Load after an explicit logout.
	ErrSignedOut = errors.New("signed out")
)

// Store persists the session record. Load returns (nil, nil) when nothing
// is stored.
type Store interface {
	Load() (*models.User, error)
	Save(u *models.User) error
	Clear() error
}

func checkUser(u *models.User) error {
	if u == nil || u.Username == "" || !models.ValidRoles[u.Role] {
		return ErrCorruptSession
	}
	return nil
}

// ── FileStore ─────────────────────────────────────────

// FileStore keeps the session as a JSON file. The CLI uses it.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (*models.User, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read session: %w", err)
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if err := checkUser(&u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (s *FileStore) Save(u *models.User) error {
	data, err := json.MarshalIndent(u, "", "  ")
	if err != nil {
		return err
	}
	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create session dir: %w", err)
		}
	}
	return os.WriteFile(s.Path, data, 0o600)
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// ── CookieStore ───────────────────────────────────────

// SessionCodec signs session records as HS256 tokens.
type SessionCodec struct {
	secret []byte
	name   string
	ttl    time.Duration
	now    func() time.Time
}

const defaultSessionTTL = 30 * 24 * time.Hour

func NewSessionCodec(secret, cookieName string) *SessionCodec {
	return &SessionCodec{secret: []byte(secret), name: cookieName, ttl: defaultSessionTTL, now: time.Now}
}

func (c *SessionCodec) CookieName() string { return c.name }

type sessionClaims struct {
	User models.User `json:"user"`
	jwt.RegisteredClaims
}

func (c *SessionCodec) Encode(u *models.User) (string, error) {
	now := c.now()
	claims := sessionClaims{
		User: *u,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   u.Username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

func (c *SessionCodec) Decode(raw string) (*models.User, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(c.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptSession, err)
	}
	if err := checkUser(&claims.User); err != nil {
		return nil, err
	}
	return &claims.User, nil
}

// CookieStore is a Store bound to one request/response pair.
type CookieStore struct {
	codec *SessionCodec
	w     http.ResponseWriter
	r     *http.Request
}

func NewCookieStore(codec *SessionCodec, w http.ResponseWriter, r *http.Request) *CookieStore {
	return &CookieStore{codec: codec, w: w, r: r}
}

func (s *CookieStore) signedOutName() string { return s.codec.name + "_out" }

func (s *CookieStore) Load() (*models.User, error) {
	c, err := s.r.Cookie(s.codec.name)
	if err != nil || c.Value == "" {
		if _, err := s.r.Cookie(s.signedOutName()); err == nil {
			return nil, ErrSignedOut
		}
		return nil, nil
	}
	return s.codec.Decode(c.Value)
}

func (s *CookieStore) Save(u *models.User) error {
	token, err := s.codec.Encode(u)
	if err != nil {
		return fmt.Errorf("sign session: %w", err)
	}
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.codec.name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.codec.ttl.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	s.expire(s.signedOutName())
	return nil
}

// Clear drops the session and leaves a browser-session marker so the next
// page load shows the login form instead of starting a new guest session.
func (s *CookieStore) Clear() error {
	s.expire(s.codec.name)
	http.SetCookie(s.w, &http.Cookie{
		Name:     s.signedOutName(),
		Value:    "1",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (s *CookieStore) expire(name string) {
	http.SetCookie(s.w, &http.Cookie{Name: name, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
}
