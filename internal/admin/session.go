package admin

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidCredentials means the admin login failed.
	ErrInvalidCredentials = errors.New("invalid admin credentials")
	// ErrSessionExpired means the admin session is absent, stale, or expired.
	// Every admin-privileged mutation fails closed on it.
	ErrSessionExpired = errors.New("admin session expired")
)

// Session is the explicit admin-session value threaded into every
// admin-privileged call. It is independent of platform user identity: an
// operator holds one regardless of whether they are logged in as a shopper.
// There is no ambient singleton; callers that do not pass a live Session are
// rejected.
type Session struct {
	AdminID   uuid.UUID
	Email     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Live reports whether the session is usable at the given instant. Checked by
// the issuance service on every write, not just at parse time, so a session
// expiring mid-workflow fails the next mutation.
func (s *Session) Live(now time.Time) bool {
	return s != nil && now.Before(s.ExpiresAt)
}

type sessionClaims struct {
	AdminID uuid.UUID `json:"admin_id"`
	Email   string    `json:"email"`
	jwt.RegisteredClaims
}

// SessionService issues and parses admin session tokens. The signing secret is
// separate from the platform JWT secret; neither token is valid for the other
// surface.
type SessionService struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewSessionService creates an admin session service.
func NewSessionService(secret string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SessionService{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue creates a session token for a logged-in admin.
func (s *SessionService) Issue(adminID uuid.UUID, email string) (string, *Session, error) {
	now := s.now()
	sess := &Session{
		AdminID:   adminID,
		Email:     email,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.ttl),
	}
	claims := sessionClaims{
		AdminID: adminID,
		Email:   email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        uuid.New().String(),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, err
	}
	return token, sess, nil
}

// Parse validates a token and returns the Session it carries.
func (s *SessionService) Parse(tokenString string) (*Session, error) {
	token, err := jwt.ParseWithClaims(tokenString, &sessionClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrSessionExpired
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, ErrSessionExpired
	}
	claims, ok := token.Claims.(*sessionClaims)
	if !ok || !token.Valid {
		return nil, ErrSessionExpired
	}
	sess := &Session{
		AdminID:   claims.AdminID,
		Email:     claims.Email,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}
	if !sess.Live(s.now()) {
		return nil, ErrSessionExpired
	}
	return sess, nil
}
