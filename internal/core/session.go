package core

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/oklog/ulid/v2"
)

// DefaultSessionTTL bounds the lifetime of a session token.
const DefaultSessionTTL = 12 * time.Hour

var (
	// ErrNoImpersonation is returned by Pop on a session that never switched.
	ErrNoImpersonation = errors.New("session is not impersonating another account")
	// ErrInvalidSession covers every token that fails to parse or verify.
	ErrInvalidSession = errors.New("invalid session")
)

// Claims are the session token claims. Stack holds the identity history:
// Stack[0] is who logged in, the last entry is who they are acting as.
type Claims struct {
	jwt.RegisteredClaims
	Stack []Principal `json:"stack"`
}

// Acting is the identity requests are evaluated as.
func (c *Claims) Acting() Principal { return c.Stack[len(c.Stack)-1] }

// True is the identity that authenticated.
func (c *Claims) True() Principal { return c.Stack[0] }

// SessionService issues and verifies HS256 session tokens and manages the
// impersonation stack they carry.
type SessionService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	now    func() time.Time
}

func NewSessionService(secret, issuer string, ttl time.Duration) *SessionService {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &SessionService{secret: []byte(secret), issuer: issuer, ttl: ttl, now: time.Now}
}

// Issue starts a new session for p.
func (s *SessionService) Issue(p Principal) (string, *Claims, error) {
	return s.sign([]Principal{p})
}

// Push switches the session to act as target, keeping every identity below it.
func (s *SessionService) Push(c *Claims, target Principal) (string, *Claims, error) {
	if c.Acting().ID == target.ID {
		return "", nil, fmt.Errorf("already acting as account %d", target.ID)
	}
	stack := make([]Principal, 0, len(c.Stack)+1)
	stack = append(stack, c.Stack...)
	stack = append(stack, target)
	return s.sign(stack)
}

// Pop returns to the identity below the acting one. The identity is left
// unchanged when nothing was pushed.
func (s *SessionService) Pop(c *Claims) (string, *Claims, error) {
	if len(c.Stack) <= 1 {
		return "", nil, ErrNoImpersonation
	}
	stack := make([]Principal, len(c.Stack)-1)
	copy(stack, c.Stack[:len(c.Stack)-1])
	return s.sign(stack)
}

// Parse verifies a token and returns its claims.
func (s *SessionService) Parse(token string) (*Claims, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSession, err)
	}
	if len(claims.Stack) == 0 {
		return nil, fmt.Errorf("%w: empty identity stack", ErrInvalidSession)
	}
	return claims, nil
}

func (s *SessionService) sign(stack []Principal) (string, *Claims, error) {
	now := s.now()
	acting := stack[len(stack)-1]
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(acting.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			ID:        ulid.Make().String(),
		},
		Stack: stack,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", nil, fmt.Errorf("sign session: %w", err)
	}
	return token, claims, nil
}
