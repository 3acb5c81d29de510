package authz

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/fatflowers/tgpass/pkg/config"
)

const (
	PermCreateOrder         = "Transaction:create:order"
	PermReadTransaction     = "Transaction:read"
	PermReadOwnTransaction  = "Transaction:read:own"
	PermUpgradeSubscription = "Subscription:upgrade"
	PermReadSubscription    = "Subscription:read"
	PermExtendSubscription  = "Subscription:extend"
	PermRevokeSubscription  = "Subscription:revoke"

	// PermAll grants every permission.
	PermAll = "*"
)

var (
	ErrMissingToken = errors.New("authz: missing bearer token")
	ErrInvalidToken = errors.New("authz: invalid token")
	ErrNoSecret     = errors.New("authz: jwt secret not configured")
)

// Claims are the custom claims carried by bearer tokens.
type Claims struct {
	UserID string `json:"uid"`
	Role   string `json:"role"`
	jwt.StandardClaims
}

// Principal is the authenticated caller.
type Principal struct {
	UserID string
	Role   string
}

// Authorizer answers whether a role holds a permission.
type Authorizer interface {
	Can(role, permission string) bool
}

type Service struct {
	secret []byte
	roles  map[string]map[string]struct{}
	log    *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) *Service {
	roles := make(map[string]map[string]struct{}, len(cfg.Auth.Roles))
	for role, perms := range cfg.Auth.Roles {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[strings.TrimSpace(p)] = struct{}{}
		}
		roles[strings.ToLower(role)] = set
	}
	if cfg.Auth.JWTSecret == "" {
		log.Warnw("auth.jwt_secret not set, protected routes reject every request")
	}
	return &Service{secret: []byte(cfg.Auth.JWTSecret), roles: roles, log: log}
}

func (s *Service) Can(role, permission string) bool {
	perms, ok := s.roles[strings.ToLower(role)]
	if !ok {
		return false
	}
	if _, ok := perms[PermAll]; ok {
		return true
	}
	_, ok = perms[permission]
	return ok
}

// Parse validates an HS256 token and returns its principal.
func (s *Service) Parse(token string) (*Principal, error) {
	if len(s.secret) == 0 {
		return nil, ErrNoSecret
	}
	if token == "" {
		return nil, ErrMissingToken
	}
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	if userID == "" {
		return nil, fmt.Errorf("%w: no subject", ErrInvalidToken)
	}
	return &Principal{UserID: userID, Role: claims.Role}, nil
}

// Issue signs a token for p valid for ttl.
func (s *Service) Issue(p Principal, ttl time.Duration) (string, error) {
	if len(s.secret) == 0 {
		return "", ErrNoSecret
	}
	now := time.Now()
	claims := &Claims{
		UserID: p.UserID,
		Role:   p.Role,
		StandardClaims: jwt.StandardClaims{
			Subject:   p.UserID,
			IssuedAt:  now.Unix(),
			ExpiresAt: now.Add(ttl).Unix(),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

var Module = fx.Options(
	fx.Provide(New),
	fx.Provide(func(s *Service) Authorizer { return s }),
)
