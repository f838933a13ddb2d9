// Package auth emite y verifica credenciales bearer (JWT HS256) y las
// resuelve a una Identity estable. La verificación es idempotente y sin
// efectos secundarios: se invoca una vez en el handshake y el resultado
// se cachea en la conexión para toda su vida.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/dropDatabas3/collabsql/internal/domain"
	"github.com/dropDatabas3/collabsql/internal/store"
	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Errores de verificación. Todos colapsan en Unauthenticated de cara al cliente.
var (
	ErrTokenMissing = errors.New("token missing")
	ErrTokenInvalid = errors.New("token invalid")
	ErrTokenExpired = errors.New("token expired")
	ErrUserDisabled = errors.New("user disabled")
)

// Verifier valida una credencial y la resuelve a una Identity.
type Verifier interface {
	Verify(ctx context.Context, credential string) (domain.Identity, error)
}

// TokenService firma y verifica JWTs HS256 con un secreto compartido.
type TokenService struct {
	secret []byte
	issuer string
	ttl    time.Duration
	users  store.UserStore
}

func NewTokenService(secret, issuer string, ttl time.Duration, users store.UserStore) *TokenService {
	return &TokenService{secret: []byte(secret), issuer: issuer, ttl: ttl, users: users}
}

// Sign emite un token para la identidad dada.
func (t *TokenService) Sign(id domain.Identity) (string, error) {
	now := time.Now()
	claims := jwtv5.MapClaims{
		"iss":      t.issuer,
		"sub":      id.ID,
		"email":    id.Email,
		"username": id.Username,
		"iat":      now.Unix(),
		"exp":      now.Add(t.ttl).Unix(),
	}
	return jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(t.secret)
}

// Verify valida firma, issuer y expiración, y chequea que la cuenta siga
// activa. Falla con ErrToken*/ErrUserDisabled según el caso.
func (t *TokenService) Verify(ctx context.Context, credential string) (domain.Identity, error) {
	credential = strings.TrimSpace(credential)
	if credential == "" {
		return domain.Identity{}, ErrTokenMissing
	}

	tok, err := jwtv5.Parse(credential,
		func(*jwtv5.Token) (any, error) { return t.secret, nil },
		jwtv5.WithValidMethods([]string{"HS256"}),
		jwtv5.WithIssuer(t.issuer),
	)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenExpired) {
			return domain.Identity{}, ErrTokenExpired
		}
		return domain.Identity{}, ErrTokenInvalid
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return domain.Identity{}, ErrTokenInvalid
	}
	sub, _ := claims["sub"].(string)
	email, _ := claims["email"].(string)
	username, _ := claims["username"].(string)
	if sub == "" {
		return domain.Identity{}, ErrTokenInvalid
	}

	// Una cuenta desactivada invalida el token aunque la firma sea buena.
	if t.users != nil {
		u, err := t.users.GetUserByID(ctx, sub)
		if err != nil {
			return domain.Identity{}, ErrTokenInvalid
		}
		if u.Status != "active" {
			return domain.Identity{}, ErrUserDisabled
		}
	}

	return domain.Identity{ID: sub, Email: email, Username: username}, nil
}
