package echoapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/trezcool/edudesk/core"
	"github.com/trezcool/edudesk/core/user"
)

const sessionCookie = "sessionid"

var errNoSession = errors.New("no session")

// sessionClaims are the claims of the signed session token kept in the session cookie.
type sessionClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role,omitempty"`
}

type sessionManager struct {
	key      []byte
	issuer   string
	lifetime time.Duration
	secure   bool
}

func newSessionManager(conf *core.Config) sessionManager {
	return sessionManager{
		key:      []byte(conf.SecretKey),
		issuer:   conf.AppName,
		lifetime: conf.Server.SessionLifetime,
		secure:   conf.Server.SecureCookies,
	}
}

func (sm sessionManager) newToken(usr user.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sm.issuer,
			Subject:   strconv.Itoa(usr.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sm.lifetime)),
		},
		Role: usr.Role.String(),
	}
	ss, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(sm.key)
	return ss, errors.Wrap(err, "signing session token")
}

// parseToken returns the id of the user the token was issued to.
func (sm sessionManager) parseToken(token string) (int, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(
		token,
		&claims,
		func(*jwt.Token) (interface{}, error) { return sm.key, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(sm.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return 0, errors.Wrap(err, "parsing session token")
	}
	id, err := strconv.Atoi(claims.Subject)
	return id, errors.Wrap(err, "parsing session subject")
}

// start binds a new session to usr.
func (sm sessionManager) start(ctx echo.Context, usr user.User) error {
	token, err := sm.newToken(usr)
	if err != nil {
		return err
	}
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(sm.lifetime.Seconds()),
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// userID returns the id of the session user, or errNoSession.
func (sm sessionManager) userID(ctx echo.Context) (int, error) {
	cookie, err := ctx.Cookie(sessionCookie)
	if err != nil || cookie.Value == "" {
		return 0, errNoSession
	}
	return sm.parseToken(cookie.Value)
}

func (sm sessionManager) clear(ctx echo.Context) {
	ctx.SetCookie(&http.Cookie{
		Name:     sessionCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   sm.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
