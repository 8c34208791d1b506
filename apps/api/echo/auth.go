package echoapi

import (
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/member"
)

const (
	contextClaimsKey = "memberClaims"
	contextMemberKey = "member"
	authScheme       = "Bearer"
	tokenAudience    = "GleeWorld"
)

// Claims represents the authorization claims transmitted via a JWT.
type Claims struct {
	jwt.RegisteredClaims
	OrigIssuedAt int64    `json:"oriat,omitempty"`
	Email        string   `json:"email,omitempty"`
	FullName     string   `json:"full_name,omitempty"`
	IsAdmin      bool     `json:"is_admin,omitempty"`
	IsExecBoard  bool     `json:"is_exec_board,omitempty"`
	Roles        []string `json:"roles,omitempty"`
}

// Auth signs and verifies the HS256 access tokens of the API.
type Auth struct {
	issuer       string
	key          []byte
	expiration   time.Duration
	refreshLimit time.Duration
}

func NewAuth(conf *core.Config) *Auth {
	return &Auth{
		issuer:       conf.AppName,
		key:          []byte(conf.SecretKey),
		expiration:   conf.Server.JWTExpirationDelta,
		refreshLimit: conf.Server.JWTRefreshExpirationDelta,
	}
}

// MemberClaims builds the claims of m. origIat carries the original issue time across refreshes.
func (a *Auth) MemberClaims(m member.Member, origIat ...int64) *Claims {
	now := core.NowFunc()
	oriat := now.Unix()
	if len(origIat) > 0 {
		oriat = origIat[0]
	}

	return &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    a.issuer,
			Subject:   m.ID,
			Audience:  jwt.ClaimStrings{tokenAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(a.expiration)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		OrigIssuedAt: oriat,
		Email:        m.Email,
		FullName:     m.FullName,
		IsAdmin:      m.IsAdmin(),
		IsExecBoard:  m.IsExec(),
		Roles:        m.Roles,
	}
}

// GenerateToken generates a signed JWT token string representing the member Claims.
func (a *Auth) GenerateToken(claims *Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	ss, err := token.SignedString(a.key)
	if err != nil {
		return "", errors.Wrap(err, "signing token")
	}
	return ss, nil
}

func (a *Auth) parse(tokenStr string) (*Claims, error) {
	claims := new(Claims)
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, errors.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return a.key, nil
	})
	if err != nil || !token.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// Middleware authenticates the request from its bearer token.
func (a *Auth) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			header := ctx.Request().Header.Get(echo.HeaderAuthorization)
			l := len(authScheme)
			if len(header) <= l+1 || !strings.EqualFold(header[:l], authScheme) || header[l] != ' ' {
				return errMissingToken
			}
			claims, err := a.parse(strings.TrimSpace(header[l+1:]))
			if err != nil {
				return err
			}
			ctx.Set(contextClaimsKey, claims)
			return next(ctx)
		}
	}
}

func (a *Auth) authenticate(ctx echo.Context, email, pwd string, svc *member.Service) (*Claims, error) {
	m, err := svc.GetByEmail(ctx.Request().Context(), email)
	if err != nil {
		if errors.Cause(err) == member.ErrNotFound {
			return nil, errAuthenticationFailed
		}
		return nil, errors.Wrap(err, "finding member by email")
	}
	if err = m.CheckPassword(pwd); err != nil {
		return nil, errAuthenticationFailed
	}
	if !m.Active() {
		return nil, errAccountDeactivated
	}
	m, err = svc.SetLastLogin(ctx.Request().Context(), m)
	if err != nil {
		return nil, errors.Wrap(err, "setting lastLogin")
	}
	return a.MemberClaims(m), nil
}

func (a *Auth) refreshToken(ctx echo.Context, svc *member.Service) (string, error) {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return "", errors.Wrap(err, "getting context claims")
	}

	m, err := getContextMember(ctx, svc)
	if err != nil {
		return "", errors.Wrap(err, "getting context member")
	}

	// check if member is still active
	if !m.Active() {
		return "", errAccountDeactivated
	}

	// check if refresh has not expired
	expTime := time.Unix(claims.OrigIssuedAt, 0).Add(a.refreshLimit)
	if core.NowFunc().After(expTime) {
		return "", errRefreshExpired
	}

	token, err := a.GenerateToken(a.MemberClaims(m, claims.OrigIssuedAt))
	return token, errors.Wrap(err, "generating token")
}

func getContextClaims(ctx echo.Context) (*Claims, error) {
	if claims, ok := ctx.Get(contextClaimsKey).(*Claims); ok {
		return claims, nil
	}
	return nil, errUnauthorized
}

// getContextMember loads the authenticated member once per request.
func getContextMember(ctx echo.Context, svc *member.Service) (member.Member, error) {
	if m, ok := ctx.Get(contextMemberKey).(member.Member); ok {
		return m, nil
	}
	claims, err := getContextClaims(ctx)
	if err != nil {
		return member.Member{}, err
	}
	m, err := svc.GetByID(ctx.Request().Context(), claims.Subject)
	if err != nil {
		if errors.Cause(err) == member.ErrNotFound {
			return member.Member{}, errUnauthorized
		}
		return member.Member{}, errors.Wrap(err, "finding member by ID")
	}
	if !m.Active() {
		return member.Member{}, errAccountDeactivated
	}
	ctx.Set(contextMemberKey, m)
	return m, nil
}

func contextHasAnyRole(ctx echo.Context, roles []string) bool {
	if len(roles) == 0 {
		return true
	}
	if claims, err := getContextClaims(ctx); err == nil {
		for _, role := range roles {
			for _, have := range claims.Roles {
				if strings.HasPrefix(have, role) {
					return true
				}
			}
		}
	}
	return false
}
