package middleware

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edudonor/donation-api/internal/api/handler/v1/response"
	"github.com/edudonor/donation-api/internal/domain"
	"github.com/edudonor/donation-api/internal/pkg/jwthelper"
	"github.com/edudonor/donation-api/internal/service"
)

const identityKey = "identity"

var (
	errMissingToken = errors.New("missing bearer token")
	errNotAdmin     = errors.New("administrator access required")
)

// UserLookup resolves the user a token was issued for, so a deleted account
// or revoked admin flag takes effect on the next request.
type UserLookup interface {
	GetUser(ctx context.Context, id uint) (domain.User, error)
}

type Authenticator struct {
	key   []byte
	users UserLookup
}

func NewAuthenticator(key string, users UserLookup) *Authenticator {
	return &Authenticator{
		key:   []byte(key),
		users: users,
	}
}

// VerifyJWT rejects requests without a valid bearer token.
func (a *Authenticator) VerifyJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity, err := a.authenticate(ctx)
		if err != nil {
			renderAuthErr(ctx, err)
			return
		}

		ctx.Set(identityKey, identity)
		ctx.Next()
	}
}

// TryJWT lets requests without a token through anonymously. A token that is
// present must still resolve to a user.
func (a *Authenticator) TryJWT() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity, err := a.authenticate(ctx)
		switch {
		case errors.Is(err, errMissingToken):
		case err != nil:
			renderAuthErr(ctx, err)
			return
		default:
			ctx.Set(identityKey, identity)
		}
		ctx.Next()
	}
}

// renderAuthErr answers 401 for bad credentials and 503 when the user store
// could not be reached.
func renderAuthErr(ctx *gin.Context, err error) {
	if errors.Is(err, errMissingToken) ||
		errors.Is(err, jwthelper.ErrInvalidToken) ||
		errors.Is(err, service.ErrUserNotFound) {
		response.RenderErr(ctx, response.ErrUnauthorized(err))
		return
	}
	response.RenderErr(ctx, response.ErrIdentityUnavailable(err))
}

// RequireAdmin must run after VerifyJWT.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		identity := IdentityFrom(ctx)
		if identity == nil {
			response.RenderErr(ctx, response.ErrUnauthorized(errMissingToken))
			return
		}
		if !identity.IsAdmin {
			response.RenderErr(ctx, response.ErrPermissionDenied(errNotAdmin))
			return
		}
		ctx.Next()
	}
}

func (a *Authenticator) authenticate(ctx *gin.Context) (domain.Identity, error) {
	token, ok := bearerToken(ctx)
	if !ok {
		return domain.Identity{}, errMissingToken
	}

	claims, err := jwthelper.ParseToken(a.key, token)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("jwthelper.ParseToken -> %w", err)
	}

	user, err := a.users.GetUser(ctx.Request.Context(), claims.UserID)
	if err != nil {
		return domain.Identity{}, fmt.Errorf("a.users.GetUser -> %w", err)
	}

	return user.Identity(), nil
}

// bearerToken reads the Authorization header, falling back to the token query
// parameter for websocket clients that cannot set headers.
func bearerToken(ctx *gin.Context) (string, bool) {
	header := ctx.GetHeader("Authorization")
	if header != "" {
		scheme, token, found := strings.Cut(header, " ")
		if !found || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			return "", false
		}
		return strings.TrimSpace(token), true
	}

	if token := ctx.Query("token"); token != "" {
		return token, true
	}

	return "", false
}

// IdentityFrom returns the authenticated identity, or nil for anonymous
// requests.
func IdentityFrom(ctx *gin.Context) *domain.Identity {
	v, ok := ctx.Get(identityKey)
	if !ok {
		return nil
	}
	identity, ok := v.(domain.Identity)
	if !ok {
		return nil
	}
	return &identity
}
