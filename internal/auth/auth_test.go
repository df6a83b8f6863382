package auth

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scrubbe-dev/incident-service/internal/domain"
	apperrors "github.com/scrubbe-dev/incident-service/pkg/util/errorutil"
)

type stubMembers struct {
	members map[string]domain.Member
}

func (s stubMembers) GetUserByID(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s stubMembers) GetUserByEmail(context.Context, string) (*domain.User, error) {
	return nil, pgx.ErrNoRows
}

func (s stubMembers) GetMembership(_ context.Context, businessID, userID string) (*domain.Member, error) {
	m, ok := s.members[businessID+"/"+userID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &m, nil
}

func newTestApp(mw *AuthMiddleware, extra ...fiber.Handler) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
		return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
	}})
	handlers := append([]fiber.Handler{mw.Handle}, extra...)
	handlers = append(handlers, func(c *fiber.Ctx) error {
		p, _ := PrincipalFromContext(c)
		return c.JSON(p)
	})
	app.Get("/me", handlers...)
	return app
}

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	token, exp, err := tm.GenerateToken("user-1", "biz-1")
	require.NoError(t, err)
	assert.False(t, exp.IsZero())

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.Subject)
	assert.Equal(t, "biz-1", claims.BusinessID)
}

func signed(t *testing.T, claims *Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	valid := func() jwt.RegisteredClaims {
		return jwt.RegisteredClaims{
			Issuer:    TokenIssuer,
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
		}
	}

	tests := []struct {
		name   string
		claims func() *Claims
	}{
		{name: "missing business", claims: func() *Claims { return &Claims{RegisteredClaims: valid()} }},
		{name: "missing subject", claims: func() *Claims {
			rc := valid()
			rc.Subject = ""
			return &Claims{BusinessID: "biz-1", RegisteredClaims: rc}
		}},
		{name: "foreign issuer", claims: func() *Claims {
			rc := valid()
			rc.Issuer = "someone-else"
			return &Claims{BusinessID: "biz-1", RegisteredClaims: rc}
		}},
		{name: "expired", claims: func() *Claims {
			rc := valid()
			rc.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Hour))
			return &Claims{BusinessID: "biz-1", RegisteredClaims: rc}
		}},
		{name: "no expiry", claims: func() *Claims {
			rc := valid()
			rc.ExpiresAt = nil
			return &Claims{BusinessID: "biz-1", RegisteredClaims: rc}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tm.ParseToken(signed(t, tt.claims()))
			assert.Error(t, err)
		})
	}

	_, err := tm.ParseToken(signed(t, &Claims{BusinessID: "biz-1", RegisteredClaims: valid()}))
	assert.NoError(t, err)
}

func TestGenerateTokenRequiresScope(t *testing.T) {
	_, _, err := NewTokenManager("secret", 5).GenerateToken("user-1", "")
	assert.Error(t, err)
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("other", 5).GenerateToken("user-1", "biz-1")
	require.NoError(t, err)
	_, err = NewTokenManager("secret", 5).ParseToken(token)
	assert.Error(t, err)
}

func TestMiddleware(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	members := stubMembers{members: map[string]domain.Member{
		"biz-1/user-1": {UserID: "user-1", BusinessID: "biz-1", Email: "a@x.io", Role: domain.MemberRoleViewer},
	}}
	app := newTestApp(NewAuthMiddleware(tm, members))

	member, _, err := tm.GenerateToken("user-1", "biz-1")
	require.NoError(t, err)
	stranger, _, err := tm.GenerateToken("user-1", "biz-2")
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", fiber.StatusUnauthorized},
		{"wrong scheme", "Basic abc", fiber.StatusUnauthorized},
		{"garbage token", "Bearer nope", fiber.StatusUnauthorized},
		{"not a member", "Bearer " + stranger, fiber.StatusUnauthorized},
		{"member", "Bearer " + member, fiber.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/me", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tm := NewTokenManager("secret", 5)
	members := stubMembers{members: map[string]domain.Member{
		"biz-1/viewer":    {UserID: "viewer", BusinessID: "biz-1", Role: domain.MemberRoleViewer},
		"biz-1/responder": {UserID: "responder", BusinessID: "biz-1", Role: domain.MemberRoleResponder},
	}}
	app := newTestApp(NewAuthMiddleware(tm, members), RequireRole(ResponderRoles...))

	for user, want := range map[string]int{"viewer": fiber.StatusForbidden, "responder": fiber.StatusOK} {
		token, _, err := tm.GenerateToken(user, "biz-1")
		require.NoError(t, err)
		req := httptest.NewRequest("GET", "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, want, resp.StatusCode, user)
	}
}

func TestRequireSharedSecret(t *testing.T) {
	build := func(secret string) *fiber.App {
		app := fiber.New(fiber.Config{ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.SendStatus(apperrors.ToDomainError(err).HTTPStatus)
		}})
		app.Post("/hook", RequireSharedSecret(secret), func(c *fiber.Ctx) error { return c.SendStatus(fiber.StatusAccepted) })
		return app
	}

	tests := []struct {
		name   string
		secret string
		header string
		status int
	}{
		{"disabled", "", "anything", fiber.StatusForbidden},
		{"wrong secret", "s3cret", "guess", fiber.StatusUnauthorized},
		{"correct secret", "s3cret", "s3cret", fiber.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("POST", "/hook", nil)
			req.Header.Set(IntegrationSecretHeader, tt.header)
			resp, err := build(tt.secret).Test(req)
			require.NoError(t, err)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
