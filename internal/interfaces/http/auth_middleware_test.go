package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/facturacion-sri/internal/application/dto"
	"github.com/jhoicas/facturacion-sri/internal/domain/entity"
	apphttp "github.com/jhoicas/facturacion-sri/internal/interfaces/http"
	pkgjwt "github.com/jhoicas/facturacion-sri/pkg/jwt"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────────────────────────────────

const (
	mwSecret = "secreto-middleware"
	mwUserID = "00000000-0000-0000-0000-0000000000b1"
	mwEmail  = "revisor@andes.ec"
)

// principalApp expone el principal resuelto por los middlewares en /api/admin/whoami.
func principalApp(roles ...string) *fiber.App {
	app := fiber.New()
	admin := app.Group("/api/admin", apphttp.AuthMiddleware(mwSecret), apphttp.RequireRole(roles...))
	admin.Get("/whoami", func(c *fiber.Ctx) error {
		p := apphttp.GetPrincipal(c)
		return c.JSON(fiber.Map{
			"user_id":  p.UserID,
			"email":    p.Email,
			"role":     p.Role,
			"is_admin": p.IsAdmin(),
		})
	})
	return app
}

func bearer(t *testing.T, secret, role string, expMin int) string {
	t.Helper()
	tok, err := pkgjwt.Generate(secret, mwUserID, mwEmail, role, "facturacion-sri", expMin)
	require.NoError(t, err)
	return "Bearer " + tok
}

func whoami(t *testing.T, app *fiber.App, header string) (int, []byte) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/api/admin/whoami", nil)
	if header != "" {
		req.Header.Set("Authorization", header)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var raw json.RawMessage
	_ = json.NewDecoder(resp.Body).Decode(&raw)
	return resp.StatusCode, raw
}

// ──────────────────────────────────────────────────────────────────────────────
// AuthMiddleware + RequireRole
// ──────────────────────────────────────────────────────────────────────────────

func TestAuthMiddleware_RechazosDevuelvenCodigo(t *testing.T) {
	cases := []struct {
		name   string
		header func(t *testing.T) string
		status int
		code   string
	}{
		{"sin cabecera", func(*testing.T) string { return "" }, http.StatusUnauthorized, "MISSING_TOKEN"},
		{"esquema distinto de Bearer", func(*testing.T) string { return "Basic dXNlcjpwYXNz" }, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"token malformado", func(*testing.T) string { return "Bearer no.es.jwt" }, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"token vencido", func(t *testing.T) string { return bearer(t, mwSecret, entity.RoleAdmin, -1) }, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"firmado con otro secreto", func(t *testing.T) string { return bearer(t, "otro-secreto", entity.RoleAdmin, 60) }, http.StatusUnauthorized, "INVALID_TOKEN"},
		{"token sin rol", func(t *testing.T) string { return bearer(t, mwSecret, "", 60) }, http.StatusUnauthorized, "MISSING_ROLE"},
		{"rol no permitido", func(t *testing.T) string { return bearer(t, mwSecret, entity.RoleUser, 60) }, http.StatusForbidden, "FORBIDDEN"},
	}

	app := principalApp(entity.RoleAdmin)
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			status, raw := whoami(t, app, tc.header(t))
			assert.Equal(t, tc.status, status)

			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tc.code, body.Code)
			assert.NotEmpty(t, body.Message)
		})
	}
}

func TestAuthMiddleware_PrincipalDesdeClaims(t *testing.T) {
	app := principalApp(entity.RoleAdmin)
	status, raw := whoami(t, app, bearer(t, mwSecret, entity.RoleAdmin, 60))
	require.Equal(t, http.StatusOK, status)

	var body struct {
		UserID  string `json:"user_id"`
		Email   string `json:"email"`
		Role    string `json:"role"`
		IsAdmin bool   `json:"is_admin"`
	}
	require.NoError(t, json.Unmarshal(raw, &body))
	assert.Equal(t, mwUserID, body.UserID)
	assert.Equal(t, mwEmail, body.Email)
	assert.Equal(t, entity.RoleAdmin, body.Role)
	assert.True(t, body.IsAdmin)
}

func TestRequireRole_VariosRolesPermitidos(t *testing.T) {
	app := principalApp(entity.RoleAdmin, entity.RoleUser)

	status, raw := whoami(t, app, bearer(t, mwSecret, entity.RoleUser, 60))
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(raw), `"is_admin":false`, "un user pasa pero no es administrador")

	status, _ = whoami(t, app, bearer(t, mwSecret, "auditor", 60))
	assert.Equal(t, http.StatusForbidden, status)
}

func TestGetPrincipal_SinMiddlewareEsAnonimo(t *testing.T) {
	app := fiber.New()
	app.Get("/libre", func(c *fiber.Ctx) error {
		p := apphttp.GetPrincipal(c)
		return c.JSON(fiber.Map{"anonymous": p.Anonymous()})
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/libre", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]bool
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body["anonymous"])
}
