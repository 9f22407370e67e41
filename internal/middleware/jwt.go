package middleware

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/jamditis/class/internal/utils"
)

// Locals populated by JWTProtected.
const (
	LocalUserID    = "user_id"
	LocalUserRoles = "user_roles"
)

// Claims are the token claims the API understands. Either role or roles may carry the
// caller's role names.
type Claims struct {
	Role  string   `json:"role,omitempty"`
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// RoleNames returns the normalised, de-duplicated role names in the claims.
func (c Claims) RoleNames() []string {
	seen := make(map[string]struct{}, len(c.Roles)+1)
	names := make([]string, 0, len(c.Roles)+1)
	for _, raw := range append([]string{c.Role}, c.Roles...) {
		role := strings.ToLower(strings.TrimSpace(raw))
		if role == "" {
			continue
		}
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		names = append(names, role)
	}
	return names
}

var errMissingBearer = errors.New("authorization header must use the bearer scheme")

// JWTProtected validates HMAC-signed bearer tokens and exposes the subject and roles
// as request locals.
func JWTProtected(secret string) fiber.Handler {
	parser := jwt.NewParser(jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}))
	key := []byte(secret)

	return func(c *fiber.Ctx) error {
		raw, err := bearerToken(c.Get(fiber.HeaderAuthorization))
		if err != nil {
			return utils.SendError(c, fiber.StatusUnauthorized, err.Error())
		}

		var claims Claims
		token, err := parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (interface{}, error) {
			return key, nil
		})
		if err != nil || !token.Valid {
			return utils.SendError(c, fiber.StatusUnauthorized, "invalid token")
		}

		if subject := strings.TrimSpace(claims.Subject); subject != "" {
			c.Locals(LocalUserID, subject)
		}
		c.Locals(LocalUserRoles, claims.RoleNames())

		return c.Next()
	}
}

func bearerToken(header string) (string, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return "", errors.New("authorization header missing")
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "bearer") {
		return "", errMissingBearer
	}
	token = strings.TrimSpace(token)
	if token == "" {
		return "", errMissingBearer
	}
	return token, nil
}
