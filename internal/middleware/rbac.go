package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/tutor-booking-api/internal/models"
	appErrors "github.com/noah-isme/tutor-booking-api/pkg/errors"
	"github.com/noah-isme/tutor-booking-api/pkg/response"
)

// RequireRoles admits callers whose token carries one of roles. It must run
// after JWT.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]bool, len(roles))
	names := make([]string, 0, len(roles))
	for _, role := range roles {
		allowed[role] = true
		names = append(names, string(role))
	}
	denied := appErrors.Clone(appErrors.ErrForbidden, "requires role "+strings.Join(names, " or "))

	return func(c *gin.Context) {
		claims, ok := ClaimsFromContext(c)
		switch {
		case !ok:
			abortWith(c, appErrors.ErrUnauthorized)
		case !claims.Role.Valid():
			abortWith(c, appErrors.Clone(appErrors.ErrUnauthorized, "token carries an unknown role"))
		case !allowed[claims.Role]:
			abortWith(c, denied)
		default:
			c.Next()
		}
	}
}

func abortWith(c *gin.Context, err error) {
	response.Error(c, err)
	c.Abort()
}
