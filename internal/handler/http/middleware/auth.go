package middleware

import (
	"net/http"

	"github.com/cmlabs-hris/hris-timekeeping/internal/domain/user"
	"github.com/cmlabs-hris/hris-timekeeping/internal/handler/http/response"
	"github.com/cmlabs-hris/hris-timekeeping/internal/pkg/jwt"
	"github.com/go-chi/jwtauth/v5"
)

// AuthRequired rejects requests without a verified access token and places the
// acting employee in the request context.
func AuthRequired(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, claims, err := jwtauth.FromContext(r.Context())
		if err != nil {
			response.Unauthorized(w, err.Error())
			return
		}
		if token == nil {
			response.Unauthorized(w, "Invalid token")
			return
		}

		tokenType, ok := claims["type"].(string)
		if !ok || tokenType != jwt.TokenTypeAccess {
			response.Unauthorized(w, "Invalid token")
			return
		}

		employeeID, _ := claims["employee_id"].(string)
		if employeeID == "" {
			response.HandleError(w, user.ErrActorMissing)
			return
		}

		roleStr, _ := claims["role"].(string)
		role := user.Role(roleStr)
		if _, known := user.RolePermissions[role]; !known {
			response.HandleError(w, user.ErrInsufficientPermissions)
			return
		}

		userID, _ := claims["user_id"].(string)
		ctx := user.WithActor(r.Context(), user.Actor{
			UserID:     userID,
			EmployeeID: employeeID,
			Role:       role,
		})
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
