package middleware

import (
	"net/http"

	"github.com/ninekrua/pos-backend/api/responses"
	"github.com/ninekrua/pos-backend/pkg/enums"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
)

// RequireRole rejects requests whose authenticated role is not in the allowed
// set. Admins implicitly pass every staff surface.
func RequireRole(logg *logger.Logger, allowed ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			if role == string(enums.UserRoleAdmin) {
				next.ServeHTTP(w, r)
				return
			}
			for _, candidate := range allowed {
				if role == string(candidate) {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}
