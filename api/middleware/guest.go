package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ninekrua/pos-backend/api/responses"
	"github.com/ninekrua/pos-backend/pkg/db/models"
	pkgerrors "github.com/ninekrua/pos-backend/pkg/errors"
	"github.com/ninekrua/pos-backend/pkg/logger"
)

const tableTokenHeader = "X-Table-Token"

type guestAuthorizer interface {
	AuthorizeGuest(ctx context.Context, code, token string) (*models.DiningTable, error)
}

// GuestTable authorizes a guest request against the {code} path parameter and
// the table access token header, then seeds the context with the table.
func GuestTable(tables guestAuthorizer, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := strings.TrimSpace(chi.URLParam(r, "code"))
			token := strings.TrimSpace(r.Header.Get(tableTokenHeader))
			if code == "" || token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing table credentials"))
				return
			}

			table, err := tables.AuthorizeGuest(r.Context(), code, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			ctx := WithGuestTable(r.Context(), table)
			if logg != nil {
				ctx = logg.WithTableCode(ctx, table.Code)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
