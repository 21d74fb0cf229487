package api

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/google/uuid"

	"telegram-prediction-backend/internal/domain"
	"telegram-prediction-backend/internal/domain/model"
	"telegram-prediction-backend/internal/domain/ports/repository"
	"telegram-prediction-backend/internal/infra/logging"
)

type ctxKey int

const userKey ctxKey = iota

// headerUserID carries the authenticated user id set by the edge
// authenticator (the init-data verifier terminates there).
const headerUserID = "X-User-ID"

// headerWebhookSecret is Telegram's webhook secret token header.
const headerWebhookSecret = "X-Telegram-Bot-Api-Secret-Token"

// withIdentity resolves the upstream-authenticated user id into a full user
// record and stashes it in the request context.
func withIdentity(users repository.UserRepository) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerUserID)
			if id == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: "missing identity"})
				return
			}
			// Reject garbage before it reaches the repo as a query value.
			if _, err := uuid.Parse(id); err != nil {
				writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: "invalid identity"})
				return
			}
			u, err := users.FindByID(r.Context(), nil, id)
			if err != nil {
				if domain.KindOf(err) == domain.KindNotFound {
					writeJSON(w, http.StatusUnauthorized, errorBody{Code: "unauthenticated", Message: "unknown user"})
					return
				}
				writeError(w, err)
				return
			}
			ctx := context.WithValue(r.Context(), userKey, u)
			ctx = logging.WithUserID(ctx, u.ID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func userFrom(ctx context.Context) *model.User {
	u, _ := ctx.Value(userKey).(*model.User)
	return u
}

// requireWebhookSecret rejects webhook posts whose secret token header does
// not match the one registered with setWebhook.
func requireWebhookSecret(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret != "" {
				got := r.Header.Get(headerWebhookSecret)
				if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
					w.WriteHeader(http.StatusUnauthorized)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
