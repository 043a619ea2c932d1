package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/KyooRuss/Parking-Management/pkg/models"
	"github.com/KyooRuss/Parking-Management/pkg/utils"
)

type contextKey string

const (
	identityKey contextKey = "identity"
)

// Identity is the caller supplied by the login collaborator. It is only
// used to label park actions; there is no authorization.
type Identity struct {
	UserID   string
	UserName string
}

// IdentityVerifier resolves a bearer token to a user.
type IdentityVerifier interface {
	Identity(ctx context.Context, token string) (userID, userName string, err error)
}

// JWTVerifier accepts HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	Secret string
}

func (v JWTVerifier) Identity(_ context.Context, token string) (string, string, error) {
	claims, err := utils.ValidateJWT(token, v.Secret)
	if err != nil {
		return "", "", err
	}
	return claims.UserID, claims.Name, nil
}

// IdentityMiddleware attaches the caller identity when a bearer token is
// present. Requests without a token pass through anonymously; a token that
// fails verification is rejected.
func IdentityMiddleware(verifier IdentityVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || parts[0] != "Bearer" {
				respondError(w, http.StatusUnauthorized, "invalid authorization header format")
				return
			}

			userID, userName, err := verifier.Identity(r.Context(), parts[1])
			if err != nil {
				respondError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, &Identity{UserID: userID, UserName: userName})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetIdentity(r *http.Request) *Identity {
	id, ok := r.Context().Value(identityKey).(*Identity)
	if !ok {
		return nil
	}
	return id
}

func CORSMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func respondError(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	response := models.ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
	}
	writeJSON(w, response)
}
