package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/inboxmarket/datagate/models"
	"github.com/inboxmarket/datagate/utils"
	"go.uber.org/zap"
)

// AuthMiddleware validates requester-identity tokens and threads the owner
// and requester class through the request context.
type AuthMiddleware struct {
	secret []byte
	issuer string
	logger *zap.Logger
}

// NewAuthMiddleware creates a new AuthMiddleware
func NewAuthMiddleware(secret, issuer string, logger *zap.Logger) *AuthMiddleware {
	return &AuthMiddleware{
		secret: []byte(secret),
		issuer: issuer,
		logger: logger,
	}
}

// RequireAuth is a middleware that requires a valid requester token
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		token := extractBearerToken(r)
		if token == "" {
			m.logger.Warn("missing token",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Missing or invalid authorization")
			return
		}

		claims, err := m.parseToken(token)
		if err != nil {
			m.logger.Warn("token validation failed",
				zap.String("request_id", requestID),
				zap.Error(err))
			_ = utils.WriteUnauthorized(w, "Invalid or expired token")
			return
		}

		ctx = WithClaims(ctx, claims)

		m.logger.Debug("authentication successful",
			zap.String("request_id", requestID),
			zap.String("owner_id", claims.OwnerID),
			zap.String("requester_class", claims.RequesterClass))

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// ExtractIdentity resolves the owner ID and requester class from claims and
// adds them to the context. Runs after RequireAuth.
func (m *AuthMiddleware) ExtractIdentity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		requestID := GetRequestIDFromContext(ctx)

		claims := GetClaimsFromContext(ctx)
		if claims == nil {
			m.logger.Error("claims not found in context",
				zap.String("request_id", requestID))
			_ = utils.WriteUnauthorized(w, "Authentication required")
			return
		}

		ownerID, err := uuid.Parse(claims.OwnerID)
		if err != nil {
			m.logger.Error("invalid owner_id in claims",
				zap.String("request_id", requestID),
				zap.String("owner_id", claims.OwnerID),
				zap.Error(err))
			_ = utils.WriteForbidden(w, "Invalid owner ID")
			return
		}

		class := models.RequesterClass(claims.RequesterClass)
		if !class.Valid() {
			m.logger.Error("invalid requester class in claims",
				zap.String("request_id", requestID),
				zap.String("requester_class", claims.RequesterClass))
			_ = utils.WriteForbidden(w, "Invalid requester class")
			return
		}

		ctx = WithOwnerID(ctx, ownerID)
		ctx = WithRequesterClass(ctx, class)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRequesterClass restricts a route to specific requester classes.
// Owner-facing routes (policy editing, history) pass RequesterHuman.
func (m *AuthMiddleware) RequireRequesterClass(allowed ...models.RequesterClass) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestIDFromContext(ctx)

			class := GetRequesterClassFromContext(ctx)
			for _, a := range allowed {
				if class == a {
					next.ServeHTTP(w, r)
					return
				}
			}

			m.logger.Warn("requester class not permitted",
				zap.String("request_id", requestID),
				zap.String("requester_class", string(class)))
			_ = utils.WriteForbidden(w, "Requester class not permitted")
		})
	}
}

// parseToken verifies the HMAC signature, issuer, and expiry
func (m *AuthMiddleware) parseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("token is invalid")
	}
	return claims, nil
}

// IssueToken signs a requester token for an owner's mailbox. Used by local
// tooling and tests; production tokens come from the identity service.
func IssueToken(secret, issuer string, ownerID uuid.UUID, class models.RequesterClass, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		OwnerID:        ownerID.String(),
		RequesterClass: string(class),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// extractBearerToken extracts the Bearer token from the Authorization header
func extractBearerToken(r *http.Request) string {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return ""
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return ""
	}

	return strings.TrimSpace(parts[1])
}
