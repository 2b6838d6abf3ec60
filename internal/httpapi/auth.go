package httpapi

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Gin context keys set by the auth middleware.
const (
	contextKeyTenantID = "auth_tenant_id"
	contextKeyRole     = "auth_role"
)

// RoleAdmin may list distributors across every tenant.
const RoleAdmin = "ADMIN"

// Claims is the bearer token payload. UserID doubles as the tenant id
// for every owner-scoped query.
type Claims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// AuthMiddleware validates the bearer token and stores the tenant id
// and role in the request context.
func AuthMiddleware(signingKey []byte, issuer string) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope("missing bearer token", nil))
			return
		}
		rawToken := strings.TrimPrefix(header, "Bearer ")

		claims := &Claims{}
		parseOptions := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
		if issuer != "" {
			parseOptions = append(parseOptions, jwt.WithIssuer(issuer))
		}
		token, err := jwt.ParseWithClaims(rawToken, claims, func(token *jwt.Token) (any, error) {
			return signingKey, nil
		}, parseOptions...)
		if err != nil || !token.Valid {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope("invalid token", nil))
			return
		}
		if claims.UserID == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorEnvelope("token missing user id", nil))
			return
		}
		ctx.Set(contextKeyTenantID, claims.UserID)
		ctx.Set(contextKeyRole, claims.Role)
		ctx.Next()
	}
}

// RequireAdmin rejects requests whose token lacks the admin role.
func RequireAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		if roleOf(ctx) != RoleAdmin {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorEnvelope("admin role required", nil))
			return
		}
		ctx.Next()
	}
}

func tenantOf(ctx *gin.Context) string {
	return ctx.GetString(contextKeyTenantID)
}

func roleOf(ctx *gin.Context) string {
	return ctx.GetString(contextKeyRole)
}

// IssueToken mints a token for tests and local tooling.
func IssueToken(signingKey []byte, issuer string, userID string, role string) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer: issuer,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
