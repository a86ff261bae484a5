package middleware

import (
	"strings"

	"vaultdrive/utils"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// AuthMiddleware validates the Bearer token and stores the caller's user id
// on the context. Only access-scope tokens pass; locker session tokens are
// rejected here so they cannot be used as general credentials.
func AuthMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, jwtSecret)
		if !ok {
			return
		}

		if claims.Scope != utils.ScopeAccess {
			utils.UnauthorizedResponse(c, "Invalid token scope")
			c.Abort()
			return
		}

		userID, err := primitive.ObjectIDFromHex(claims.UserID)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid user ID in token")
			c.Abort()
			return
		}

		c.Set("userId", userID)
		c.Set("userIdStr", claims.UserID)
		c.Next()
	}
}

// LockerMiddleware gates vault content routes behind a locker session token
// minted by a successful PIN unlock. The token arrives in the
// X-Locker-Token header so it never collides with the access token.
func LockerMiddleware(jwtSecret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.GetHeader("X-Locker-Token")
		if tokenString == "" {
			utils.UnauthorizedResponse(c, "Locker session required")
			c.Abort()
			return
		}

		claims, err := utils.VerifyToken(tokenString, jwtSecret)
		if err != nil || claims.Scope != utils.ScopeLocker {
			utils.UnauthorizedResponse(c, "Invalid or expired locker session")
			c.Abort()
			return
		}

		// The locker session must belong to the authenticated user.
		if claims.UserID != c.GetString("userIdStr") {
			utils.UnauthorizedResponse(c, "Locker session does not match user")
			c.Abort()
			return
		}

		c.Next()
	}
}

func parseBearer(c *gin.Context, jwtSecret string) (*utils.Claims, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		utils.UnauthorizedResponse(c, "Authorization header required")
		c.Abort()
		return nil, false
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		utils.UnauthorizedResponse(c, "Invalid authorization header format")
		c.Abort()
		return nil, false
	}

	claims, err := utils.VerifyToken(parts[1], jwtSecret)
	if err != nil {
		utils.UnauthorizedResponse(c, "Invalid or expired token")
		c.Abort()
		return nil, false
	}
	return claims, true
}

// GetUserID reads the authenticated user's id set by AuthMiddleware.
func GetUserID(c *gin.Context) (primitive.ObjectID, bool) {
	value, exists := c.Get("userId")
	if !exists {
		return primitive.NilObjectID, false
	}
	userID, ok := value.(primitive.ObjectID)
	return userID, ok
}
