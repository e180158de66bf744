package middleware

import (
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/models"
)

const identityKey = "identity"

// Identity returns the caller resolved by AuthMiddleware or OptionalAuth.
func Identity(c *gin.Context) (auth.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return auth.Identity{}, false
	}
	id, ok := v.(auth.Identity)
	return id, ok
}

// UserLookup loads the current role for a token subject; a deleted user fails.
type UserLookup func(c *gin.Context, userID string) (models.Role, error)

// GormUserLookup reads the role from the users table so role changes apply immediately.
func GormUserLookup(db *gorm.DB) UserLookup {
	return func(c *gin.Context, userID string) (models.Role, error) {
		var u models.User
		err := db.WithContext(c.Request.Context()).Select("id", "role").Take(&u, "id = ?", userID).Error
		return u.Role, err
	}
}

func resolve(c *gin.Context, tokens *auth.Tokens, lookup UserLookup) (auth.Identity, error) {
	h := c.GetHeader("Authorization")
	if !strings.HasPrefix(h, "Bearer ") {
		return auth.Identity{}, errNoToken
	}
	claims, err := tokens.Parse(strings.TrimPrefix(h, "Bearer "))
	if err != nil {
		return auth.Identity{}, err
	}
	role := claims.Role
	if lookup != nil {
		role, err = lookup(c, claims.UserID)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return auth.Identity{}, auth.ErrInvalidToken
		}
		if err != nil {
			return auth.Identity{}, &lookupError{err: err}
		}
	}
	return auth.Identity{UserID: claims.UserID, Role: role}, nil
}

var errNoToken = errors.New("no token")

// lookupError is a store failure while resolving the caller; it is not the caller's fault.
type lookupError struct {
	err error
}

func (e *lookupError) Error() string { return "user lookup: " + e.err.Error() }
func (e *lookupError) Unwrap() error { return e.err }

// abortOnLookupError writes a 500 when err came from the store and reports whether it did.
func abortOnLookupError(c *gin.Context, err error) bool {
	var le *lookupError
	if !errors.As(err, &le) {
		return false
	}
	log.Printf("auth: %v", err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	return true
}

// AuthMiddleware requires a valid bearer token.
func AuthMiddleware(tokens *auth.Tokens, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := resolve(c, tokens, lookup)
		if errors.Is(err, errNoToken) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided."})
			return
		}
		if abortOnLookupError(c, err) {
			return
		}
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token."})
			return
		}
		c.Set(identityKey, id)
		c.Next()
	}
}

// OptionalAuth attaches the caller when a valid token is present. Missing or
// invalid tokens are not rejected; a store failure is still a 500.
func OptionalAuth(tokens *auth.Tokens, lookup UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := resolve(c, tokens, lookup)
		if abortOnLookupError(c, err) {
			return
		}
		if err == nil {
			c.Set(identityKey, id)
		}
		c.Next()
	}
}

// RequireRole must run after AuthMiddleware.
func RequireRole(roles ...models.Role) gin.HandlerFunc {
	allowed := map[models.Role]struct{}{}
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		id, _ := Identity(c)
		if _, ok := allowed[id.Role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied. Insufficient privileges."})
			return
		}
		c.Next()
	}
}
