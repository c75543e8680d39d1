package httpkit

import (
	"context"

	"chantier_crm_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the authenticated office user, as extracted from the access
// token claims by AuthRequired.
type Identity struct {
	UserID uuid.UUID
	Roles  []string
}

// HasRole reports whether the user carries the given role claim.
func (i Identity) HasRole(role string) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// GetIdentity reads the identity set by AuthRequired. ok is false on routes
// that run without the auth middleware.
func GetIdentity(c *gin.Context) (Identity, bool) {
	rawUser, exists := c.Get(ContextUserIDKey)
	if !exists {
		return Identity{}, false
	}
	userID, ok := rawUser.(uuid.UUID)
	if !ok {
		return Identity{}, false
	}

	var roles []string
	if rawRoles, exists := c.Get(ContextRolesKey); exists {
		roles, _ = rawRoles.([]string)
	}

	return Identity{UserID: userID, Roles: roles}, true
}

// ActorContext returns the request context annotated with the acting user's
// id, so logs emitted further down (pipeline moves, payment events) carry
// who triggered the mutation via logger.WithContext.
func ActorContext(c *gin.Context) context.Context {
	ctx := c.Request.Context()
	if id, ok := GetIdentity(c); ok {
		ctx = context.WithValue(ctx, logger.UserIDKey, id.UserID.String())
	}
	return ctx
}
