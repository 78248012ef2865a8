package httpkit

import (
	"net/http"
	"slices"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Identity is the caller as established by AuthRequired. Handlers read it
// through GetIdentity instead of the raw gin keys.
type Identity interface {
	UserID() uuid.UUID
	Roles() []string
	HasRole(role string) bool
	IsAuthenticated() bool
}

type identity struct {
	userID uuid.UUID
	roles  []string
}

func (i identity) UserID() uuid.UUID        { return i.userID }
func (i identity) Roles() []string          { return i.roles }
func (i identity) HasRole(role string) bool { return slices.Contains(i.roles, role) }
func (i identity) IsAuthenticated() bool    { return i.userID != uuid.Nil }

// GetIdentity returns the caller. Anonymous callers get an identity whose
// IsAuthenticated is false.
func GetIdentity(c *gin.Context) Identity {
	userID, _ := c.Get(ContextUserIDKey)
	uid, ok := userID.(uuid.UUID)
	if !ok {
		return identity{}
	}

	roles, _ := c.Get(ContextRolesKey)
	roleList, _ := roles.([]string)
	return identity{userID: uid, roles: roleList}
}

// MustGetIdentity returns the caller, or aborts with 401 and returns nil.
func MustGetIdentity(c *gin.Context) Identity {
	id := GetIdentity(c)
	if !id.IsAuthenticated() {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return nil
	}
	return id
}
