package auth

import "github.com/emilythestrangee/stackit/backend/internal/models"

// Identity is the resolved caller of a request.
type Identity struct {
	UserID string
	Role   models.Role
}

func (id Identity) IsAdmin() bool { return id.Role == models.RoleAdmin }

// CanModify is the owner-or-admin policy for editing and deleting content.
func CanModify(caller Identity, ownerID string) bool {
	return caller.UserID == ownerID || caller.IsAdmin()
}

// CanAccept is the owner-only policy for accepting an answer.
// Admins get no override here.
func CanAccept(caller Identity, questionAuthorID string) bool {
	return caller.UserID != "" && caller.UserID == questionAuthorID
}
