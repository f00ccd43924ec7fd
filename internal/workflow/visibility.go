package workflow

import (
	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Principal is the authenticated actor every visibility and transition
// check receives explicitly. There is no ambient auth state.
type Principal struct {
	UserID uuid.UUID
	Role   string
}

// VisibleStatuses returns the slice of the pipeline a role's queue
// shows. An empty slice means the role filters by ownership instead
// (requester); see Scope.
func VisibleStatuses(role string) []string {
	switch role {
	case model.RoleSuperior:
		return []string{model.StatusPending, model.StatusPassed, model.StatusRejected}
	case model.RoleAdministrator:
		return []string{model.StatusPassed, model.StatusApproved, model.StatusNotCompleted}
	case model.RoleAccountant:
		return []string{model.StatusApproved, model.StatusCompleted}
	default:
		return nil
	}
}

// Scope narrows a requests query to what the principal may list. It is
// applied at the query layer so an out-of-scope document is never
// fetched, let alone returned.
func Scope(p Principal) func(*gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if statuses := VisibleStatuses(p.Role); statuses != nil {
			return db.Where("status IN ?", statuses)
		}
		return db.Where("requester_id = ?", p.UserID)
	}
}

// CanView reports whether the principal may open the request's detail
// view: their queue predicate matches, they own it, or they are an
// administrator.
func CanView(p Principal, req *model.Request) bool {
	if req.RequesterID == p.UserID || p.Role == model.RoleAdministrator {
		return true
	}
	for _, s := range VisibleStatuses(p.Role) {
		if req.Status == s {
			return true
		}
	}
	return false
}

// CanModify reports whether the principal may edit or delete the
// request. The creator may while it is still pending; an administrator
// may until it reaches a terminal status.
func CanModify(p Principal, req *model.Request) bool {
	if p.Role == model.RoleAdministrator {
		return !IsTerminal(req.Status)
	}
	return req.RequesterID == p.UserID && req.Status == model.StatusPending
}
