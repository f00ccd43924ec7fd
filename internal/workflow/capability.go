package workflow

import "backend/internal/model"

// Action is a role-gated status change applied to a request.
type Action string

const (
	ActionPass        Action = "pass"
	ActionNotPass     Action = "not-pass"
	ActionApprove     Action = "approve"
	ActionReject      Action = "reject"
	ActionComplete    Action = "complete"
	ActionNotComplete Action = "not-complete"
)

// capability describes one action a role may perform: the status it
// produces and the source statuses it may be applied from. A nil source
// set means any non-terminal status.
type capability struct {
	target  string
	sources map[string]bool
}

var superiorSources = map[string]bool{
	model.StatusPending:   true,
	model.StatusNotPassed: true,
}

// capabilities is the single source of truth for which role may perform
// which action. Both the handlers (affordances reported by /me and the
// request detail payload) and the transition engine consult this table,
// so the authorization rule cannot drift between layers.
var capabilities = map[string]map[Action]capability{
	model.RoleSuperior: {
		ActionPass:    {target: model.StatusPassed, sources: superiorSources},
		ActionNotPass: {target: model.StatusNotPassed, sources: superiorSources},
	},
	model.RoleAdministrator: {
		ActionApprove: {target: model.StatusApproved},
		ActionReject:  {target: model.StatusRejected},
	},
	model.RoleAccountant: {
		ActionComplete:    {target: model.StatusCompleted},
		ActionNotComplete: {target: model.StatusNotCompleted},
	},
	// requester: no transition rights
}

// IsTerminal reports whether no further transition is legal from status.
func IsTerminal(status string) bool {
	return status == model.StatusRejected || status == model.StatusCompleted
}

// AllowedActions returns the actions role may apply to a request
// currently in status, in a stable order. Used by the API to expose UI
// affordances; an empty slice means no buttons.
func AllowedActions(role, status string) []Action {
	caps, ok := capabilities[role]
	if !ok {
		return nil
	}

	ordered := []Action{ActionPass, ActionNotPass, ActionApprove, ActionReject, ActionComplete, ActionNotComplete}
	var allowed []Action
	for _, action := range ordered {
		cap, ok := caps[action]
		if !ok {
			continue
		}
		if legalFrom(cap, status) {
			allowed = append(allowed, action)
		}
	}
	return allowed
}

func legalFrom(cap capability, status string) bool {
	if IsTerminal(status) {
		return false
	}
	if status == cap.target { // idempotent-blocked
		return false
	}
	if cap.sources != nil && !cap.sources[status] {
		return false
	}
	return true
}
