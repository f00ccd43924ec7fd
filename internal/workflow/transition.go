package workflow

// Transition decides the new status for applying action as role to a
// request currently in status. Deterministic and side-effect free: the
// caller persists the result (and must re-evaluate against a fresh read
// of the status immediately before writing, not a cached value).
func Transition(status, role string, action Action) (string, error) {
	caps, ok := capabilities[role]
	if !ok {
		return "", &TransitionError{Role: role, Action: action, Status: status,
			Message: "role has no transition rights"}
	}

	cap, ok := caps[action]
	if !ok {
		return "", &TransitionError{Role: role, Action: action, Status: status,
			Message: "action not permitted for role"}
	}

	if IsTerminal(status) {
		return "", &TransitionError{Role: role, Action: action, Status: status,
			Message: "status is terminal"}
	}

	if status == cap.target {
		return "", &TransitionError{Role: role, Action: action, Status: status,
			Message: "already in target status"}
	}

	if cap.sources != nil && !cap.sources[status] {
		return "", &TransitionError{Role: role, Action: action, Status: status,
			Message: "not actionable from current status"}
	}

	return cap.target, nil
}
