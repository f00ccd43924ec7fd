package workflow_test

import (
	"testing"

	"backend/internal/model"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func principal(role string) workflow.Principal {
	return workflow.Principal{UserID: uuid.New(), Role: role}
}

func requestWith(requester uuid.UUID, status string) *model.Request {
	return &model.Request{ID: uuid.New(), RequesterID: requester, Status: status}
}

func TestVisibleStatuses(t *testing.T) {
	assert.Equal(t,
		[]string{model.StatusPending, model.StatusPassed, model.StatusRejected},
		workflow.VisibleStatuses(model.RoleSuperior))
	assert.Equal(t,
		[]string{model.StatusPassed, model.StatusApproved, model.StatusNotCompleted},
		workflow.VisibleStatuses(model.RoleAdministrator))
	assert.Equal(t,
		[]string{model.StatusApproved, model.StatusCompleted},
		workflow.VisibleStatuses(model.RoleAccountant))

	// Requester queues filter by ownership, not status
	assert.Nil(t, workflow.VisibleStatuses(model.RoleRequester))
	assert.Nil(t, workflow.VisibleStatuses("unknown"))
}

func TestCanView_Owner(t *testing.T) {
	p := principal(model.RoleRequester)

	// Owners see their requests through every status
	for _, status := range []string{model.StatusPending, model.StatusApproved, model.StatusRejected, model.StatusCompleted} {
		assert.True(t, workflow.CanView(p, requestWith(p.UserID, status)), status)
	}

	// But never someone else's
	assert.False(t, workflow.CanView(p, requestWith(uuid.New(), model.StatusPending)))
}

func TestCanView_QueuePredicate(t *testing.T) {
	superior := principal(model.RoleSuperior)
	other := uuid.New()

	assert.True(t, workflow.CanView(superior, requestWith(other, model.StatusPending)))
	assert.True(t, workflow.CanView(superior, requestWith(other, model.StatusPassed)))
	assert.True(t, workflow.CanView(superior, requestWith(other, model.StatusRejected)))
	assert.False(t, workflow.CanView(superior, requestWith(other, model.StatusApproved)))
	assert.False(t, workflow.CanView(superior, requestWith(other, model.StatusCompleted)))

	accountant := principal(model.RoleAccountant)
	assert.True(t, workflow.CanView(accountant, requestWith(other, model.StatusApproved)))
	assert.False(t, workflow.CanView(accountant, requestWith(other, model.StatusPending)))
}

func TestCanView_AdministratorSeesEverything(t *testing.T) {
	admin := principal(model.RoleAdministrator)
	other := uuid.New()

	for _, status := range []string{
		model.StatusPending, model.StatusPassed, model.StatusNotPassed,
		model.StatusApproved, model.StatusRejected, model.StatusCompleted,
		model.StatusNotCompleted,
	} {
		assert.True(t, workflow.CanView(admin, requestWith(other, status)), status)
	}
}

func TestCanModify_OwnerOnlyWhilePending(t *testing.T) {
	p := principal(model.RoleRequester)

	assert.True(t, workflow.CanModify(p, requestWith(p.UserID, model.StatusPending)))
	assert.False(t, workflow.CanModify(p, requestWith(p.UserID, model.StatusPassed)))
	assert.False(t, workflow.CanModify(p, requestWith(p.UserID, model.StatusNotPassed)))
	assert.False(t, workflow.CanModify(p, requestWith(uuid.New(), model.StatusPending)))
}

func TestCanModify_AdministratorUntilTerminal(t *testing.T) {
	admin := principal(model.RoleAdministrator)
	other := uuid.New()

	assert.True(t, workflow.CanModify(admin, requestWith(other, model.StatusPending)))
	assert.True(t, workflow.CanModify(admin, requestWith(other, model.StatusApproved)))
	assert.False(t, workflow.CanModify(admin, requestWith(other, model.StatusRejected)))
	assert.False(t, workflow.CanModify(admin, requestWith(other, model.StatusCompleted)))
}

func TestCanModify_NonOwnerRoles(t *testing.T) {
	other := uuid.New()
	for _, role := range []string{model.RoleSuperior, model.RoleAccountant} {
		assert.False(t, workflow.CanModify(principal(role), requestWith(other, model.StatusPending)), role)
	}
}
