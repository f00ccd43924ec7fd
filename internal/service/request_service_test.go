package service_test

import (
	"context"
	"path/filepath"
	"testing"

	"backend/internal/database"
	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/service"
	"backend/internal/workflow"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	dsn := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))
	return db
}

func newRequestService(t *testing.T) (service.RequestService, *gorm.DB) {
	db := newTestDB(t)
	svc := service.NewRequestService(
		repository.NewRequestRepository(db),
		repository.NewUserRepository(db),
		repository.NewTransactionManager(db),
		nil, // no live updates in tests
	)
	return svc, db
}

func createUser(t *testing.T, db *gorm.DB, role string) *model.User {
	user := &model.User{
		Email:       role + "-" + uuid.NewString()[:8] + "@example.com",
		DisplayName: "Test " + role,
		Password:    "hashed",
		Role:        role,
	}
	require.NoError(t, db.Create(user).Error)
	return user
}

func asPrincipal(user *model.User) workflow.Principal {
	return workflow.Principal{UserID: user.ID, Role: user.Role}
}

func validPayload() service.SaveRequestDTO {
	return service.SaveRequestDTO{
		Department: "Maintenance",
		Purpose:    "Spare parts for line 2",
		Items: []service.RequestItemDTO{
			{Details: "Bearings", Quantity: decimal.NewFromInt(10), UnitPrice: decimal.RequireFromString("12.50")},
			{Details: "Grease", Quantity: decimal.NewFromInt(2), UnitPrice: decimal.RequireFromString("12.875")},
		},
		PaymentSchedule: service.PaymentScheduleDTO{
			AccountName:   "ACME Supplies",
			AccountNumber: "0123456789",
			BankName:      "First National",
			PlantCode:     "PL-02",
		},
	}
}

func TestRequestService_Create(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	ctx := context.Background()

	resp, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	assert.Equal(t, model.StatusPending, resp.Status)
	assert.Equal(t, requester.ID.String(), resp.RequesterID)
	assert.Equal(t, requester.DisplayName, resp.RequesterName)
	require.Len(t, resp.Items, 2)

	// 10 * 12.50 = 125.00; 2 * 12.875 = 25.75 rounded per line
	assert.True(t, resp.Items[0].Amount.Equal(decimal.RequireFromString("125.00")))
	assert.True(t, resp.Items[1].Amount.Equal(decimal.RequireFromString("25.75")))
	assert.True(t, resp.TotalAmount.Equal(decimal.RequireFromString("150.75")))
	assert.Equal(t, "one hundred fifty dollars and seventy-five cents", resp.AmountInWords)
	assert.Empty(t, resp.AllowedActions)
}

func TestRequestService_Create_ValidationCollectsAllFailures(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)

	payload := service.SaveRequestDTO{
		Purpose: "ok", // too short
		Items: []service.RequestItemDTO{
			{Details: "", Quantity: decimal.Zero, UnitPrice: decimal.NewFromInt(-1)},
		},
	}

	_, err := svc.Create(context.Background(), asPrincipal(requester), payload)
	require.Error(t, err)

	var verr *workflow.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "department")
	assert.Contains(t, verr.Fields, "purpose")
	assert.Contains(t, verr.Fields, "items[0].details")
	assert.Contains(t, verr.Fields, "items[0].quantity")
	assert.Contains(t, verr.Fields, "items[0].unit_price")
	assert.Contains(t, verr.Fields, "payment_schedule.account_name")
	assert.Contains(t, verr.Fields, "payment_schedule.plant_code")
}

func TestRequestService_Get_Visibility(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	accountant := createUser(t, db, model.RoleAccountant)
	admin := createUser(t, db, model.RoleAdministrator)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	// Owner and administrator may open a pending request
	_, err = svc.Get(ctx, asPrincipal(requester), created.ID)
	assert.NoError(t, err)
	_, err = svc.Get(ctx, asPrincipal(admin), created.ID)
	assert.NoError(t, err)

	// The accountant's queue starts at approved
	_, err = svc.Get(ctx, asPrincipal(accountant), created.ID)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestRequestService_List_ScopedByRole(t *testing.T) {
	svc, db := newRequestService(t)
	alice := createUser(t, db, model.RoleRequester)
	bob := createUser(t, db, model.RoleRequester)
	superior := createUser(t, db, model.RoleSuperior)
	accountant := createUser(t, db, model.RoleAccountant)
	ctx := context.Background()

	_, err := svc.Create(ctx, asPrincipal(alice), validPayload())
	require.NoError(t, err)
	_, err = svc.Create(ctx, asPrincipal(bob), validPayload())
	require.NoError(t, err)

	// Requesters see only their own submissions
	list, total, err := svc.List(ctx, asPrincipal(alice), repository.RequestFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	require.Len(t, list, 1)
	assert.Equal(t, alice.ID.String(), list[0].RequesterID)

	// The superior's queue shows all pending requests
	_, total, err = svc.List(ctx, asPrincipal(superior), repository.RequestFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	// Nothing is approved yet, so the accountant sees an empty queue
	list, total, err = svc.List(ctx, asPrincipal(accountant), repository.RequestFilter{})
	require.NoError(t, err)
	assert.EqualValues(t, 0, total)
	assert.Empty(t, list)
}

func TestRequestService_Update_RecomputesDerivedFields(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	payload := validPayload()
	payload.Purpose = "Replacement motor"
	payload.Items = []service.RequestItemDTO{
		{Details: "Motor", Quantity: decimal.NewFromInt(1), UnitPrice: decimal.RequireFromString("499.99")},
	}

	updated, err := svc.Update(ctx, asPrincipal(requester), created.ID, payload)
	require.NoError(t, err)

	assert.Equal(t, "Replacement motor", updated.Purpose)
	assert.Equal(t, model.StatusPending, updated.Status)
	require.Len(t, updated.Items, 1)
	assert.True(t, updated.TotalAmount.Equal(decimal.RequireFromString("499.99")))
	assert.Equal(t, "four hundred ninety-nine dollars and ninety-nine cents", updated.AmountInWords)
}

func TestRequestService_Update_LockedOnceInReview(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	superior := createUser(t, db, model.RoleSuperior)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, asPrincipal(superior), created.ID, workflow.ActionPass, "")
	require.NoError(t, err)

	_, err = svc.Update(ctx, asPrincipal(requester), created.ID, validPayload())
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	err = svc.Delete(ctx, asPrincipal(requester), created.ID)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)
}

func TestRequestService_Delete(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	other := createUser(t, db, model.RoleRequester)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	// Another requester cannot touch it
	err = svc.Delete(ctx, asPrincipal(other), created.ID)
	assert.ErrorIs(t, err, workflow.ErrUnauthorized)

	require.NoError(t, svc.Delete(ctx, asPrincipal(requester), created.ID))

	_, err = svc.Get(ctx, asPrincipal(requester), created.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	// Line items go with the request
	var count int64
	require.NoError(t, db.Model(&model.RequestItem{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}

func TestRequestService_Transition_RecordsActor(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	superior := createUser(t, db, model.RoleSuperior)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	resp, err := svc.Transition(ctx, asPrincipal(superior), created.ID, workflow.ActionPass, "looks fine")
	require.NoError(t, err)

	assert.Equal(t, model.StatusPassed, resp.Status)
	require.NotNil(t, resp.ApprovedBy)
	assert.Equal(t, superior.ID.String(), *resp.ApprovedBy)
	assert.Equal(t, superior.DisplayName, resp.ApproverName)
	assert.Equal(t, "looks fine", resp.ApproverComment)
}

func TestRequestService_Transition_FullLifecycle(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	superior := createUser(t, db, model.RoleSuperior)
	admin := createUser(t, db, model.RoleAdministrator)
	accountant := createUser(t, db, model.RoleAccountant)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	resp, err := svc.Transition(ctx, asPrincipal(superior), created.ID, workflow.ActionPass, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusPassed, resp.Status)

	resp, err = svc.Transition(ctx, asPrincipal(admin), created.ID, workflow.ActionApprove, "")
	require.NoError(t, err)
	require.Equal(t, model.StatusApproved, resp.Status)

	resp, err = svc.Transition(ctx, asPrincipal(accountant), created.ID, workflow.ActionComplete, "paid out")
	require.NoError(t, err)
	require.Equal(t, model.StatusCompleted, resp.Status)

	// Completed is terminal for every role
	_, err = svc.Transition(ctx, asPrincipal(admin), created.ID, workflow.ActionReject, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}

func TestRequestService_Transition_RequesterRefused(t *testing.T) {
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, asPrincipal(requester), created.ID, workflow.ActionPass, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)

	// Status is untouched after the refused attempt
	got, err := svc.Get(ctx, asPrincipal(requester), created.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusPending, got.Status)
}

func TestRequestService_Transition_StaleClientState(t *testing.T) {
	// Two approvers race; the second decision is evaluated against the
	// status the first one wrote, not the stale pending the client saw.
	svc, db := newRequestService(t)
	requester := createUser(t, db, model.RoleRequester)
	superior := createUser(t, db, model.RoleSuperior)
	admin := createUser(t, db, model.RoleAdministrator)
	ctx := context.Background()

	created, err := svc.Create(ctx, asPrincipal(requester), validPayload())
	require.NoError(t, err)

	_, err = svc.Transition(ctx, asPrincipal(admin), created.ID, workflow.ActionReject, "")
	require.NoError(t, err)

	_, err = svc.Transition(ctx, asPrincipal(superior), created.ID, workflow.ActionPass, "")
	assert.ErrorIs(t, err, workflow.ErrInvalidTransition)
}
