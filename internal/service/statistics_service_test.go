package service_test

import (
	"context"
	"testing"
	"time"

	"backend/internal/model"
	"backend/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedRequest(t *testing.T, db *gorm.DB, requester *model.User, createdAt time.Time, status string) *model.Request {
	req := &model.Request{
		RequesterID:   requester.ID,
		RequesterName: requester.DisplayName,
		Department:    "Ops",
		Purpose:       "Seed data",
		TotalAmount:   decimal.NewFromInt(10),
		AmountInWords: "ten dollars and zero cents",
		Status:        status,
	}
	require.NoError(t, db.Create(req).Error)
	// CreatedAt is set by gorm on insert, move it afterwards
	require.NoError(t, db.Model(req).UpdateColumn("created_at", createdAt).Error)
	req.CreatedAt = createdAt
	return req
}

func TestStatisticsService_Overview_SixBucketsAlways(t *testing.T) {
	db := newTestDB(t)
	svc := service.NewStatisticsService(db)
	requester := createUser(t, db, model.RoleRequester)
	ctx := context.Background()

	now := time.Now()
	// Mid-month anchor so AddDate month arithmetic never rolls over
	anchor := time.Date(now.Year(), now.Month(), 15, 12, 0, 0, 0, now.Location())
	seedRequest(t, db, requester, anchor, model.StatusPending)
	seedRequest(t, db, requester, anchor, model.StatusPending)
	seedRequest(t, db, requester, anchor.AddDate(0, -2, 0), model.StatusCompleted)
	// Outside the window, must not be counted
	seedRequest(t, db, requester, anchor.AddDate(0, -7, 0), model.StatusCompleted)

	buckets, err := svc.Overview(ctx, asPrincipal(requester))
	require.NoError(t, err)
	require.Len(t, buckets, 6)

	assert.Equal(t, now.Format("Jan"), buckets[5].Name)
	assert.EqualValues(t, 2, buckets[5].Total)
	assert.EqualValues(t, 1, buckets[3].Total)

	// Months with no requests still appear with a zero count
	assert.EqualValues(t, 0, buckets[0].Total)
	assert.EqualValues(t, 0, buckets[4].Total)
}

func TestStatisticsService_Overview_RequesterSeesOnlyOwn(t *testing.T) {
	db := newTestDB(t)
	svc := service.NewStatisticsService(db)
	alice := createUser(t, db, model.RoleRequester)
	bob := createUser(t, db, model.RoleRequester)
	admin := createUser(t, db, model.RoleAdministrator)
	ctx := context.Background()

	now := time.Now()
	seedRequest(t, db, alice, now, model.StatusPending)
	seedRequest(t, db, bob, now, model.StatusPending)

	buckets, err := svc.Overview(ctx, asPrincipal(alice))
	require.NoError(t, err)
	assert.EqualValues(t, 1, buckets[5].Total)

	// Administrators chart activity across the whole plant
	buckets, err = svc.Overview(ctx, asPrincipal(admin))
	require.NoError(t, err)
	assert.EqualValues(t, 2, buckets[5].Total)
}

func TestStatisticsService_Recent(t *testing.T) {
	db := newTestDB(t)
	svc := service.NewStatisticsService(db)
	requester := createUser(t, db, model.RoleRequester)
	accountant := createUser(t, db, model.RoleAccountant)
	ctx := context.Background()

	now := time.Now()
	for i := 0; i < 7; i++ {
		seedRequest(t, db, requester, now.Add(-time.Duration(i)*time.Hour), model.StatusPending)
	}
	approved := seedRequest(t, db, requester, now.Add(time.Minute), model.StatusApproved)

	// Default limit is five, newest first
	recent, err := svc.Recent(ctx, asPrincipal(requester), 0)
	require.NoError(t, err)
	require.Len(t, recent, 5)
	assert.Equal(t, approved.ID, recent[0].ID)

	recent, err = svc.Recent(ctx, asPrincipal(requester), 3)
	require.NoError(t, err)
	assert.Len(t, recent, 3)

	// Visibility applies to the side panel too
	recent, err = svc.Recent(ctx, asPrincipal(accountant), 10)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, model.StatusApproved, recent[0].Status)
}
