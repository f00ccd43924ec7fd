package repository

import (
	"context"

	"backend/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// RequestFilter narrows a request listing on top of the caller's
// visibility scope.
type RequestFilter struct {
	Status string
	Page   int
	Limit  int
}

type RequestRepository interface {
	Create(ctx context.Context, req *model.Request) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	// FindByIDForUpdate locks the request row for the duration of the
	// surrounding transaction so a transition is checked against the
	// freshest status before the write.
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter RequestFilter) ([]model.Request, int64, error)
	Update(ctx context.Context, req *model.Request) error
	ReplaceItems(ctx context.Context, req *model.Request, items []model.RequestItem) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type requestRepository struct {
	db *gorm.DB
}

func NewRequestRepository(db *gorm.DB) RequestRepository {
	return &requestRepository{db: db}
}

func (r *requestRepository) Create(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Create(req).Error
}

func (r *requestRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	var req model.Request
	if err := GetDB(ctx, r.db).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Requester").
		Preload("Approver").
		First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	db := GetDB(ctx, r.db)
	// SQLite serializes writers on its own and rejects FOR UPDATE
	if r.db.Dialector.Name() == "postgres" {
		db = db.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var req model.Request
	if err := db.First(&req, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *requestRepository) List(ctx context.Context, scope func(*gorm.DB) *gorm.DB, filter RequestFilter) ([]model.Request, int64, error) {
	var total int64

	db := GetDB(ctx, r.db)
	countQuery := db.Model(&model.Request{}).Scopes(scope)
	if filter.Status != "" {
		countQuery = countQuery.Where("status = ?", filter.Status)
	}
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	var requests []model.Request
	fetchQuery := db.Scopes(scope).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("Requester")
	if filter.Status != "" {
		fetchQuery = fetchQuery.Where("status = ?", filter.Status)
	}
	if err := fetchQuery.
		Order("created_at DESC").
		Offset(offset).
		Limit(filter.Limit).
		Find(&requests).Error; err != nil {
		return nil, 0, err
	}

	return requests, total, nil
}

func (r *requestRepository) Update(ctx context.Context, req *model.Request) error {
	return GetDB(ctx, r.db).Omit("Items", "Requester", "Approver").Save(req).Error
}

// ReplaceItems swaps the full line-item set of a request. Runs inside
// the caller's transaction when one is on the context.
func (r *requestRepository) ReplaceItems(ctx context.Context, req *model.Request, items []model.RequestItem) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", req.ID).Delete(&model.RequestItem{}).Error; err != nil {
		return err
	}
	for i := range items {
		items[i].ID = uuid.Nil
		items[i].RequestID = req.ID
		items[i].Position = i
	}
	if err := db.Create(&items).Error; err != nil {
		return err
	}
	req.Items = items
	return nil
}

func (r *requestRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("request_id = ?", id).Delete(&model.RequestItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.Request{}).Error
}
