package service

import (
	"context"
	"time"

	"backend/internal/model"
	"backend/internal/workflow"

	"gorm.io/gorm"
)

// MonthBucket is one bar of the dashboard overview chart.
type MonthBucket struct {
	Name  string `json:"name"` // short month name, e.g. "Mar"
	Year  int    `json:"year"`
	Total int64  `json:"total"`
}

type StatisticsService interface {
	// Overview returns request counts per month for the trailing six
	// months. Administrators see every request; everyone else sees
	// their own submissions.
	Overview(ctx context.Context, p workflow.Principal) ([]MonthBucket, error)
	// Recent returns the newest requests within the principal's
	// visibility, for the dashboard side panel.
	Recent(ctx context.Context, p workflow.Principal, limit int) ([]model.Request, error)
}

type statisticsService struct {
	db *gorm.DB
}

func NewStatisticsService(db *gorm.DB) StatisticsService {
	return &statisticsService{db: db}
}

func (s *statisticsService) Overview(ctx context.Context, p workflow.Principal) ([]MonthBucket, error) {
	now := time.Now()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()).AddDate(0, -5, 0)

	query := s.db.WithContext(ctx).Model(&model.Request{}).
		Where("created_at >= ?", start)
	if p.Role != model.RoleAdministrator {
		query = query.Where("requester_id = ?", p.UserID)
	}

	var requests []model.Request
	if err := query.Select("created_at").Find(&requests).Error; err != nil {
		return nil, err
	}

	// Build the six buckets first so months without requests still render
	buckets := make([]MonthBucket, 6)
	index := make(map[string]int, 6)
	for i := 0; i < 6; i++ {
		m := start.AddDate(0, i, 0)
		buckets[i] = MonthBucket{Name: m.Format("Jan"), Year: m.Year()}
		index[m.Format("2006-01")] = i
	}

	for _, r := range requests {
		if i, ok := index[r.CreatedAt.Format("2006-01")]; ok {
			buckets[i].Total++
		}
	}

	return buckets, nil
}

func (s *statisticsService) Recent(ctx context.Context, p workflow.Principal, limit int) ([]model.Request, error) {
	if limit <= 0 {
		limit = 5
	}

	var requests []model.Request
	err := s.db.WithContext(ctx).
		Scopes(workflow.Scope(p)).
		Order("created_at DESC").
		Limit(limit).
		Find(&requests).Error
	if err != nil {
		return nil, err
	}
	return requests, nil
}
