package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"backend/internal/model"
	"backend/internal/repository"
	"backend/internal/websocket"
	"backend/internal/workflow"
	"backend/pkg/numwords"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"
)

// --- DTOs ---

type RequestItemDTO struct {
	Details   string          `json:"details" binding:"required"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type PaymentScheduleDTO struct {
	AccountName   string `json:"account_name"`
	AccountNumber string `json:"account_number"`
	BankName      string `json:"bank_name"`
	PlantCode     string `json:"plant_code"`
}

// SaveRequestDTO is the payload for both create and update. Derived
// fields (item amounts, total, amount in words) are never read from it.
type SaveRequestDTO struct {
	Department      string             `json:"department"`
	Purpose         string             `json:"purpose"`
	Notes           string             `json:"notes"`
	Items           []RequestItemDTO   `json:"items"`
	PaymentSchedule PaymentScheduleDTO `json:"payment_schedule"`
}

type TransitionDTO struct {
	Comment string `json:"comment"`
}

type RequestItemResponse struct {
	Details   string          `json:"details"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Amount    decimal.Decimal `json:"amount"`
}

type RequestResponse struct {
	ID              string                `json:"id"`
	RequesterID     string                `json:"requester_id"`
	RequesterName   string                `json:"requester_name"`
	Department      string                `json:"department"`
	Purpose         string                `json:"purpose"`
	Notes           string                `json:"notes,omitempty"`
	Items           []RequestItemResponse `json:"items"`
	TotalAmount     decimal.Decimal       `json:"total_amount"`
	AmountInWords   string                `json:"amount_in_words"`
	PaymentSchedule PaymentScheduleDTO    `json:"payment_schedule"`
	Status          string                `json:"status"`
	ApprovedBy      *string               `json:"approved_by,omitempty"`
	ApproverName    string                `json:"approver_name,omitempty"`
	ApproverComment string                `json:"approver_comment,omitempty"`
	CreatedAt       string                `json:"created_at"`
	UpdatedAt       string                `json:"updated_at"`
	// Transition buttons the acting principal may use, straight from
	// the capability table.
	AllowedActions []workflow.Action `json:"allowed_actions"`
}

// --- Interface ---

type RequestService interface {
	Create(ctx context.Context, p workflow.Principal, req SaveRequestDTO) (*RequestResponse, error)
	Get(ctx context.Context, p workflow.Principal, id string) (*RequestResponse, error)
	List(ctx context.Context, p workflow.Principal, filter repository.RequestFilter) ([]RequestResponse, int64, error)
	Update(ctx context.Context, p workflow.Principal, id string, req SaveRequestDTO) (*RequestResponse, error)
	Delete(ctx context.Context, p workflow.Principal, id string) error
	Transition(ctx context.Context, p workflow.Principal, id string, action workflow.Action, comment string) (*RequestResponse, error)
}

type requestService struct {
	requests  repository.RequestRepository
	users     repository.UserRepository
	txManager repository.TransactionManager
	hub       *websocket.Hub
}

func NewRequestService(requests repository.RequestRepository, users repository.UserRepository, txManager repository.TransactionManager, hub *websocket.Hub) RequestService {
	return &requestService{requests: requests, users: users, txManager: txManager, hub: hub}
}

// --- Validation & normalization ---

// validateSave checks every field constraint and reports all failures
// at once. Derived amounts are recomputed afterwards by normalize.
func validateSave(req SaveRequestDTO) error {
	verr := workflow.NewValidationError()

	if strings.TrimSpace(req.Department) == "" {
		verr.Add("department", "department is required")
	}
	if len(strings.TrimSpace(req.Purpose)) < 3 {
		verr.Add("purpose", "purpose must be at least 3 characters")
	}

	if len(req.Items) == 0 {
		verr.Add("items", "at least one item is required")
	}
	for i, item := range req.Items {
		prefix := fmt.Sprintf("items[%d].", i)
		if strings.TrimSpace(item.Details) == "" {
			verr.Add(prefix+"details", "details are required")
		}
		if !item.Quantity.IsPositive() {
			verr.Add(prefix+"quantity", "quantity must be positive")
		}
		if !item.UnitPrice.IsPositive() {
			verr.Add(prefix+"unit_price", "unit price must be positive")
		}
	}

	if strings.TrimSpace(req.PaymentSchedule.AccountName) == "" {
		verr.Add("payment_schedule.account_name", "account name is required")
	}
	if strings.TrimSpace(req.PaymentSchedule.AccountNumber) == "" {
		verr.Add("payment_schedule.account_number", "account number is required")
	}
	if strings.TrimSpace(req.PaymentSchedule.BankName) == "" {
		verr.Add("payment_schedule.bank_name", "bank name is required")
	}
	if strings.TrimSpace(req.PaymentSchedule.PlantCode) == "" {
		verr.Add("payment_schedule.plant_code", "plant code is required")
	}

	if verr.Empty() {
		return nil
	}
	return verr
}

// normalize recomputes every derived field from the submitted line
// items: per-item amount, the total, and the total spelled out.
func normalize(req SaveRequestDTO) ([]model.RequestItem, decimal.Decimal, string) {
	items := make([]model.RequestItem, 0, len(req.Items))
	total := decimal.Zero
	for i, item := range req.Items {
		amount := item.Quantity.Mul(item.UnitPrice).Round(2)
		total = total.Add(amount)
		items = append(items, model.RequestItem{
			Position:  i,
			Details:   strings.TrimSpace(item.Details),
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    amount,
		})
	}
	return items, total, numwords.Amount(total)
}

// --- Implementation ---

func (s *requestService) Create(ctx context.Context, p workflow.Principal, req SaveRequestDTO) (*RequestResponse, error) {
	if err := validateSave(req); err != nil {
		return nil, err
	}

	requester, err := s.users.GetByID(ctx, p.UserID.String())
	if err != nil {
		return nil, fmt.Errorf("requester not found: %w", err)
	}

	items, total, words := normalize(req)
	request := &model.Request{
		RequesterID:   requester.ID,
		RequesterName: requester.DisplayName,
		Department:    strings.TrimSpace(req.Department),
		Purpose:       strings.TrimSpace(req.Purpose),
		Notes:         req.Notes,
		Items:         items,
		TotalAmount:   total,
		AmountInWords: words,
		PaymentSchedule: model.PaymentSchedule{
			AccountName:   req.PaymentSchedule.AccountName,
			AccountNumber: req.PaymentSchedule.AccountNumber,
			BankName:      req.PaymentSchedule.BankName,
			PlantCode:     req.PaymentSchedule.PlantCode,
		},
		Status: model.StatusPending,
	}

	if err := s.requests.Create(ctx, request); err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp := s.toResponse(request, p)
	s.hub.Publish(websocket.EventRequestCreated, resp)
	return resp, nil
}

func (s *requestService) Get(ctx context.Context, p workflow.Principal, id string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, err
	}

	if !workflow.CanView(p, request) {
		return nil, workflow.ErrUnauthorized
	}

	return s.toResponse(request, p), nil
}

func (s *requestService) List(ctx context.Context, p workflow.Principal, filter repository.RequestFilter) ([]RequestResponse, int64, error) {
	requests, total, err := s.requests.List(ctx, workflow.Scope(p), filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to fetch requests: %w", err)
	}

	result := make([]RequestResponse, 0, len(requests))
	for i := range requests {
		result = append(result, *s.toResponse(&requests[i], p))
	}
	return result, total, nil
}

func (s *requestService) Update(ctx context.Context, p workflow.Principal, id string, req SaveRequestDTO) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	if err := validateSave(req); err != nil {
		return nil, err
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requests.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return findErr
		}

		if !workflow.CanModify(p, request) {
			return workflow.ErrUnauthorized
		}

		items, total, words := normalize(req)
		// status, requester_id and created_at are never touched here;
		// status changes go only through Transition
		request.Department = strings.TrimSpace(req.Department)
		request.Purpose = strings.TrimSpace(req.Purpose)
		request.Notes = req.Notes
		request.TotalAmount = total
		request.AmountInWords = words
		request.PaymentSchedule = model.PaymentSchedule{
			AccountName:   req.PaymentSchedule.AccountName,
			AccountNumber: req.PaymentSchedule.AccountNumber,
			BankName:      req.PaymentSchedule.BankName,
			PlantCode:     req.PaymentSchedule.PlantCode,
		}
		request.UpdatedAt = time.Now()

		if updErr := s.requests.Update(txCtx, request); updErr != nil {
			return fmt.Errorf("failed to update request: %w", updErr)
		}
		if itemsErr := s.requests.ReplaceItems(txCtx, request, items); itemsErr != nil {
			return fmt.Errorf("failed to update request items: %w", itemsErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload request: %w", err)
	}

	resp := s.toResponse(request, p)
	s.hub.Publish(websocket.EventRequestUpdated, resp)
	return resp, nil
}

func (s *requestService) Delete(ctx context.Context, p workflow.Principal, id string) error {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		request, findErr := s.requests.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return findErr
		}

		if !workflow.CanModify(p, request) {
			return workflow.ErrUnauthorized
		}

		return s.requests.Delete(txCtx, requestID)
	})
	if err != nil {
		return err
	}

	s.hub.Publish(websocket.EventRequestDeleted, map[string]string{"id": id})
	return nil
}

func (s *requestService) Transition(ctx context.Context, p workflow.Principal, id string, action workflow.Action, comment string) (*RequestResponse, error) {
	requestID, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("invalid request id: %w", err)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		// Re-read under a row lock: the transition is evaluated against
		// the freshest status, not the one the client rendered.
		request, findErr := s.requests.FindByIDForUpdate(txCtx, requestID)
		if findErr != nil {
			return findErr
		}

		if !workflow.CanView(p, request) {
			return workflow.ErrUnauthorized
		}

		newStatus, trErr := workflow.Transition(request.Status, p.Role, action)
		if trErr != nil {
			return trErr
		}

		request.Status = newStatus
		request.ApprovedBy = &p.UserID
		request.ApproverComment = comment
		request.UpdatedAt = time.Now()

		return s.requests.Update(txCtx, request)
	})
	if err != nil {
		return nil, err
	}

	request, err := s.requests.FindByID(ctx, requestID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload request: %w", err)
	}

	log.WithFields(log.Fields{
		"request": id,
		"action":  action,
		"status":  request.Status,
		"actor":   p.UserID,
	}).Info("Request status changed")

	resp := s.toResponse(request, p)
	s.hub.Publish(websocket.EventRequestStatusChanged, resp)
	return resp, nil
}

// --- Helpers ---

func (s *requestService) toResponse(r *model.Request, p workflow.Principal) *RequestResponse {
	items := make([]RequestItemResponse, 0, len(r.Items))
	for _, item := range r.Items {
		items = append(items, RequestItemResponse{
			Details:   item.Details,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			Amount:    item.Amount,
		})
	}

	resp := &RequestResponse{
		ID:            r.ID.String(),
		RequesterID:   r.RequesterID.String(),
		RequesterName: r.RequesterName,
		Department:    r.Department,
		Purpose:       r.Purpose,
		Notes:         r.Notes,
		Items:         items,
		TotalAmount:   r.TotalAmount,
		AmountInWords: r.AmountInWords,
		PaymentSchedule: PaymentScheduleDTO{
			AccountName:   r.PaymentSchedule.AccountName,
			AccountNumber: r.PaymentSchedule.AccountNumber,
			BankName:      r.PaymentSchedule.BankName,
			PlantCode:     r.PaymentSchedule.PlantCode,
		},
		Status:          r.Status,
		ApproverComment: r.ApproverComment,
		CreatedAt:       r.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       r.UpdatedAt.Format(time.RFC3339),
		AllowedActions:  workflow.AllowedActions(p.Role, r.Status),
	}

	if r.ApprovedBy != nil {
		id := r.ApprovedBy.String()
		resp.ApprovedBy = &id
	}
	if r.Approver != nil {
		resp.ApproverName = r.Approver.DisplayName
	}

	return resp
}
