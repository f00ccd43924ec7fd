package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Request status enum constants. "rejected" and "completed" are terminal.
const (
	StatusPending      = "pending"
	StatusPassed       = "passed"
	StatusNotPassed    = "not passed"
	StatusApproved     = "approved"
	StatusRejected     = "rejected"
	StatusCompleted    = "completed"
	StatusNotCompleted = "not completed"
)

// Request represents a petty-cash spending request moving through the
// superior -> administrator -> accountant approval chain.
type Request struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	RequesterID   uuid.UUID `gorm:"type:uuid;not null;index" json:"requester_id"`
	RequesterName string    `gorm:"type:varchar(255);not null" json:"requester_name"`
	Requester     *User     `gorm:"foreignKey:RequesterID" json:"requester,omitempty"`

	Department string `gorm:"type:varchar(255);not null" json:"department"`
	Purpose    string `gorm:"type:varchar(255);not null" json:"purpose"`
	Notes      string `gorm:"type:text" json:"notes"`

	Items []RequestItem `gorm:"foreignKey:RequestID;constraint:OnDelete:CASCADE" json:"items"`

	// Derived from Items on every write; never taken from the client.
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"total_amount"`
	AmountInWords string          `gorm:"type:text;not null" json:"amount_in_words"`

	PaymentSchedule PaymentSchedule `gorm:"embedded;embeddedPrefix:payment_" json:"payment_schedule"`

	Status string `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`

	ApprovedBy      *uuid.UUID `gorm:"type:uuid" json:"approved_by"`
	Approver        *User      `gorm:"foreignKey:ApprovedBy" json:"approver,omitempty"`
	ApproverComment string     `gorm:"type:text" json:"approver_comment"`

	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// RequestItem is a single line of the schedule of items requested.
// Amount is always quantity * unit_price rounded to 2 decimal places.
type RequestItem struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey" json:"-"`
	RequestID uuid.UUID       `gorm:"type:uuid;not null;index" json:"-"`
	Position  int             `gorm:"not null" json:"-"`
	Details   string          `gorm:"type:varchar(255);not null" json:"details"`
	Quantity  decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"quantity"`
	UnitPrice decimal.Decimal `gorm:"type:decimal(18,4);not null" json:"unit_price"`
	Amount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
}

// PaymentSchedule carries the beneficiary account details. All fields required.
type PaymentSchedule struct {
	AccountName   string `gorm:"type:varchar(255);not null" json:"account_name"`
	AccountNumber string `gorm:"type:varchar(64);not null" json:"account_number"`
	BankName      string `gorm:"type:varchar(255);not null" json:"bank_name"`
	PlantCode     string `gorm:"type:varchar(64);not null" json:"plant_code"`
}

// IDs are assigned client-side so the models work on both postgres and
// the sqlite driver used in tests.
func (r *Request) BeforeCreate(tx *gorm.DB) error {
	if r.ID == uuid.Nil {
		r.ID = uuid.New()
	}
	return nil
}

func (i *RequestItem) BeforeCreate(tx *gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
