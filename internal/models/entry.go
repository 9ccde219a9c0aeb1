package models

import (
	"strings"

	"github.com/costbook/reconciler/internal/types"
	"github.com/shopspring/decimal"
	"golang.org/x/text/unicode/norm"
	"gorm.io/gorm"
)

// Kind is the type of a ledger entry.
type Kind string

const (
	KindExpense Kind = "EXPENSE"
	KindReceipt Kind = "RECEIPT"
)

// Entry represents one row of the ledger: either a regular transaction, an
// installment generated from a template, or the template itself.
//
// A template is the single entry defining a recurring expense. It carries
// IsTemplate = true, the total number of monthly installments in
// DurationMonths and InstallmentNumber = 1. The generated installments share
// its description and cost center and carry installment numbers 2..N.
type Entry struct {
	DefaultModel
	Kind              Kind `gorm:"index"`
	Status            string
	CostCenterID      string `gorm:"index"`
	EquipmentID       string
	Value             decimal.Decimal `gorm:"type:DECIMAL(20,8)"`
	Date              types.Date
	Category          string
	Sector            string
	Description       string `gorm:"index"`
	PaymentMethod     string
	Reference         string
	IsTemplate        bool `gorm:"index"`
	DurationMonths    *int // Only set on templates
	InstallmentNumber *int // Nil only on rows predating installment tracking
}

// BeforeSave trims whitespace from the labeling fields and normalizes the
// description to NFC. Clients send both composed and decomposed unicode for
// the same text, and the description takes part in grouping keys.
func (e *Entry) BeforeSave(_ *gorm.DB) (err error) {
	e.Status = strings.TrimSpace(e.Status)
	e.Category = strings.TrimSpace(e.Category)
	e.Sector = strings.TrimSpace(e.Sector)
	e.PaymentMethod = strings.TrimSpace(e.PaymentMethod)
	e.Reference = strings.TrimSpace(e.Reference)
	e.Description = norm.NFC.String(strings.TrimSpace(e.Description))

	return nil
}

// IsMalformedTemplate reports whether the entry claims to be a template but
// does not carry a usable duration. Such entries are never expanded and never
// deleted, see ErrMalformedTemplate.
func (e Entry) IsMalformedTemplate() bool {
	return e.IsTemplate && (e.DurationMonths == nil || *e.DurationMonths < 1)
}
