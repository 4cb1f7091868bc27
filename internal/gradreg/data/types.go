package data

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	NullStatus    = Status("")
	PendingStatus = Status("pending")
	PaidStatus    = Status("paid")
	FailedStatus  = Status("failed")
)

// Terminal reports whether s admits no further transitions.
func (s Status) Terminal() bool {
	return s == PaidStatus || s == FailedStatus
}

// Order is the payable unit. It is created pending at order-creation time,
// mutated exactly once into a terminal status, and never deleted.
type Order struct {
	OrderID             string
	RegistrationID      int64
	Amount              decimal.Decimal
	Currency            string
	Status              Status
	GatewayOrderID      string
	TransactionID       string
	PaymentMethodType   string
	BankReference       string
	ErrorCode           string
	ErrorDesc           string
	ReceiptNumber       string
	ReceiptGeneratedAt  *time.Time
	RawRequestEnvelope  string
	RawResponseEnvelope string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

type Registration struct {
	ID                    int64
	Name                  string
	UniversityRegisterNo  string
	CollegeRollNo         string
	Degree                string
	Course                string
	WhatsappNumber        string
	Email                 string
	Gender                string
	Address               string
	PursuingHigherStudies bool
	HSCourseName          string
	HSInstitutionName     string
	Employed              bool
	LunchRequired         string
	CompanionOption       string
	CreatedAt             time.Time
}

// TerminalTransition carries everything a single conditional status update
// needs. RawResponseEnvelope is stored verbatim for audit.
type TerminalTransition struct {
	OrderID             string
	Status              Status
	GatewayOrderID      string
	TransactionID       string
	PaymentMethodType   string
	BankReference       string
	ErrorCode           string
	ErrorDesc           string
	ReceiptNumber       string
	ReceiptGeneratedAt  *time.Time
	RawResponseEnvelope string
}
