package gateway

// Outcome is the vendor-neutral reading of a gateway auth status code.
type Outcome int

const (
	OutcomePending Outcome = iota
	OutcomePaid
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomePaid:
		return "paid"
	case OutcomeFailed:
		return "failed"
	default:
		return "pending"
	}
}

// StatusAdapter maps a vendor's auth status sentinel onto an Outcome. Each
// gateway integration defines its own codes, so the mapping is a pluggable
// boundary rather than a hardcoded constant.
type StatusAdapter interface {
	MapAuthStatus(code string) Outcome
}

// BillDesk auth status sentinels.
const (
	BillDeskAuthStatusSuccess = "0300"
	BillDeskAuthStatusFailed  = "0399"
)

// BillDeskAdapter treats any code other than the two terminal sentinels as
// still pending: an unknown code must not fail an order that the gateway may
// yet confirm, reconciliation settles it later.
type BillDeskAdapter struct{}

func NewBillDeskAdapter() BillDeskAdapter {
	return BillDeskAdapter{}
}

func (BillDeskAdapter) MapAuthStatus(code string) Outcome {
	switch code {
	case BillDeskAuthStatusSuccess:
		return OutcomePaid
	case BillDeskAuthStatusFailed:
		return OutcomeFailed
	default:
		return OutcomePending
	}
}
