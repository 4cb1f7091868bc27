package gateway

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"gradreg/internal/common/gatewayprotocol"
	"gradreg/pkg/envelope"
)

const (
	itemCodeDirect         = "DIRECT"
	initChannelInternet    = "internet"
	additionalInfoSentinel = "NA"

	// The protocol revisions observed in the wild carry between 3 and 7
	// additional_info slots; the exact count is configuration.
	MinAdditionalInfoSlots = 3
	MaxAdditionalInfoSlots = 7

	orderIDBytes = 16
)

var (
	orderIDPattern           = regexp.MustCompile(`^[A-Za-z0-9]{10,35}$`)
	additionalInfoDisallowed = regexp.MustCompile(`[^A-Za-z0-9@,.\- ]`)
)

// NewOrderID returns a 32-character uppercase hex merchant order id.
func NewOrderID() (string, error) {
	buf := make([]byte, orderIDBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return strings.ToUpper(hex.EncodeToString(buf)), nil
}

// ValidOrderID reports whether id satisfies the gateway's merchant order id
// constraints: alphanumeric only, 10-35 characters.
func ValidOrderID(id string) bool {
	return orderIDPattern.MatchString(id)
}

// OrderParams carries everything needed to assemble a create-order payload.
type OrderParams struct {
	MercID              string
	OrderID             string
	Amount              decimal.Decimal
	Currency            string
	ReturnURL           string
	AdditionalInfo      []string
	AdditionalInfoSlots int
	ClientIP            string
	UserAgent           string
	OrderDate           time.Time
}

// BuildOrderRequest assembles the canonical order-creation payload. The
// return URL is rejected before any network activity if it carries a query
// string. Every additional_info slot is filled: values are sanitized to the
// gateway's allow-listed character set and absent values become "NA".
func BuildOrderRequest(p OrderParams) (*gatewayprotocol.OrderRequest, error) {
	if strings.ContainsAny(p.ReturnURL, "?&") {
		return nil, ErrInvalidReturnURL
	}

	slots := p.AdditionalInfoSlots
	if slots < MinAdditionalInfoSlots {
		slots = MinAdditionalInfoSlots
	}
	if slots > MaxAdditionalInfoSlots {
		slots = MaxAdditionalInfoSlots
	}

	additionalInfo := make(map[string]string, slots)
	for i := 0; i < slots; i++ {
		value := additionalInfoSentinel
		if i < len(p.AdditionalInfo) {
			value = sanitizeAdditionalInfo(p.AdditionalInfo[i])
		}
		additionalInfo[fmt.Sprintf("additional_info%d", i+1)] = value
	}

	return &gatewayprotocol.OrderRequest{
		MercID:         p.MercID,
		OrderID:        p.OrderID,
		Amount:         p.Amount.StringFixed(2),
		OrderDate:      envelope.InIST(p.OrderDate).Format(time.RFC3339),
		Currency:       p.Currency,
		ReturnURL:      p.ReturnURL,
		AdditionalInfo: additionalInfo,
		ItemCode:       itemCodeDirect,
		Device: gatewayprotocol.Device{
			InitChannel:  initChannelInternet,
			IP:           p.ClientIP,
			UserAgent:    p.UserAgent,
			AcceptHeader: "text/html",
		},
	}, nil
}

func sanitizeAdditionalInfo(value string) string {
	sanitized := strings.TrimSpace(additionalInfoDisallowed.ReplaceAllString(value, ""))
	if sanitized == "" {
		return additionalInfoSentinel
	}
	return sanitized
}
