package envelope

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// Correlation headers attached to every outbound gateway request. They are
// logged for traceability and never placed inside the signed payload.
const (
	TraceIDHeader   = "bd-traceid"
	TimestampHeader = "bd-timestamp"
)

var ErrTraceIDGeneration = errors.New("failed to generate a valid trace id")

// The gateway expects timestamps in its own zone regardless of where the
// merchant runs.
var istLocation = time.FixedZone("IST", 5*60*60+30*60)

// TimestampCompact renders t as the 14-digit yyyyMMddHHmmss form.
func TimestampCompact(t time.Time) string {
	return t.In(istLocation).Format("20060102150405")
}

// InIST shifts t into the gateway's zone. Order dates and timestamps are
// both expressed in it.
func InIST(t time.Time) time.Time {
	return t.In(istLocation)
}

var traceIDPattern = regexp.MustCompile(`^[A-Za-z0-9]{10,35}$`)

const (
	traceIDBytes       = 10
	maxTraceIDAttempts = 5
)

// NewTraceID returns a 10-35 character alphanumeric trace id. Generation is
// retried a bounded number of times against the validity pattern.
func NewTraceID() (string, error) {
	for attempt := 0; attempt < maxTraceIDAttempts; attempt++ {
		buf := make([]byte, traceIDBytes)
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		traceID := hex.EncodeToString(buf)
		if traceIDPattern.MatchString(traceID) {
			return traceID, nil
		}
	}
	return "", ErrTraceIDGeneration
}
