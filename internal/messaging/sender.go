package messaging

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"
)

// Sender delivers one text message to an opaque recipient id. The
// response string is whatever the transport returned, kept for audit
// detail; it carries no contract.
type Sender interface {
	SendText(ctx context.Context, chatID, text string) (string, error)
}

// TransportError marks a delivery failure (timeout, non-2xx,
// connection refused). The dispatch layer records it as a not-delivered
// outcome instead of letting it crash the engine.
type TransportError struct {
	Transport string
	Status    int // HTTP status when applicable, 0 otherwise
	Err       error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s send failed: status %d: %v", e.Transport, e.Status, e.Err)
	}
	return fmt.Sprintf("%s send failed: %v", e.Transport, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// NewLimiter builds the shared outbound rate limiter. A burst of a few
// messages is allowed so one tick with several due jobs doesn't queue
// each send a full second apart.
func NewLimiter(perSec float64) *rate.Limiter {
	if perSec <= 0 {
		perSec = 1
	}
	return rate.NewLimiter(rate.Limit(perSec), 3)
}
