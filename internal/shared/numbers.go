package shared

import (
	"fmt"
	"sync"
	"time"
)

// Document number prefixes used across the back office.
const (
	PrefixPurchaseOrder   = "CMD"
	PrefixDeliveryNote    = "BL"
	PrefixPurchaseInvoice = "FA"
	PrefixSalesOrder      = "VTE"
	PrefixSalesInvoice    = "FV"
	PrefixCustomerReturn  = "RT"
)

// DocumentNumberer issues prefixed, time-derived document numbers. The token
// is the wall-clock nanosecond count, forced strictly increasing under the
// mutex, so rapid sequential generation never repeats a number.
type DocumentNumberer struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewDocumentNumberer constructs a numberer backed by the system clock.
func NewDocumentNumberer() *DocumentNumberer {
	return &DocumentNumberer{now: time.Now}
}

// Next returns the next document number for the given prefix.
func (n *DocumentNumberer) Next(prefix string) string {
	n.mu.Lock()
	defer n.mu.Unlock()
	token := n.now().UnixNano()
	if token <= n.last {
		token = n.last + 1
	}
	n.last = token
	return fmt.Sprintf("%s-%d", prefix, token)
}
