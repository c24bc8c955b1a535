package shared

import (
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDocumentNumbererPrefix(t *testing.T) {
	n := NewDocumentNumberer()
	got := n.Next(PrefixDeliveryNote)
	require.True(t, strings.HasPrefix(got, "BL-"))
}

func TestDocumentNumbererUniqueUnderLoad(t *testing.T) {
	n := NewDocumentNumberer()
	seen := make(map[string]struct{}, 1000)
	for i := 0; i < 1000; i++ {
		num := n.Next(PrefixDeliveryNote)
		_, dup := seen[num]
		require.False(t, dup, "duplicate number %s", num)
		seen[num] = struct{}{}
	}
}

func TestDocumentNumbererFrozenClock(t *testing.T) {
	frozen := time.Unix(1700000000, 0)
	n := &DocumentNumberer{now: func() time.Time { return frozen }}
	first := n.Next(PrefixPurchaseInvoice)
	second := n.Next(PrefixPurchaseInvoice)
	require.NotEqual(t, first, second)
}

func TestDocumentNumbererConcurrent(t *testing.T) {
	n := NewDocumentNumberer()
	var mu sync.Mutex
	seen := make(map[string]struct{})
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				num := n.Next(PrefixSalesOrder)
				mu.Lock()
				seen[num] = struct{}{}
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	require.Len(t, seen, 800)
}
