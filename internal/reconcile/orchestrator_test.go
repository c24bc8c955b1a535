package reconcile

import (
	"context"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/comptoir-erp/comptoir/internal/delivery"
	"github.com/comptoir-erp/comptoir/internal/invoicing"
	"github.com/comptoir-erp/comptoir/internal/notify"
)

type fakeDeliveries struct {
	buildResult   delivery.BuildResult
	buildErr      error
	approveResult delivery.ApproveResult
	approveErr    error
	approveCalls  int
}

func (f *fakeDeliveries) CreateFromOrder(ctx context.Context, orderID int64) (delivery.BuildResult, error) {
	return f.buildResult, f.buildErr
}

func (f *fakeDeliveries) Approve(ctx context.Context, noteID, warehouseID int64, received []delivery.ReceivedItem) (delivery.ApproveResult, error) {
	f.approveCalls++
	if f.approveCalls > 1 {
		return delivery.ApproveResult{}, delivery.ErrAlreadyReceived
	}
	return f.approveResult, f.approveErr
}

type captureNotifier struct {
	messages []notify.Message
}

func (c *captureNotifier) Publish(ctx context.Context, msg notify.Message) {
	c.messages = append(c.messages, msg)
}

func (c *captureNotifier) kinds() []string {
	out := make([]string, 0, len(c.messages))
	for _, m := range c.messages {
		out = append(out, m.Kind)
	}
	return out
}

func TestBuildNotePublishesCreatedOrExists(t *testing.T) {
	notifier := &captureNotifier{}
	deliveries := &fakeDeliveries{buildResult: delivery.BuildResult{Note: delivery.Note{Number: "BL-1"}, Created: true}}
	orch := NewOrchestrator(slog.Default(), deliveries, notifier, nil)

	_, err := orch.BuildNote(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, []string{"delivery_note_created"}, notifier.kinds())
	require.Contains(t, notifier.messages[0].Text, "BL-1")

	deliveries.buildResult.Created = false
	_, err = orch.BuildNote(context.Background(), 1)
	require.NoError(t, err)
	require.Equal(t, "delivery_note_exists", notifier.messages[1].Kind)
	require.Equal(t, notify.SeverityInfo, notifier.messages[1].Severity)
}

func TestReceivePublishesReceptionAndInvoice(t *testing.T) {
	notifier := &captureNotifier{}
	deliveries := &fakeDeliveries{approveResult: delivery.ApproveResult{
		Note:    delivery.Note{Number: "BL-2", Status: delivery.NoteStatusReceived},
		Invoice: &invoicing.PurchaseInvoice{Number: "FA-2", TotalAmount: decimal.NewFromInt(350)},
	}}
	orch := NewOrchestrator(slog.Default(), deliveries, notifier, nil)

	_, err := orch.Receive(context.Background(), 1, 7, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"delivery_received", "invoice_created"}, notifier.kinds())
}

func TestReceiveWithoutInvoiceWarns(t *testing.T) {
	notifier := &captureNotifier{}
	deliveries := &fakeDeliveries{approveResult: delivery.ApproveResult{
		Note: delivery.Note{Number: "BL-3", Status: delivery.NoteStatusReceived},
	}}
	orch := NewOrchestrator(slog.Default(), deliveries, notifier, nil)

	_, err := orch.Receive(context.Background(), 1, 7, nil)
	require.NoError(t, err)
	require.Equal(t, []string{"delivery_received", "nothing_receivable"}, notifier.kinds())
	require.Equal(t, notify.SeverityWarning, notifier.messages[1].Severity)
}

func TestReceiveFailurePublishesErrorOnce(t *testing.T) {
	notifier := &captureNotifier{}
	deliveries := &fakeDeliveries{approveErr: delivery.ErrOverDelivery}
	orch := NewOrchestrator(slog.Default(), deliveries, notifier, nil)

	_, err := orch.Receive(context.Background(), 1, 7, nil)
	require.ErrorIs(t, err, delivery.ErrOverDelivery)
	require.Len(t, notifier.messages, 1)
	require.Equal(t, notify.SeverityError, notifier.messages[0].Severity)
	require.Contains(t, notifier.messages[0].Text, "dépasse")
}

func TestReceiveSecondSubmissionRefused(t *testing.T) {
	notifier := &captureNotifier{}
	deliveries := &fakeDeliveries{approveResult: delivery.ApproveResult{
		Note: delivery.Note{Number: "BL-4", Status: delivery.NoteStatusReceived},
	}}
	orch := NewOrchestrator(slog.Default(), deliveries, notifier, nil)

	_, err := orch.Receive(context.Background(), 1, 7, nil)
	require.NoError(t, err)
	_, err = orch.Receive(context.Background(), 1, 7, nil)
	require.ErrorIs(t, err, delivery.ErrAlreadyReceived)
}
