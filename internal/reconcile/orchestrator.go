// Package reconcile drives the delivery reconciliation flow end to end:
// building a delivery note from an approved purchase order, then turning a
// reception into stock and a payable invoice. It owns the operator-facing
// notifications so the underlying services stay silent.
package reconcile

import (
	"context"
	"errors"
	"log/slog"

	"github.com/comptoir-erp/comptoir/internal/delivery"
	"github.com/comptoir-erp/comptoir/internal/notify"
	"github.com/comptoir-erp/comptoir/internal/observability"
)

// DeliveryService is the slice of the delivery service the orchestrator uses.
type DeliveryService interface {
	CreateFromOrder(ctx context.Context, orderID int64) (delivery.BuildResult, error)
	Approve(ctx context.Context, noteID, warehouseID int64, received []delivery.ReceivedItem) (delivery.ApproveResult, error)
}

// Orchestrator sequences the reconciliation steps and publishes the outcome.
type Orchestrator struct {
	logger     *slog.Logger
	deliveries DeliveryService
	notifier   notify.Notifier
	metrics    *observability.Metrics
}

// NewOrchestrator constructs an Orchestrator. metrics may be nil.
func NewOrchestrator(logger *slog.Logger, deliveries DeliveryService, notifier notify.Notifier, metrics *observability.Metrics) *Orchestrator {
	return &Orchestrator{logger: logger, deliveries: deliveries, notifier: notifier, metrics: metrics}
}

// BuildNote creates the delivery note for an order and notifies the operator
// whether it was created or already existed.
func (o *Orchestrator) BuildNote(ctx context.Context, orderID int64) (delivery.BuildResult, error) {
	result, err := o.deliveries.CreateFromOrder(ctx, orderID)
	if err != nil {
		o.publishFailure(ctx, "delivery_note_failed", err)
		return delivery.BuildResult{}, err
	}
	if result.Created {
		o.publish(ctx, notify.DeliveryNoteCreated(result.Note.Number))
	} else {
		o.publish(ctx, notify.DeliveryNoteExists(result.Note.Number))
	}
	return result, nil
}

// Receive approves a delivery note and reports each downstream effect: the
// reception itself, the generated invoice, or the warning when nothing was
// received and no invoice exists.
func (o *Orchestrator) Receive(ctx context.Context, noteID, warehouseID int64, received []delivery.ReceivedItem) (delivery.ApproveResult, error) {
	result, err := o.deliveries.Approve(ctx, noteID, warehouseID, received)
	if err != nil {
		o.publishFailure(ctx, "delivery_receive_failed", err)
		return delivery.ApproveResult{}, err
	}
	o.publish(ctx, notify.DeliveryReceived(result.Note.Number))
	if o.metrics != nil {
		o.metrics.CountReceipt()
	}
	if result.Invoice != nil {
		if o.metrics != nil {
			o.metrics.CountInvoice()
		}
		o.publish(ctx, notify.InvoiceCreated(result.Invoice.Number, result.Invoice.TotalAmount))
	} else {
		o.publish(ctx, notify.NothingReceivable(result.Note.Number))
	}
	return result, nil
}

func (o *Orchestrator) publish(ctx context.Context, msg notify.Message) {
	if o.notifier != nil {
		o.notifier.Publish(ctx, msg)
	}
}

func (o *Orchestrator) publishFailure(ctx context.Context, kind string, err error) {
	detail := operatorDetail(err)
	o.logger.ErrorContext(ctx, "reconciliation step failed", slog.String("kind", kind), slog.Any("error", err))
	o.publish(ctx, notify.OperationFailed(kind, detail))
}

// operatorDetail translates domain sentinels into operator wording. Unmatched
// errors surface a generic message; internals never leak to the user.
func operatorDetail(err error) string {
	switch {
	case errors.Is(err, delivery.ErrEmptyOrder):
		return "la commande ne contient aucun article"
	case errors.Is(err, delivery.ErrOrderNotApproved):
		return "la commande n'est pas approuvée"
	case errors.Is(err, delivery.ErrAlreadyReceived):
		return "le bon de livraison est déjà réceptionné"
	case errors.Is(err, delivery.ErrOverDelivery):
		return "la quantité reçue dépasse la quantité commandée"
	case errors.Is(err, delivery.ErrNotFound):
		return "le bon de livraison est introuvable"
	default:
		return "une erreur interne est survenue"
	}
}
