// Package notify carries user-facing business notifications. Messages are
// written in French, the working language of the back office, and every
// message travels with a machine-readable kind so the UI can style or filter
// them without parsing text.
package notify

import (
	"context"
	"log/slog"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Severity of a notification.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Message is a single fire-and-forget notification.
type Message struct {
	Severity Severity `json:"severity"`
	Kind     string   `json:"kind"`
	Text     string   `json:"text"`
}

// Notifier publishes messages to the end user. Publication carries no
// delivery guarantee; callers never block on it.
type Notifier interface {
	Publish(ctx context.Context, msg Message)
}

// LogNotifier surfaces notifications through the structured logger. It stands
// in for the browser toast layer in headless deployments and tests.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier constructs a LogNotifier.
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Publish logs the message at a level matching its severity.
func (n *LogNotifier) Publish(ctx context.Context, msg Message) {
	if n == nil || n.logger == nil {
		return
	}
	attrs := []any{slog.String("kind", msg.Kind), slog.String("text", msg.Text)}
	switch msg.Severity {
	case SeverityError:
		n.logger.ErrorContext(ctx, "notification", attrs...)
	case SeverityWarning:
		n.logger.WarnContext(ctx, "notification", attrs...)
	default:
		n.logger.InfoContext(ctx, "notification", attrs...)
	}
}

var printer = message.NewPrinter(language.French)

// Amount renders a money amount with French digit grouping.
func Amount(v decimal.Decimal) string {
	f, _ := v.Float64()
	return printer.Sprintf("%.2f", f)
}

// DeliveryNoteCreated announces a freshly created delivery note.
func DeliveryNoteCreated(number string) Message {
	return Message{Severity: SeveritySuccess, Kind: "delivery_note_created", Text: printer.Sprintf("Bon de livraison %s créé avec succès", number)}
}

// DeliveryNoteExists reports the idempotent no-op when a note already covers the order.
func DeliveryNoteExists(number string) Message {
	return Message{Severity: SeverityInfo, Kind: "delivery_note_exists", Text: printer.Sprintf("Un bon de livraison existe déjà pour cette commande : %s", number)}
}

// DeliveryReceived announces a completed reception.
func DeliveryReceived(number string) Message {
	return Message{Severity: SeveritySuccess, Kind: "delivery_received", Text: printer.Sprintf("Réception du bon de livraison %s enregistrée", number)}
}

// InvoiceCreated announces a generated purchase invoice.
func InvoiceCreated(number string, total decimal.Decimal) Message {
	return Message{Severity: SeveritySuccess, Kind: "invoice_created", Text: printer.Sprintf("Facture fournisseur %s créée pour un montant de %s", number, Amount(total))}
}

// NothingReceivable reports the business no-op when no quantity was received.
func NothingReceivable(number string) Message {
	return Message{Severity: SeverityWarning, Kind: "nothing_receivable", Text: printer.Sprintf("Aucune quantité reçue sur le bon %s, aucune facture générée", number)}
}

// OperationFailed surfaces a failed step to the operator.
func OperationFailed(kind string, detail string) Message {
	return Message{Severity: SeverityError, Kind: kind, Text: printer.Sprintf("L'opération a échoué : %s", detail)}
}
