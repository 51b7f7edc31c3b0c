package bot

import (
	"context"
	"log/slog"

	"github.com/Niro-Programe/Fergando-MD/internal/core/domain"
	"github.com/Niro-Programe/Fergando-MD/internal/core/service"
)

// ReceiptLogger logs messages that reached their recipient.
type ReceiptLogger struct {
	logger *slog.Logger
}

var _ service.StatusObserver = (*ReceiptLogger)(nil)

func NewReceiptLogger(logger *slog.Logger) *ReceiptLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReceiptLogger{logger: logger.With("component", "receipts")}
}

func (l *ReceiptLogger) ObserveReceipts(ctx context.Context, receipts []domain.Receipt) {
	for _, r := range receipts {
		if r.Status < domain.ReceiptDeliveryAck {
			continue
		}
		l.logger.InfoContext(ctx, "message delivered",
			"message_id", r.MessageID,
			"chat", r.Chat,
			"status", r.Status.String())
	}
}
