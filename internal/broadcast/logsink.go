package broadcast

import (
	"log/slog"

	"github.com/efreitasn/donutexchange/internal/domain"
)

// LogSink is the local EventSink: every event becomes one structured
// slog line. Useful standalone and as an always-on observer alongside
// remote sinks.
type LogSink struct {
	logger *slog.Logger
}

// NewLogSink creates a LogSink writing through logger.
func NewLogSink(logger *slog.Logger) *LogSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSink{logger: logger}
}

func (s *LogSink) OnEvent(evt domain.Event) {
	switch evt.Kind {
	case domain.EventTradeExecuted:
		t := evt.Trade
		s.logger.Info("trade executed",
			slog.String("productId", t.ProductID),
			slog.Int64("quantity", t.Quantity),
			slog.String("price", t.PricePerUnit.String()),
			slog.String("buyerOutletId", t.BuyerOutletID),
			slog.String("sellerOutletId", t.SellerOutletID),
		)
	case domain.EventBookUpdated:
		s.logger.Debug("book updated", slog.String("productId", evt.BookProductID))
	case domain.EventCustomerPurchased:
		sale := evt.Sale
		s.logger.Info("customer purchase",
			slog.String("outletId", sale.OutletID),
			slog.String("productId", sale.ProductID),
			slog.Int64("quantity", sale.Quantity),
			slog.String("revenue", sale.Revenue.String()),
		)
	case domain.EventError:
		s.logger.Warn("exchange error", slog.String("source", evt.ErrorSource), slog.String("message", evt.ErrorMessage))
	}
}
