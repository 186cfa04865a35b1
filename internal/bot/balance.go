package bot

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/EgorLis/bitacbot/internal/btc"
	"github.com/EgorLis/bitacbot/internal/explorer"
	"github.com/EgorLis/bitacbot/internal/nostr"
)

const (
	NoAddressReply    = "Please send me a valid bitcoin address."
	BalanceErrorReply = "Error getting balance."
)

// BalanceSource: источник баланса адреса в сатоши (explorer.Client).
type BalanceSource interface {
	Balance(ctx context.Context, address string) (uint64, error)
}

// balanceHandler, команда по умолчанию. Адрес из текста, баланс через
// эксплорер, ответ в ₿ или 丰.
func (b *Bot) balanceHandler(ctx context.Context, ev *nostr.Event) string {
	address, ok := btc.ExtractAddress(ev.Content)
	if !ok {
		b.metrics.lookup("no_address")
		return NoAddressReply
	}

	log := b.logger.With(zap.String("event", ev.ID), zap.String("address", address))
	sats, err := b.balances.Balance(ctx, address)
	if err != nil {
		b.metrics.lookup("error")
		var se *explorer.StatusError
		switch {
		case errors.As(err, &se):
			log.Warn("explorer returned error status", zap.Int("status", se.StatusCode))
		case errors.Is(err, context.Canceled):
			log.Debug("lookup canceled")
		default:
			log.Warn("balance lookup failed", zap.Error(err))
		}
		return BalanceErrorReply
	}

	b.metrics.lookup("ok")
	log.Debug("balance", zap.Uint64("sats", sats))
	return btc.FormatBalance(sats)
}
