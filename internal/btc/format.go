package btc

import (
	"fmt"

	"github.com/dustin/go-humanize"
)

const (
	SatsPerBitcoin = 100_000_000

	BitcoinSymbol = "₿"
	SatoshiSymbol = "丰"
)

// FormatBalance печатает баланс в сатоши.
//
// От одного биткоина и выше: "₿ 1.23456789" (ровно 8 знаков после точки).
// Меньше: "丰 123 456" с группировкой по три цифры справа.
func FormatBalance(sats uint64) string {
	if sats >= SatsPerBitcoin {
		return fmt.Sprintf("%s %d.%08d", BitcoinSymbol, sats/SatsPerBitcoin, sats%SatsPerBitcoin)
	}
	// sats < 1e8, во float64 и int представляется точно
	return SatoshiSymbol + " " + humanize.FormatInteger("# ###.", int(sats))
}
