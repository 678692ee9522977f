package util

import (
	"fmt"
	"math/big"
	"strings"
	"yieldpool/internal/models"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const displayDecimals = 4

// FormatAmount renders a token amount for people: grouped thousands and at
// most four fractional digits, truncated.
func FormatAmount(a models.Amount) string {
	whole, frac, _ := strings.Cut(a.Decimal(), ".")

	printer := message.NewPrinter(language.English)
	if n, ok := new(big.Int).SetString(whole, 10); ok && n.IsInt64() {
		whole = printer.Sprintf("%d", n.Int64())
	}

	if len(frac) > displayDecimals {
		frac = frac[:displayDecimals]
	}
	frac = strings.TrimRight(frac, "0")
	if frac == "" {
		return whole
	}
	return whole + "." + frac
}

// ShortAccount trims long account ids to head…tail for messages.
func ShortAccount(account string) string {
	if len(account) <= 16 {
		return account
	}
	return fmt.Sprintf("%s…%s", account[:6], account[len(account)-6:])
}
