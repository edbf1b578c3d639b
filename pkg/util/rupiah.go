package util

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var idPrinter = message.NewPrinter(language.Indonesian)

// FormatRupiah formats an amount as "Rp 2.500.000".
func FormatRupiah(amount int64) string {
	if amount < 0 {
		return idPrinter.Sprintf("-Rp %d", -amount)
	}
	return idPrinter.Sprintf("Rp %d", amount)
}

// FormatNumber formats n with Indonesian thousands separators.
func FormatNumber(n int64) string {
	return idPrinter.Sprintf("%d", n)
}
