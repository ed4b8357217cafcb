// Package currencies holds the ISO 4217 codes the engine accepts.
// Payments and subscriptions validate against the same set, so a
// subscription can never be created in a currency its recurring
// charges would reject.
package currencies

var recognized = map[string]bool{
	"USD": true,
	"EUR": true,
	"GBP": true,
	"CAD": true,
	"AUD": true,
	"JPY": true,
	"BRL": true,
	"MXN": true,
}

// Recognized reports whether code is a recognized ISO 4217 currency.
func Recognized(code string) bool {
	return recognized[code]
}
