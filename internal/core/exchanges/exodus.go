package exchanges

import "github.com/JonMunkholm/coinconvert/internal/core"

func init() {
	registerExodusTransactions()
}

// Exodus exports only hold deposits and withdrawals. The header is
// recognized so the user gets a precise message, but there is no converter.
func registerExodusTransactions() {
	core.Register(core.SchemaDefinition{
		Info: core.SchemaInfo{
			Key:      "exodus0",
			Exchange: "Exodus",
			Label:    "All transactions",
		},
		Signature: core.Signature{
			"DATE", "TYPE", "OUTAMOUNT", "OUTCURRENCY", "FEEAMOUNT", "FEECURRENCY", "OUTTXID",
			"OUTTXURL", "INAMOUNT", "INCURRENCY", "INTXID", "INTXURL", "ORDERID",
		},
	})
}
