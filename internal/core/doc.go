// Package core provides the conversion pipeline for exchange exports.
//
// This package holds the domain logic independent of any transport: the
// CLI and the web server both drive a [Service].
//
// # Schema Registry
//
// Export formats are registered at init time using [Register]. Each
// [SchemaDefinition] binds an exact, ordered header to a converter:
//
//	core.Register(core.SchemaDefinition{
//	    Info:      core.SchemaInfo{Key: "bitfinex0", Exchange: "Bitfinex", Label: "Trades"},
//	    Signature: core.Signature{"#", "PAIR", "AMOUNT", "PRICE", "FEE", "FEE CURRENCY", "DATE", "ORDER ID"},
//	    Convert:   convertBitfinex,
//	})
//
// [Identify] compares headers as ordered sequences. Column order, case and
// whitespace all matter; a permutation of a known header is unknown.
//
// # Pipeline
//
//  1. Read the CSV or XLSX file into a table
//  2. Identify the schema ([ErrUnknownSchema], [ErrNotSupported])
//  3. Convert to the unified columns
//  4. Check the mandatory columns ([ErrSchemaViolation])
//  5. Keep BUY and SELL rows, report the rest ([FilterRows])
//  6. Write "<stem>_converted.csv" next to the input ([ErrWrite])
//  7. Summarize ([Summary])
//
// # Error Handling
//
// Technical errors are mapped to fixed user-facing messages using
// [MapError]. Each kind has a code for support reference (SCH, INT, REC,
// RATE, VAL, FILE, UPL).
package core
