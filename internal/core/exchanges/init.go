// Package exchanges registers every supported export format with the core
// registry. Import this package for its side effect:
//
//	import _ "github.com/JonMunkholm/coinconvert/internal/core/exchanges"
//
// Each exchange file uses init() to register its schemas.
package exchanges
