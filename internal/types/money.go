// README: Common value objects shared across modules.
package types

// Money is an amount in whole currency units. Fee configs never carry
// fractional amounts.
type Money int64

// ID is an opaque row identifier (uuid text).
type ID string
