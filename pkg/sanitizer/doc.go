// Package sanitizer normalizes user-supplied values before validation and
// storage.
//
// All functions are idempotent and handle invalid input by returning an empty
// value rather than an error; validation decides what to reject.
//
// Normalization includes:
//   - Slugs: lowercase ASCII words joined by single hyphens ("Rome Colosseum Tour" becomes "rome-colosseum-tour")
//   - Emails: trimmed and lowercased
//   - Phone numbers: E.164 format (+[country][number])
//   - Promo codes: trimmed and uppercased
//   - Domains: lowercased host without scheme, port or trailing dot
//   - Free text: whitespace collapsed and trimmed
//   - Slices: duplicates and empty values removed after normalization
package sanitizer
