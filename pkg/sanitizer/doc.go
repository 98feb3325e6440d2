// Package sanitizer provides input normalization for user, listing and
// booking data.
//
// All normalization functions are idempotent - applying them multiple times produces
// the same result. Functions handle invalid input gracefully, typically by returning
// empty strings or empty slices rather than errors. Validation runs after
// sanitization and rejects whatever is left unusable.
//
// Normalization includes:
//   - Phone numbers: Convert to E.164 format (+[country][number])
//   - Emails: Trim and lowercase
//   - Display text (names, titles, locations): Collapse whitespace, trim
//   - Amenities: Collapse whitespace, drop empties and case-insensitive duplicates, keep order
//   - Image URLs: Trim, require an http(s) scheme and a host
//   - Currency codes: Trim and lowercase
package sanitizer
