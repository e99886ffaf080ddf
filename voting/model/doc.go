// Package model defines the stored entities of a voting session.
//
// A Session is identified internally by a UUID and externally by a short
// access code that participants type to join. Users, Cards and Votes all
// belong to exactly one session. A user may vote at most once per card;
// stores enforce that uniqueness.
//
// Access codes are six characters drawn from upper-case letters and digits
// with the easily confused 0/O and 1/I removed. Lookups normalize codes with
// NormalizeAccessCode, so "xyz789" and "XYZ789" name the same session.
//
// The Validate* helpers return errors wrapping ErrInvalidInput and trim the
// fields they check in place.
package model
