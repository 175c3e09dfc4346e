// Package fingerprint derives stable identity hashes for flight records.
//
// The fingerprint is computed over the identity fields only (airline,
// source, destination, date of journey, departure time, base fare, total
// fare). Two records that agree on those fields share a fingerprint no
// matter what their remaining fields hold; this is an equality relation
// over the business key, not a full-content hash.
package fingerprint

import (
	"crypto/md5" //nolint:gosec // record identity surrogate, not a security boundary
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/fareflow/fareflow/pkg/flight"
)

// Define static errors
var (
	// ErrUnknownAlgorithm is returned when the configured hash algorithm is not supported
	ErrUnknownAlgorithm = errors.New("unknown hash algorithm")
)

// Algorithm selects the digest used for record fingerprints
type Algorithm string

const (
	// AlgorithmMD5 produces a 32-character hex digest (default)
	AlgorithmMD5 Algorithm = "md5"
	// AlgorithmSHA256 produces a 64-character hex digest
	AlgorithmSHA256 Algorithm = "sha256"
)

// Validate checks that the algorithm is one of the supported selectors
func (a Algorithm) Validate() error {
	switch a {
	case AlgorithmMD5, AlgorithmSHA256:
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAlgorithm, string(a))
	}
}

// HexLength returns the length of the hex digest the algorithm produces
func (a Algorithm) HexLength() int {
	if a == AlgorithmSHA256 {
		return 64
	}

	return 32
}

// Hasher computes record fingerprints with a fixed algorithm
type Hasher struct {
	algorithm Algorithm
}

// New creates a Hasher for the given algorithm. The algorithm must be
// validated up front; an invalid selector is a configuration error.
func New(algorithm Algorithm) (*Hasher, error) {
	if algorithm == "" {
		algorithm = AlgorithmMD5
	}

	if err := algorithm.Validate(); err != nil {
		return nil, err
	}

	return &Hasher{algorithm: algorithm}, nil
}

// Algorithm returns the configured algorithm
func (h *Hasher) Algorithm() Algorithm {
	return h.algorithm
}

// Fingerprint returns the hex digest of the record's identity fields.
// It is a pure function: identical identity fields always yield the
// identical digest, independent of run order or machine. A nil record
// yields the empty-string sentinel, which callers treat as an
// unclassifiable record; no error ever escapes this boundary.
func (h *Hasher) Fingerprint(r *flight.Record) string {
	if r == nil {
		return ""
	}

	key := identityKey(r)

	switch h.algorithm {
	case AlgorithmSHA256:
		sum := sha256.Sum256([]byte(key))
		return hex.EncodeToString(sum[:])
	case AlgorithmMD5:
		sum := md5.Sum([]byte(key)) //nolint:gosec // identity surrogate
		return hex.EncodeToString(sum[:])
	default:
		// Unreachable after New validation; keep the sentinel contract anyway.
		return ""
	}
}

// identityKey renders the identity fields into a canonical ordered string.
// Missing fields render as the empty string; dates use 2006-01-02, times
// of day their canonical 15:04 form, and fares a fixed two decimal places
// so the key is independent of how values were parsed.
func identityKey(r *flight.Record) string {
	date := ""
	if r.HasDate() {
		date = r.DateOfJourney.Format("2006-01-02")
	}

	parts := []string{
		r.Airline,
		r.Source,
		r.Destination,
		date,
		r.DepartureTime,
		r.BaseFare.StringFixed(2),
		r.TotalFare.StringFixed(2),
	}

	return strings.Join(parts, "|")
}
