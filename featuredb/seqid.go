package featuredb

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrSeqIDNotFound is returned by MatchSeqID when no sequence ID matches.
var ErrSeqIDNotFound = errors.New("no matching sequence ID")

// SeqIDMatch is the result of MatchSeqID.
type SeqIDMatch struct {
	// SeqID is the matched sequence ID as stored in the database.
	SeqID string

	// Exact reports a case-insensitive exact match.
	Exact bool

	// Ambiguous reports that several sequence IDs matched the suffix
	// pattern and the first one was taken.
	Ambiguous bool

	// Candidates lists every suffix match when Ambiguous is set.
	Candidates []string
}

// MatchSeqID resolves a user-supplied chromosome name such as "A01" to a
// full sequence ID such as "Ghir_A01". A case-insensitive exact match
// wins. Otherwise a sequence ID matches when it equals chrom or ends
// with chrom preceded by a non-alphanumeric character. When several
// match, the first in seqids order is returned with Ambiguous set.
func MatchSeqID(seqids []string, chrom string) (*SeqIDMatch, error) {
	chrom = strings.TrimSpace(chrom)
	if chrom == "" {
		return nil, fmt.Errorf("%w: empty chromosome name", ErrSeqIDNotFound)
	}

	for _, s := range seqids {
		if strings.EqualFold(s, chrom) {
			return &SeqIDMatch{SeqID: s, Exact: true}, nil
		}
	}

	q := regexp.QuoteMeta(chrom)
	pattern := regexp.MustCompile(`(?i)^(?:.*[^a-zA-Z0-9]` + q + `|` + q + `)$`)

	var matches []string
	for _, s := range seqids {
		if pattern.MatchString(s) {
			matches = append(matches, s)
		}
	}

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %q", ErrSeqIDNotFound, chrom)
	case 1:
		return &SeqIDMatch{SeqID: matches[0]}, nil
	default:
		return &SeqIDMatch{SeqID: matches[0], Ambiguous: true, Candidates: matches}, nil
	}
}
