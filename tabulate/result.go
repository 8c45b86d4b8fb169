package tabulate

import "clubgov/identity"

// Result is the full report for one ballot tabulation.
type Result struct {
	MyVotes       []uint8        `json:"my_votes"`
	TotalCount    uint64         `json:"total_count"`
	IdentityCount uint64         `json:"identity_count"`
	Options       []OptionResult `json:"results"`
}

// IVoted reports whether the requesting user voted on any option.
func (r *Result) IVoted() bool {
	return len(r.MyVotes) > 0
}

// OptionResult carries one option's share of the tally. Identities is nil
// on anonymous ballots and lists every voter otherwise, ordered by
// identity id.
type OptionResult struct {
	Index      uint8               `json:"index"`
	Text       string              `json:"text"`
	Count      uint64              `json:"count"`
	Percentage float64             `json:"percentage"`
	Identities []identity.Identity `json:"identities,omitempty"`
}
