package tabulate

import (
	"bytes"
	"sort"

	"github.com/google/uuid"

	"clubgov/ballot"
	"clubgov/identity"
)

// Tabulate turns one ballot's vote snapshot into a Result. votes must be a
// single consistent snapshot of the ballot's votes; mine is the requesting
// user's identity-id union; roster maps identity ids to records and is
// consulted only for non-anonymous ballots.
//
// The computation is pure and synchronous: all I/O happens before this
// call. Votes on the abstention index or on indices outside the option
// list are ignored everywhere, including the distinct-identity count.
func Tabulate(b *ballot.Ballot, votes []ballot.Vote, mine identity.IDSet, roster map[uuid.UUID]identity.Identity) *Result {
	counts := make([]uint64, len(b.Options))
	voters := make([][]uuid.UUID, len(b.Options))
	distinct := make(map[uuid.UUID]struct{})
	mySet := make(map[uint8]struct{})

	for _, v := range votes {
		if v.OptionIndex == ballot.AbstentionIndex || int(v.OptionIndex) > len(b.Options) {
			continue
		}
		pos := int(v.OptionIndex) - 1
		counts[pos]++
		distinct[v.IdentityID] = struct{}{}
		if mine.Contains(v.IdentityID) {
			mySet[v.OptionIndex] = struct{}{}
		}
		if !b.Anonymous {
			voters[pos] = append(voters[pos], v.IdentityID)
		}
	}

	var total uint64
	for _, c := range counts {
		total += c
	}

	// Zero votes short-circuits apportionment; Apportion would otherwise
	// divide by the total.
	shares := Apportion(counts, total)

	res := &Result{
		MyVotes:       sortedIndices(mySet),
		TotalCount:    total,
		IdentityCount: uint64(len(distinct)),
		Options:       make([]OptionResult, len(b.Options)),
	}

	for i, o := range b.Options {
		or := OptionResult{
			Index:      o.Index,
			Text:       o.Text,
			Count:      counts[i],
			Percentage: float64(shares[i]) / 100,
		}
		if !b.Anonymous {
			or.Identities = resolveVoters(voters[i], roster)
		}
		res.Options[i] = or
	}
	return res
}

func sortedIndices(set map[uint8]struct{}) []uint8 {
	out := make([]uint8, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// resolveVoters maps voter ids through the roster, ordered by id so the
// listing is stable across runs regardless of vote insertion order.
func resolveVoters(ids []uuid.UUID, roster map[uuid.UUID]identity.Identity) []identity.Identity {
	out := make([]identity.Identity, 0, len(ids))
	sort.Slice(ids, func(a, b int) bool {
		return bytes.Compare(ids[a][:], ids[b][:]) < 0
	})
	for _, id := range ids {
		if rec, ok := roster[id]; ok {
			out = append(out, rec)
			continue
		}
		out = append(out, identity.Identity{ID: id})
	}
	return out
}
