package engine

// Group matching finds 2-3 contact subsets with strong mutual shared
// context. Candidate generation only considers pairs that already share
// at least one group or tag, which keeps the search linear in the
// number of genuinely related pairs rather than O(n^3) over the roster.
//
// Shared-context score (0-100):
//   - group memberships common to every member: 10 points each, max 30
//   - tags common to every member: 10 points each, max 30
//   - voice-capture co-mentions: 5 points each, max 25 (min over pairs)
//   - recent joint interactions: 5 points each, max 15 (min over pairs)
//
// A candidate qualifies at score >= 50. A qualifying pair is greedily
// extended to a triple when a third contact shares an attribute with
// both members and the combined score still clears the bar.

import (
	"sort"
	"strings"
)

// GroupQualifyScore is the minimum shared-context score for a candidate
// group to be proposed.
const GroupQualifyScore = 50

const (
	groupPointsPer = 10
	groupPointsCap = 30
	tagPointsPer   = 10
	tagPointsCap   = 30
	coMentionPer   = 5
	coMentionCap   = 25
	jointInterPer  = 5
	jointInterCap  = 15
)

// PairCounts holds pairwise counters keyed by PairKey.
type PairCounts map[string]int

// PairKey builds the canonical "a|b" key with a < b.
func PairKey(a, b string) string {
	if b < a {
		a, b = b, a
	}
	return a + "|" + b
}

// GroupCandidate is a proposed 2-3 contact gathering.
type GroupCandidate struct {
	ContactIDs   []string // sorted
	Score        int
	SharedGroups []string
	SharedTags   []string
}

func (g GroupCandidate) key() string {
	return strings.Join(g.ContactIDs, "|")
}

// FindGroups returns qualifying group candidates for a roster, sorted by
// score descending then member ids, deterministically.
func FindGroups(contacts []ContactSignals, coMentions, jointInteractions PairCounts) []GroupCandidate {
	byID := make(map[string]ContactSignals, len(contacts))
	ids := make([]string, 0, len(contacts))
	for _, c := range contacts {
		byID[c.ID] = c
		ids = append(ids, c.ID)
	}
	sort.Strings(ids)

	seen := make(map[string]bool)
	var out []GroupCandidate

	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			a, b := byID[ids[i]], byID[ids[j]]
			if !sharesAttribute(a, b) {
				continue
			}

			pair := scoreSet([]ContactSignals{a, b}, coMentions, jointInteractions)
			if pair.Score < GroupQualifyScore {
				continue
			}

			// Greedy extension: best-scoring third that shares an
			// attribute with both members.
			best := pair
			for k := 0; k < len(ids); k++ {
				if k == i || k == j {
					continue
				}
				c := byID[ids[k]]
				if !sharesAttribute(a, c) || !sharesAttribute(b, c) {
					continue
				}
				triple := scoreSet([]ContactSignals{a, b, c}, coMentions, jointInteractions)
				if triple.Score < GroupQualifyScore {
					continue
				}
				if len(best.ContactIDs) == 2 || triple.Score > best.Score {
					best = triple
				}
			}

			if seen[best.key()] {
				continue
			}
			seen[best.key()] = true
			out = append(out, best)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].key() < out[j].key()
	})
	return out
}

// SharedContextScore computes the 0-100 score for an explicit member
// set. Exposed for shared_activity triggers, which score an attendee
// set chosen by the user rather than discovered by candidate search.
func SharedContextScore(members []ContactSignals, coMentions, jointInteractions PairCounts) int {
	return scoreSet(members, coMentions, jointInteractions).Score
}

func scoreSet(members []ContactSignals, coMentions, jointInteractions PairCounts) GroupCandidate {
	ids := make([]string, len(members))
	for i, m := range members {
		ids[i] = m.ID
	}
	sort.Strings(ids)

	sharedGroups := commonStrings(members, func(c ContactSignals) []string { return c.Groups })
	sharedTags := commonStrings(members, func(c ContactSignals) []string { return c.Tags })

	score := min(len(sharedGroups)*groupPointsPer, groupPointsCap)
	score += min(len(sharedTags)*tagPointsPer, tagPointsCap)

	// Pairwise counters use the weakest link so a triple is only as
	// cohesive as its least-connected pair.
	score += min(minPairCount(ids, coMentions)*coMentionPer, coMentionCap)
	score += min(minPairCount(ids, jointInteractions)*jointInterPer, jointInterCap)

	if score > 100 {
		score = 100
	}
	return GroupCandidate{
		ContactIDs:   ids,
		Score:        score,
		SharedGroups: sharedGroups,
		SharedTags:   sharedTags,
	}
}

func sharesAttribute(a, b ContactSignals) bool {
	return intersects(a.Groups, b.Groups) || intersects(a.Tags, b.Tags)
}

func intersects(a, b []string) bool {
	for _, x := range a {
		for _, y := range b {
			if x == y {
				return true
			}
		}
	}
	return false
}

func commonStrings(members []ContactSignals, get func(ContactSignals) []string) []string {
	if len(members) == 0 {
		return nil
	}
	counts := make(map[string]int)
	for _, m := range members {
		seen := make(map[string]bool)
		for _, s := range get(m) {
			if !seen[s] {
				seen[s] = true
				counts[s]++
			}
		}
	}
	var common []string
	for s, n := range counts {
		if n == len(members) {
			common = append(common, s)
		}
	}
	sort.Strings(common)
	return common
}

func minPairCount(sortedIDs []string, counts PairCounts) int {
	if len(counts) == 0 {
		return 0
	}
	lowest := -1
	for i := 0; i < len(sortedIDs); i++ {
		for j := i + 1; j < len(sortedIDs); j++ {
			n := counts[PairKey(sortedIDs[i], sortedIDs[j])]
			if lowest < 0 || n < lowest {
				lowest = n
			}
		}
	}
	if lowest < 0 {
		return 0
	}
	return lowest
}
