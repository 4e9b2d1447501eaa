package engine

import (
	"testing"
)

func groupContact(id string, groups, tags []string) ContactSignals {
	return ContactSignals{ID: id, Groups: groups, Tags: tags}
}

func TestFindGroupsRequiresSharedAttribute(t *testing.T) {
	contacts := []ContactSignals{
		groupContact("a", []string{"college"}, nil),
		groupContact("b", nil, []string{"climbing"}),
	}
	got := FindGroups(contacts, nil, nil)
	if len(got) != 0 {
		t.Errorf("found %d groups among unrelated contacts, want 0", len(got))
	}
}

func TestFindGroupsQualifyThreshold(t *testing.T) {
	// One shared group (10) + one shared tag (10) = 20: below the bar.
	weak := []ContactSignals{
		groupContact("a", []string{"college"}, []string{"climbing"}),
		groupContact("b", []string{"college"}, []string{"climbing"}),
	}
	if got := FindGroups(weak, nil, nil); len(got) != 0 {
		t.Errorf("weak pair qualified with score %d", got[0].Score)
	}

	// Three shared groups (30) + two shared tags (20) = 50: qualifies.
	strong := []ContactSignals{
		groupContact("a", []string{"college", "book club", "trivia"}, []string{"climbing", "cooking"}),
		groupContact("b", []string{"college", "book club", "trivia"}, []string{"climbing", "cooking"}),
	}
	got := FindGroups(strong, nil, nil)
	if len(got) != 1 {
		t.Fatalf("found %d groups, want 1", len(got))
	}
	if got[0].Score != 50 {
		t.Errorf("score = %d, want 50", got[0].Score)
	}
	if len(got[0].ContactIDs) != 2 {
		t.Errorf("group size = %d, want 2", len(got[0].ContactIDs))
	}
}

func TestFindGroupsCoMentionsAndJointInteractions(t *testing.T) {
	contacts := []ContactSignals{
		groupContact("a", []string{"college"}, nil),
		groupContact("b", []string{"college"}, nil),
	}
	co := PairCounts{PairKey("a", "b"): 10}    // capped at 25
	joint := PairCounts{PairKey("a", "b"): 5}  // capped at 15

	got := FindGroups(contacts, co, joint)
	if len(got) != 1 {
		t.Fatalf("found %d groups, want 1", len(got))
	}
	// 10 (group) + 25 (co-mentions) + 15 (joint) = 50
	if got[0].Score != 50 {
		t.Errorf("score = %d, want 50", got[0].Score)
	}
}

func TestFindGroupsTripleExtension(t *testing.T) {
	shared := []string{"college", "book club", "trivia"}
	tags := []string{"climbing", "cooking"}
	contacts := []ContactSignals{
		groupContact("a", shared, tags),
		groupContact("b", shared, tags),
		groupContact("c", shared, tags),
	}

	got := FindGroups(contacts, nil, nil)
	if len(got) == 0 {
		t.Fatal("expected at least one group")
	}
	if len(got[0].ContactIDs) != 3 {
		t.Fatalf("top group size = %d, want triple", len(got[0].ContactIDs))
	}
}

func TestFindGroupsTripleNeedsMutualAttribute(t *testing.T) {
	// c shares with a but not with b: the pair must not extend.
	strong := []string{"college", "book club", "trivia"}
	contacts := []ContactSignals{
		groupContact("a", append([]string{"hiking"}, strong...), []string{"climbing", "cooking"}),
		groupContact("b", strong, []string{"climbing", "cooking"}),
		groupContact("c", []string{"hiking"}, nil),
	}

	got := FindGroups(contacts, nil, nil)
	for _, g := range got {
		if len(g.ContactIDs) == 3 {
			t.Errorf("triple %v formed without mutual shared attributes", g.ContactIDs)
		}
	}
}

func TestFindGroupsScoreCap(t *testing.T) {
	groups := []string{"g1", "g2", "g3", "g4", "g5"}
	tags := []string{"t1", "t2", "t3", "t4", "t5"}
	contacts := []ContactSignals{
		groupContact("a", groups, tags),
		groupContact("b", groups, tags),
	}
	co := PairCounts{PairKey("a", "b"): 100}
	joint := PairCounts{PairKey("a", "b"): 100}

	got := FindGroups(contacts, co, joint)
	if len(got) != 1 {
		t.Fatalf("found %d groups, want 1", len(got))
	}
	if got[0].Score != 100 {
		t.Errorf("score = %d, want capped at 100", got[0].Score)
	}
}

func TestFindGroupsDeterministic(t *testing.T) {
	shared := []string{"college", "book club", "trivia"}
	tags := []string{"climbing", "cooking"}
	contacts := []ContactSignals{
		groupContact("c", shared, tags),
		groupContact("a", shared, tags),
		groupContact("b", shared, tags),
		groupContact("d", []string{"college"}, nil),
	}

	first := FindGroups(contacts, nil, nil)
	second := FindGroups(contacts, nil, nil)
	if len(first) != len(second) {
		t.Fatalf("run lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].key() != second[i].key() {
			t.Errorf("group %d differs between runs: %v vs %v", i, first[i].ContactIDs, second[i].ContactIDs)
		}
	}
}

func TestSharedContextScoreTripleWeakestLink(t *testing.T) {
	shared := []string{"college"}
	members := []ContactSignals{
		groupContact("a", shared, nil),
		groupContact("b", shared, nil),
		groupContact("c", shared, nil),
	}
	co := PairCounts{
		PairKey("a", "b"): 10,
		PairKey("a", "c"): 10,
		PairKey("b", "c"): 1, // weakest pair limits the triple
	}

	// 10 (group) + min-pair co-mentions 1*5 = 15
	if got := SharedContextScore(members, co, nil); got != 15 {
		t.Errorf("score = %d, want 15 via weakest pair", got)
	}
}
