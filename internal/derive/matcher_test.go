package derive

import (
	"testing"
)

func player(id int, name string, teamID int) Player {
	return Player{ID: id, Name: name, TeamID: teamID}
}

func buildMatcher(t *testing.T, entries []Entry, players ...Player) (*Matcher, *Lookup) {
	t.Helper()
	lookup, _, _ := BuildLookup(entries)
	return NewMatcher(lookup, players), lookup
}

func TestCandidateKeys_CoversObservedKeyFormats(t *testing.T) {
	keys := candidateKeys(Player{ID: 5, Name: "Bob!", TeamID: 1})

	want := map[string]bool{
		"bob": true, "player5": true, "player6": true,
		"p5": true, "slot5": true, "15": true, "5": true,
	}
	if len(keys) != len(want) {
		t.Fatalf("candidate keys = %v, want %d keys", keys, len(want))
	}
	for _, k := range keys {
		if !want[k] {
			t.Fatalf("unexpected candidate key %q in %v", k, keys)
		}
	}
}

func TestBucketFor_ExactBeatsSubstring(t *testing.T) {
	// Both "bob" and "bobby" plausibly match a player named Bob; the
	// exact hit must win.
	entries := []Entry{
		entry("bobby", "kills", Number(1)),
		entry("bob", "kills", Number(2)),
	}
	m, _ := buildMatcher(t, entries, player(5, "Bob", 0))

	missionKey, ok := m.BucketFor(player(5, "Bob", 0))
	if !ok {
		t.Fatal("expected a bucket for Bob")
	}
	if missionKey != "bob" {
		t.Fatalf("bucket = %q, want exact match \"bob\"", missionKey)
	}
}

func TestBucketFor_SubstringFallback(t *testing.T) {
	entries := []Entry{entry("xx-Carol-xx", "kills", Number(7))}
	m, _ := buildMatcher(t, entries, player(1, "Carol", 0))

	missionKey, ok := m.BucketFor(player(1, "Carol", 0))
	if !ok || missionKey != "xxcarolxx" {
		t.Fatalf("bucket = %q, %v, want substring match \"xxcarolxx\"", missionKey, ok)
	}
}

func TestBucketFor_NoMatch(t *testing.T) {
	entries := []Entry{entry("somebodyelse", "kills", Number(7))}
	m, _ := buildMatcher(t, entries, player(1, "Zed", 0))

	if key, ok := m.BucketFor(player(1, "Zed", 0)); ok {
		t.Fatalf("unexpected bucket %q for unrelated player", key)
	}
}

func TestBucketFor_DoesNotStealAnotherPlayersExactKey(t *testing.T) {
	// "bob" is Bob's exact key. Bobby's substring candidates must not
	// claim it even though "bob" is a substring of "bobby".
	bob := player(1, "Bob", 0)
	bobby := player(2, "Bobby", 1)
	entries := []Entry{entry("bob", "kills", Number(3))}
	m, _ := buildMatcher(t, entries, bob, bobby)

	if key, ok := m.BucketFor(bobby); ok {
		t.Fatalf("Bobby got bucket %q owned exactly by Bob", key)
	}
	if key, ok := m.BucketFor(bob); !ok || key != "bob" {
		t.Fatalf("Bob bucket = %q, %v, want \"bob\"", key, ok)
	}
}

func TestPlayerFor_ExactPrecedence(t *testing.T) {
	bob := player(5, "Bob", 0)
	entries := []Entry{
		entry("bobby", "winner", Number(1)),
		entry("bob", "winner", Number(1)),
	}
	m, _ := buildMatcher(t, entries, bob)

	p, ok := m.PlayerFor("bob")
	if !ok || p.ID != 5 {
		t.Fatalf("PlayerFor(bob) = %v, %v", p, ok)
	}
	// Substring still resolves when no exact owner exists.
	p, ok = m.PlayerFor("bobby")
	if !ok || p.ID != 5 {
		t.Fatalf("PlayerFor(bobby) = %v, %v", p, ok)
	}
}

func TestPlayerFor_AmbiguousExactFailsClosed(t *testing.T) {
	// Two players normalize to the same name; an exact collision must
	// resolve to nobody rather than a guess.
	a := player(1, "Ann", 0)
	b := player(2, "ann!", 1)
	entries := []Entry{entry("ann", "winner", Number(1))}
	m, _ := buildMatcher(t, entries, a, b)

	if p, ok := m.PlayerFor("ann"); ok {
		t.Fatalf("ambiguous key resolved to player %d", p.ID)
	}
}

func TestPlayerFor_UnknownKey(t *testing.T) {
	m, _ := buildMatcher(t, nil, player(1, "Ann", 0))
	if _, ok := m.PlayerFor("stranger"); ok {
		t.Fatal("unknown mission key should not resolve")
	}
}
