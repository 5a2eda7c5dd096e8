package derive

import (
	"testing"
)

func entry(missionKey, key string, v Value) Entry {
	return Entry{MissionKey: missionKey, Key: key, Value: v}
}

func TestBuildLookup_DiscardsUnattributableEntries(t *testing.T) {
	entries := []Entry{
		entry("player1", "kills", Number(5)),
		entry("", "kills", Number(9)),
		entry("player1", "", Number(9)),
		entry("", "", Number(9)),
	}

	lookup, accepted, discarded := BuildLookup(entries)

	if len(accepted) != 1 {
		t.Fatalf("accepted = %d, want 1", len(accepted))
	}
	if discarded != 3 {
		t.Fatalf("discarded = %d, want 3", discarded)
	}
	if v, ok := lookup.Get("player1", "kills"); !ok || mustNum(t, v) != 5 {
		t.Fatalf("lookup[player1][kills] = %v, %v", v, ok)
	}
}

func TestBuildLookup_NormalizesKeys(t *testing.T) {
	entries := []Entry{
		entry(" Player1 ", "Kills", Number(5)),
		entry("player1", "Assists", Number(3)),
	}

	lookup, accepted, _ := BuildLookup(entries)

	if len(accepted) != 2 {
		t.Fatalf("accepted = %d, want 2", len(accepted))
	}
	if lookup.Len() != 1 {
		t.Fatalf("bucket count = %d, want 1 (keys should normalize together)", lookup.Len())
	}
	if v, ok := lookup.Get("player1", "kills"); !ok || mustNum(t, v) != 5 {
		t.Fatalf("kills = %v, %v", v, ok)
	}
	if v, ok := lookup.Get("player1", "assists"); !ok || mustNum(t, v) != 3 {
		t.Fatalf("assists = %v, %v", v, ok)
	}
}

func TestBuildLookup_FirstWriteWins(t *testing.T) {
	entries := []Entry{
		entry("player1", "kills", Number(5)),
		entry("player1", "kills", Number(99)),
		entry("Player1", "Kills", Number(42)),
	}

	lookup, _, _ := BuildLookup(entries)

	v, ok := lookup.Get("player1", "kills")
	if !ok {
		t.Fatal("kills missing")
	}
	if got := mustNum(t, v); got != 5 {
		t.Fatalf("kills = %v, want first-seen 5", got)
	}
}

func TestBuildLookup_PreservesInsertionOrder(t *testing.T) {
	entries := []Entry{
		entry("zeta", "kills", Number(1)),
		entry("alpha", "kills", Number(2)),
		entry("mid", "kills", Number(3)),
	}

	lookup, _, _ := BuildLookup(entries)

	want := []string{"zeta", "alpha", "mid"}
	got := lookup.MissionKeys()
	if len(got) != len(want) {
		t.Fatalf("mission keys = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("mission keys = %v, want %v", got, want)
		}
	}
}

func TestValue_NumericStringCoercion(t *testing.T) {
	v := Text("12")
	n, ok := v.Num()
	if !ok || n != 12 {
		t.Fatalf("Text(\"12\").Num() = %v, %v, want 12, true", n, ok)
	}

	v = Text("win")
	if _, ok := v.Num(); ok {
		t.Fatal("Text(\"win\") should not be numeric")
	}
	if v.String() != "win" {
		t.Fatalf("String() = %q, want \"win\"", v.String())
	}
	if v.Positive() {
		t.Fatal("non-numeric text must not be positive")
	}
}

func mustNum(t *testing.T, v Value) float64 {
	t.Helper()
	n, ok := v.Num()
	if !ok {
		t.Fatalf("value %v is not numeric", v)
	}
	return n
}
