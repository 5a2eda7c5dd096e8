package derive

import (
	"strconv"
	"strings"
)

// Value is a telemetry value: numeric or free-form text. The engine emits
// both interchangeably, so both forms are kept and coerced explicitly.
type Value struct {
	num    float64
	text   string
	isText bool
}

// Number builds a numeric Value.
func Number(f float64) Value {
	return Value{num: f}
}

// Text builds a textual Value. Strings that parse as numbers are coerced to
// numeric so "12" and 12 behave identically downstream.
func Text(s string) Value {
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		return Value{num: f}
	}
	return Value{text: s, isText: true}
}

// Num returns the numeric form, false when the value is non-numeric text.
func (v Value) Num() (float64, bool) {
	if v.isText {
		return 0, false
	}
	return v.num, true
}

// String returns the value's string form regardless of kind.
func (v Value) String() string {
	if v.isText {
		return v.text
	}
	return strconv.FormatFloat(v.num, 'f', -1, 64)
}

// Positive reports whether the value is numeric and greater than zero.
func (v Value) Positive() bool {
	return !v.isText && v.num > 0
}

// Entry is one raw telemetry event. MissionKey loosely identifies the
// player the entry belongs to; Key names the stat or signal.
type Entry struct {
	MissionKey string
	Key        string
	Value      Value
}

type bucket struct {
	values map[string]Value
	order  []string
}

// Lookup is the two-level telemetry index: mission key -> stat key -> value.
// Both levels are keyed by normalized strings and preserve insertion order
// so scans over the lookup are deterministic. Read-only after BuildLookup.
type Lookup struct {
	buckets map[string]*bucket
	order   []string
}

// MissionKeys returns the normalized mission keys in insertion order.
func (l *Lookup) MissionKeys() []string {
	return l.order
}

// Len returns the number of mission key buckets.
func (l *Lookup) Len() int {
	return len(l.buckets)
}

// Get returns the value for a normalized (missionKey, key) pair.
func (l *Lookup) Get(missionKey, key string) (Value, bool) {
	b, ok := l.buckets[missionKey]
	if !ok {
		return Value{}, false
	}
	v, ok := b.values[key]
	return v, ok
}

// Keys returns the stat keys of one bucket in insertion order.
func (l *Lookup) Keys(missionKey string) []string {
	b, ok := l.buckets[missionKey]
	if !ok {
		return nil
	}
	return b.order
}

// Has reports whether a bucket exists for the normalized mission key.
func (l *Lookup) Has(missionKey string) bool {
	_, ok := l.buckets[missionKey]
	return ok
}

func (l *Lookup) insert(missionKey, key string, v Value) {
	b, ok := l.buckets[missionKey]
	if !ok {
		b = &bucket{values: make(map[string]Value)}
		l.buckets[missionKey] = b
		l.order = append(l.order, missionKey)
	}
	if _, dup := b.values[key]; dup {
		return // first write wins
	}
	b.values[key] = v
	b.order = append(b.order, key)
}

// BuildLookup normalizes the raw telemetry sequence into a Lookup. Entries
// missing either key are discarded; they cannot be attributed to anyone.
// Duplicate (missionKey, key) pairs keep the first value seen, so the result
// is deterministic for a given input order. Never fails: malformed input is
// dropped and counted, not reported.
func BuildLookup(entries []Entry) (*Lookup, []Entry, int) {
	lookup := &Lookup{buckets: make(map[string]*bucket)}
	accepted := make([]Entry, 0, len(entries))
	discarded := 0

	for _, e := range entries {
		if e.MissionKey == "" || e.Key == "" {
			discarded++
			continue
		}
		accepted = append(accepted, e)

		missionKey := normalizeKey(e.MissionKey)
		if missionKey == "" {
			continue
		}
		key := normalizeKey(e.Key)
		if key == "" {
			key = strings.ToLower(e.Key)
		}
		lookup.insert(missionKey, key, e.Value)
	}

	return lookup, accepted, discarded
}
