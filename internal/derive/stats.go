package derive

import (
	"encoding/binary"
	"math"
	"strings"
)

// DerivedStats holds the canonical per-player statistics recovered from
// telemetry. Nil fields mean the telemetry never reported that stat;
// absence is "unknown", never zero.
type DerivedStats struct {
	Kills       *float64
	Deaths      *float64
	Assists     *float64
	Gold        *float64
	DamageDealt *float64
	DamageTaken *float64
	RandomClass *bool
	Class       *string
}

// Empty reports whether no stat was recovered at all.
func (s DerivedStats) Empty() bool {
	return s.Kills == nil && s.Deaths == nil && s.Assists == nil &&
		s.Gold == nil && s.DamageDealt == nil && s.DamageTaken == nil &&
		s.RandomClass == nil && s.Class == nil
}

// StatRule recognizes telemetry keys containing every listed substring and
// routes their value to one canonical field.
type StatRule struct {
	Substrings []string
	Field      string
}

// StatTable is the recognized-key table consulted by ProjectStats. The
// first matching rule wins per key, so narrower rules must precede broader
// ones ("damage taken" before "damage").
type StatTable []StatRule

// Canonical field names understood by ProjectStats.
const (
	FieldKills       = "kills"
	FieldDeaths      = "deaths"
	FieldAssists     = "assists"
	FieldGold        = "gold"
	FieldDamageTaken = "damageTaken"
	FieldDamageDealt = "damageDealt"
	FieldRandomClass = "randomClass"
	FieldClass       = "class"
)

// DefaultStatTable mirrors the stat keys the game engine is known to emit.
func DefaultStatTable() StatTable {
	return StatTable{
		{Substrings: []string{"kill"}, Field: FieldKills},
		{Substrings: []string{"death"}, Field: FieldDeaths},
		{Substrings: []string{"assist"}, Field: FieldAssists},
		{Substrings: []string{"gold"}, Field: FieldGold},
		{Substrings: []string{"damage", "taken"}, Field: FieldDamageTaken},
		{Substrings: []string{"damage"}, Field: FieldDamageDealt},
		{Substrings: []string{"random"}, Field: FieldRandomClass},
		{Substrings: []string{"class"}, Field: FieldClass},
	}
}

func (t StatTable) fieldFor(key string) (string, bool) {
	k := strings.ToLower(key)
	for _, rule := range t {
		matched := true
		for _, sub := range rule.Substrings {
			if !strings.Contains(k, sub) {
				matched = false
				break
			}
		}
		if matched {
			return rule.Field, true
		}
	}
	return "", false
}

// ProjectStats pulls each player's mission bucket through the matcher and
// copies recognized values into DerivedStats. Players without a bucket get
// empty stats; that is expected, not an error.
func ProjectStats(players []Player, lookup *Lookup, matcher *Matcher, table StatTable) map[int]DerivedStats {
	out := make(map[int]DerivedStats, len(players))
	if lookup.Len() == 0 {
		return out
	}

	for _, p := range players {
		missionKey, ok := matcher.BucketFor(p)
		if !ok {
			continue
		}
		var stats DerivedStats
		for _, key := range lookup.Keys(missionKey) {
			field, recognized := table.fieldFor(key)
			if !recognized {
				continue
			}
			v, _ := lookup.Get(missionKey, key)
			stats.apply(field, v)
		}
		if !stats.Empty() {
			out[p.ID] = stats
		}
	}
	return out
}

func (s *DerivedStats) apply(field string, v Value) {
	switch field {
	case FieldClass:
		if s.Class == nil {
			class := decodeClassValue(v)
			s.Class = &class
		}
		return
	case FieldRandomClass:
		if s.RandomClass == nil {
			random := v.Positive()
			s.RandomClass = &random
		}
		return
	}

	n, ok := v.Num()
	if !ok {
		return
	}
	set := func(dst **float64) {
		if *dst == nil {
			val := n
			*dst = &val
		}
	}
	switch field {
	case FieldKills:
		set(&s.Kills)
	case FieldDeaths:
		set(&s.Deaths)
	case FieldAssists:
		set(&s.Assists)
	case FieldGold:
		set(&s.Gold)
	case FieldDamageTaken:
		set(&s.DamageTaken)
	case FieldDamageDealt:
		set(&s.DamageDealt)
	}
}

// decodeClassValue recovers a class name from its telemetry encoding. The
// engine packs short ASCII names into a big-endian uint32; anything that
// does not decode to printable ASCII falls back to the value's string form.
func decodeClassValue(v Value) string {
	n, ok := v.Num()
	if !ok {
		return v.String()
	}
	packed := uint32(0)
	if !math.IsNaN(n) && !math.IsInf(n, 0) {
		packed = uint32(int64(n))
	}
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], packed)
	ascii := strings.TrimSpace(strings.ReplaceAll(string(buf[:]), "\x00", ""))
	if ascii == "" {
		return v.String()
	}
	for _, r := range ascii {
		if r < 0x20 || r > 0x7e {
			return v.String()
		}
	}
	return ascii
}
