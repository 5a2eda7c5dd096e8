package derive

import (
	"strconv"
	"strings"
)

// normalizeKey lowercases a candidate string and strips everything outside
// [a-z0-9]. Mission keys and player names are compared in this form only.
func normalizeKey(s string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(s)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// candidateKeys builds the ordered, deduplicated list of normalized keys a
// mission key could plausibly use for this player. The engine has been seen
// keying buckets by raw name, slot number, one-based slot number, or a
// team-slot composite, depending on version.
func candidateKeys(p Player) []string {
	pid := strconv.Itoa(p.ID)
	raw := []string{
		normalizeKey(p.Name),
		"player" + pid,
		"player" + strconv.Itoa(p.ID+1),
		"p" + pid,
		"slot" + pid,
		normalizeKey(strconv.Itoa(p.TeamID) + "-" + pid),
		pid,
	}
	seen := make(map[string]bool, len(raw))
	keys := raw[:0]
	for _, k := range raw {
		if k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	return keys
}

// Matcher bridges engine-assigned mission keys and roster players. It is
// built once per derivation over an immutable Lookup and roster.
type Matcher struct {
	lookup     *Lookup
	players    []Player
	candidates map[int][]string // player id -> candidate keys

	// mission keys claimed by exactly one player through equality; a
	// substring fallback must not steal these from their exact owner.
	exactOwner map[string]int

	// mission keys claimed by two or more players through equality;
	// these resolve to nobody.
	ambiguous map[string]bool
}

// NewMatcher indexes candidate keys for every player and precomputes which
// mission keys are exact-equality matches. Exact matches are resolved
// across the whole roster before any substring matching so a loose
// substring hit can never shadow another player's exact hit. A mission key
// exactly matched by more than one player is ambiguous and owned by no one.
func NewMatcher(lookup *Lookup, players []Player) *Matcher {
	m := &Matcher{
		lookup:     lookup,
		players:    players,
		candidates: make(map[int][]string, len(players)),
		exactOwner: make(map[string]int),
		ambiguous:  make(map[string]bool),
	}

	for _, p := range players {
		keys := candidateKeys(p)
		m.candidates[p.ID] = keys
		for _, k := range keys {
			if !lookup.Has(k) {
				continue
			}
			if owner, taken := m.exactOwner[k]; taken && owner != p.ID {
				m.ambiguous[k] = true
				continue
			}
			m.exactOwner[k] = p.ID
		}
	}
	for k := range m.ambiguous {
		delete(m.exactOwner, k)
	}
	return m
}

// BucketFor finds the mission key whose bucket most plausibly belongs to
// the player: an exact candidate hit first, then the first mission key (in
// lookup order) related to a candidate by substring in either direction.
// Mission keys exactly owned by a different player are never considered.
func (m *Matcher) BucketFor(p Player) (string, bool) {
	for _, cand := range m.candidates[p.ID] {
		if owner, ok := m.exactOwner[cand]; ok && owner == p.ID {
			return cand, true
		}
	}
	for _, missionKey := range m.lookup.MissionKeys() {
		if m.ambiguous[missionKey] {
			continue
		}
		if owner, ok := m.exactOwner[missionKey]; ok && owner != p.ID {
			continue
		}
		for _, cand := range m.candidates[p.ID] {
			if strings.Contains(missionKey, cand) || strings.Contains(cand, missionKey) {
				return missionKey, true
			}
		}
	}
	return "", false
}

// PlayerFor resolves a normalized mission key back to a roster player.
// Equality across all players is checked first; multiple exact matches are
// ambiguous and resolve to nothing rather than a guess. Substring matching
// runs only when no exact match exists, in roster order.
func (m *Matcher) PlayerFor(missionKey string) (Player, bool) {
	if m.ambiguous[missionKey] {
		return Player{}, false
	}
	if owner, ok := m.exactOwner[missionKey]; ok {
		return m.playerByID(owner)
	}

	exact := -1
	for _, p := range m.players {
		for _, cand := range m.candidates[p.ID] {
			if cand != missionKey {
				continue
			}
			if exact >= 0 && exact != p.ID {
				return Player{}, false // two exact claims, fail closed
			}
			exact = p.ID
		}
	}
	if exact >= 0 {
		return m.playerByID(exact)
	}

	for _, p := range m.players {
		for _, cand := range m.candidates[p.ID] {
			if strings.Contains(missionKey, cand) || strings.Contains(cand, missionKey) {
				return p, true
			}
		}
	}
	return Player{}, false
}

func (m *Matcher) playerByID(id int) (Player, bool) {
	for _, p := range m.players {
		if p.ID == id {
			return p, true
		}
	}
	return Player{}, false
}
