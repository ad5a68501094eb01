package game

import (
	"sort"
	"sync"

	"github.com/yohamta/donburi"
)

// Ledger tracks damage dealt and kills per root instigator. Entries outlive
// the ships they describe so a destroyed frigate keeps its place.
type Ledger struct {
	mu      sync.RWMutex
	entries map[donburi.Entity]*LedgerEntry
}

// LedgerEntry represents one ship in the leaderboard
type LedgerEntry struct {
	Entity   uint64  `json:"entity" msgpack:"entity"`
	Template string  `json:"template" msgpack:"template"`
	Team     int     `json:"team" msgpack:"team"`
	Kills    int     `json:"kills" msgpack:"kills"`
	Damage   float64 `json:"damage" msgpack:"damage"`
	Score    float64 `json:"score" msgpack:"score"` // kills * 100 + damage
	Rank     int     `json:"rank" msgpack:"rank"`
}

// NewLedger creates an empty ledger
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[donburi.Entity]*LedgerEntry)}
}

// Register names a ship so later credit carries its template and team.
func (l *Ledger) Register(e donburi.Entity, template string, team int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entry(e)
	entry.Template = template
	entry.Team = team
}

// AddDamage credits amount of damage to e.
func (l *Ledger) AddDamage(e donburi.Entity, amount float64) {
	if amount <= 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entry(e)
	entry.Damage += amount
	entry.Score = score(entry)
}

// AddKill credits one kill to e.
func (l *Ledger) AddKill(e donburi.Entity) {
	l.mu.Lock()
	defer l.mu.Unlock()
	entry := l.entry(e)
	entry.Kills++
	entry.Score = score(entry)
}

func (l *Ledger) entry(e donburi.Entity) *LedgerEntry {
	entry, ok := l.entries[e]
	if !ok {
		entry = &LedgerEntry{Entity: uint64(e)}
		l.entries[e] = entry
	}
	return entry
}

func score(e *LedgerEntry) float64 {
	return float64(e.Kills)*100.0 + e.Damage
}

// Top returns the n best entries by score, ties broken by entity handle.
// n <= 0 returns every entry.
func (l *Ledger) Top(n int) []LedgerEntry {
	l.mu.RLock()
	result := make([]LedgerEntry, 0, len(l.entries))
	for _, e := range l.entries {
		if e.Score > 0 {
			result = append(result, *e)
		}
	}
	l.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		return result[i].Entity < result[j].Entity
	})
	if n > 0 && len(result) > n {
		result = result[:n]
	}
	for i := range result {
		result[i].Rank = i + 1
	}
	return result
}

// Get returns the entry for e.
func (l *Ledger) Get(e donburi.Entity) (LedgerEntry, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	entry, ok := l.entries[e]
	if !ok {
		return LedgerEntry{}, false
	}
	return *entry, true
}

// Len returns the number of tracked ships.
func (l *Ledger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
