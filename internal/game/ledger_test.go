package game

import (
	"sync"
	"testing"

	"github.com/yohamta/donburi"
)

// TestLedgerTop verifies ordering by score, tie-break by handle, ranks and
// the n limit.
func TestLedgerTop(t *testing.T) {
	l := NewLedger()
	l.Register(1, "fighter", 1)
	l.Register(2, "fighter_drone", 2)
	l.Register(3, "rocket_frigate", 1)
	l.Register(4, "repair_drone", 2) // never scores

	l.AddDamage(1, 150)
	l.AddKill(2)
	l.AddDamage(2, 50) // 150, ties with 1
	l.AddKill(3)
	l.AddKill(3)

	top := l.Top(0)
	if len(top) != 3 {
		t.Fatalf("len(Top(0)) = %d, want 3", len(top))
	}

	want := []struct {
		entity uint64
		score  float64
	}{
		{3, 200},
		{1, 150},
		{2, 150},
	}
	for i, w := range want {
		if top[i].Entity != w.entity || top[i].Score != w.score || top[i].Rank != i+1 {
			t.Errorf("Top[%d] = %+v, want entity %d score %v rank %d", i, top[i], w.entity, w.score, i+1)
		}
	}
	if top[0].Template != "rocket_frigate" || top[0].Team != 1 {
		t.Errorf("registration lost: %+v", top[0])
	}

	if got := l.Top(2); len(got) != 2 {
		t.Errorf("len(Top(2)) = %d, want 2", len(got))
	}
	if l.Len() != 4 {
		t.Errorf("Len() = %d, want 4", l.Len())
	}
}

// TestLedgerIgnoresNonPositiveDamage verifies zero and negative credit are
// not recorded.
func TestLedgerIgnoresNonPositiveDamage(t *testing.T) {
	l := NewLedger()
	l.AddDamage(9, 0)
	l.AddDamage(9, -3)

	if _, ok := l.Get(9); ok {
		t.Error("entry created for non-positive damage")
	}
}

// TestLedgerConcurrent verifies the ledger is safe for concurrent writers
// and readers.
func TestLedgerConcurrent(t *testing.T) {
	l := NewLedger()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				l.AddDamage(donburi.Entity(w+1), 1)
				l.Top(3)
			}
		}(w)
	}
	wg.Wait()

	for w := 1; w <= 8; w++ {
		if e, _ := l.Get(donburi.Entity(w)); e.Damage != 100 {
			t.Errorf("entity %d damage = %v, want 100", w, e.Damage)
		}
	}
}
