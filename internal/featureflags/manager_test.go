package featureflags

import (
	"sync"
	"testing"
)

func TestEnabled_BooleanValues(t *testing.T) {
	m := NewManager("a=on,b=off,c=true,d=false,e=1,f=0")

	if !m.Enabled("a", 1) || !m.Enabled("c", 1) || !m.Enabled("e", 1) {
		t.Fatal("expected enabled boolean values to evaluate true")
	}
	if m.Enabled("b", 1) || m.Enabled("d", 1) || m.Enabled("f", 1) {
		t.Fatal("expected disabled boolean values to evaluate false")
	}
	if m.Enabled("missing", 1) {
		t.Fatal("unknown flags must be disabled")
	}
}

func TestEnabled_PercentageValues(t *testing.T) {
	m := NewManager("always=100%,never=0%,canary=25%")

	if !m.Enabled("always", 1) {
		t.Fatal("100% rollout should always be enabled")
	}
	if m.Enabled("never", 1) {
		t.Fatal("0% rollout should always be disabled")
	}

	first := m.Enabled("canary", 42)
	for i := 0; i < 5; i++ {
		if got := m.Enabled("canary", 42); got != first {
			t.Fatal("rollout evaluation must be deterministic per user")
		}
	}

	if m.Enabled("canary", 0) {
		t.Fatal("percentage rollout requires non-zero userID")
	}

	enabled := 0
	for id := uint(1); id <= 1000; id++ {
		if m.Enabled("canary", id) {
			enabled++
		}
	}
	if enabled < 150 || enabled > 350 {
		t.Fatalf("25%% rollout enabled %d of 1000 users", enabled)
	}
}

func TestParseAndSnapshot(t *testing.T) {
	m := NewManager(" bad ,x=on, y = 20% ,z=off,w=maybe ")

	raw := m.Raw()
	if len(raw) != 3 {
		t.Fatalf("expected 3 parsed flags, got %d", len(raw))
	}
	if raw["x"] != "on" || raw["y"] != "20%" || raw["z"] != "off" {
		t.Fatalf("unexpected raw flags: %#v", raw)
	}

	snap := m.Snapshot(123)
	if len(snap) != 3 {
		t.Fatalf("expected snapshot size 3, got %d", len(snap))
	}
	if !snap["x"] || snap["z"] {
		t.Fatalf("unexpected snapshot: %#v", snap)
	}
}

func TestSet(t *testing.T) {
	m := NewManager(AIAgents + "=on")

	if !m.Set(" AI_AGENTS ", "off") {
		t.Fatal("expected valid value to be accepted")
	}
	if m.Enabled(AIAgents, 5) {
		t.Fatal("flag should be disabled after Set")
	}
	if m.Set(AIAgents, "sometimes") {
		t.Fatal("invalid value must be rejected")
	}
	if m.Raw()[AIAgents] != "off" {
		t.Fatal("rejected Set must not change the flag")
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m.Set(SearchIndex, "50%")
			_ = m.Enabled(SearchIndex, uint(i+1))
		}(i)
	}
	wg.Wait()
	if m.Raw()[SearchIndex] != "50%" {
		t.Fatal("concurrent Set lost the update")
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if m.Enabled(AIAgents, 1) {
		t.Fatal("nil manager must report every flag disabled")
	}
}
