package engage

import "testing"

func TestSessionCycleMutualExclusion(t *testing.T) {
	s := NewSession()
	if !s.TryBeginCycle() {
		t.Fatal("first cycle rejected")
	}
	if s.TryBeginCycle() {
		t.Fatal("second cycle started while one is running")
	}
	s.EndCycle()
	if !s.TryBeginCycle() {
		t.Fatal("cycle rejected after EndCycle")
	}
}

func TestSessionDisableClearsRunning(t *testing.T) {
	s := NewSession()
	s.SetEnabled(true)
	s.TryBeginCycle()

	s.SetEnabled(false)
	if s.Running() {
		t.Fatal("running flag survived disable")
	}
}

func TestSessionResetClearsState(t *testing.T) {
	s := NewSession()
	s.MarkProcessed("a")
	s.MarkProcessed("b")
	s.SetSeen(7)
	s.AddLiked()
	s.AddCommented()

	s.Reset()

	if s.IsProcessed("a") || s.IsProcessed("b") {
		t.Fatal("processed set survived reset")
	}
	if got := s.Counters(); got != (Counters{}) {
		t.Fatalf("got %+v after reset, want zero counters", got)
	}
	if !s.LastAction().IsZero() {
		t.Fatal("last action timestamp survived reset")
	}
}

func TestSessionCounters(t *testing.T) {
	s := NewSession()
	s.SetSeen(3)
	s.AddLiked()
	s.AddLiked()
	s.AddCommented()

	got := s.Counters()
	want := Counters{Seen: 3, Liked: 2, Commented: 1}
	if got != want {
		t.Fatalf("got %+v, want %+v", got, want)
	}
	if s.LastAction().IsZero() {
		t.Fatal("last action not stamped")
	}
}
