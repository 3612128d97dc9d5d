package confidence

import "testing"

func TestClamp(t *testing.T) {
	t.Parallel()

	if got := Clamp(-5); got != 0 {
		t.Fatalf("Clamp(-5) = %d, want 0", got)
	}
	if got := Clamp(120); got != 100 {
		t.Fatalf("Clamp(120) = %d, want 100", got)
	}
	if got := Clamp(42); got != 42 {
		t.Fatalf("Clamp(42) = %d, want 42", got)
	}
}

func TestFromOdds(t *testing.T) {
	t.Parallel()

	b := DefaultBounds()

	// 100/2.0 = 50, inside the window.
	if got := b.FromOdds(2.0); got != 50 {
		t.Fatalf("FromOdds(2.0) = %d, want 50", got)
	}
	// 100/1.02 ≈ 98, clamped to the implied max.
	if got := b.FromOdds(1.02); got != 95 {
		t.Fatalf("FromOdds(1.02) = %d, want 95", got)
	}
	// 100/10 = 10, clamped to the implied min.
	if got := b.FromOdds(10); got != 30 {
		t.Fatalf("FromOdds(10) = %d, want 30", got)
	}
	// Odds at or below 1.0 carry no information.
	if got := b.FromOdds(1.0); got != b.Default {
		t.Fatalf("FromOdds(1.0) = %d, want default %d", got, b.Default)
	}
	if got := b.FromOdds(0); got != b.Default {
		t.Fatalf("FromOdds(0) = %d, want default %d", got, b.Default)
	}
}

func TestConsensus(t *testing.T) {
	t.Parallel()

	if got := Consensus(nil); got != 0 {
		t.Fatalf("Consensus(nil) = %d, want 0", got)
	}
	// 81 and 90 are strong, 80 is not: 2/3 rounds to 67.
	if got := Consensus([]int{81, 90, 80}); got != 67 {
		t.Fatalf("Consensus = %d, want 67", got)
	}
	if got := Consensus([]int{95, 85}); got != 100 {
		t.Fatalf("Consensus = %d, want 100", got)
	}
	if got := Consensus([]int{10, 20}); got != 0 {
		t.Fatalf("Consensus = %d, want 0", got)
	}
}
