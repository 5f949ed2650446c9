package session

import (
	"sync/atomic"
	"testing"
	"time"
)

func TestClock_FiresOnce(t *testing.T) {
	var clock Clock
	var fired atomic.Int32

	clock.Arm(5*time.Millisecond, func() { fired.Add(1) })
	time.Sleep(50 * time.Millisecond)

	if got := fired.Load(); got != 1 {
		t.Errorf("Expected callback to fire once, fired %d times", got)
	}
	if clock.Cancel() {
		t.Error("Cancel after firing should report nothing was stopped")
	}
}

func TestClock_CancelBeforeExpiry(t *testing.T) {
	var clock Clock
	var fired atomic.Int32

	clock.Arm(20*time.Millisecond, func() { fired.Add(1) })
	if !clock.Cancel() {
		t.Error("Cancel before expiry should report the countdown was stopped")
	}
	time.Sleep(50 * time.Millisecond)

	if fired.Load() != 0 {
		t.Error("Cancelled clock must never fire")
	}
}

func TestClock_RearmReplacesCountdown(t *testing.T) {
	var clock Clock
	var first, second atomic.Int32

	clock.Arm(20*time.Millisecond, func() { first.Add(1) })
	clock.Arm(30*time.Millisecond, func() { second.Add(1) })
	time.Sleep(80 * time.Millisecond)

	if first.Load() != 0 {
		t.Error("Re-arming should cancel the earlier countdown")
	}
	if second.Load() != 1 {
		t.Errorf("Expected the latest countdown to fire once, fired %d times", second.Load())
	}
}

func TestClock_CancelWithoutArm(t *testing.T) {
	var clock Clock
	if clock.Cancel() {
		t.Error("Cancelling an idle clock should be a no-op")
	}
}
