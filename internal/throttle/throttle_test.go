package throttle

import (
	"context"
	"testing"
	"time"
)

func TestWaitForHostEnforcesFloor(t *testing.T) {
	th := New(Config{MinWait: 20 * time.Millisecond, MaxWait: 25 * time.Millisecond})
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := th.WaitForHost(ctx, "example.com"); err != nil {
			t.Fatal(err)
		}
	}
	elapsed := time.Since(start)
	if elapsed < 40*time.Millisecond {
		t.Errorf("elapsed = %v, want at least ~40ms for 3 calls with a 20ms floor", elapsed)
	}
}

func TestWaitForHostRespectsContextCancellation(t *testing.T) {
	th := New(Config{MinWait: time.Second, MaxWait: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	// Prime the throttle so the second call must actually wait.
	if err := th.WaitForHost(context.Background(), "example.com"); err != nil {
		t.Fatal(err)
	}
	if err := th.WaitForHost(ctx, "example.com"); err == nil {
		t.Fatal("expected context deadline error")
	}
}

func TestSetMaxRatedWidensInterval(t *testing.T) {
	th := New(Config{MinWait: time.Second, MaxWait: time.Second, MaxReqPerSec: 100})
	th.SetMaxRated("fast.example.com")
	if !th.IsMaxRated("fast.example.com") {
		t.Fatal("expected host to be marked max-rated")
	}

	start := time.Now()
	if err := th.WaitForHost(context.Background(), "fast.example.com"); err != nil {
		t.Fatal(err)
	}
	if err := th.WaitForHost(context.Background(), "fast.example.com"); err != nil {
		t.Fatal(err)
	}
	elapsed := time.Since(start)
	if elapsed > 100*time.Millisecond {
		t.Errorf("elapsed = %v, expected max-rated host to use its relaxed floor", elapsed)
	}
}

func TestDifferentHostsDoNotBlockEachOther(t *testing.T) {
	th := New(Config{MinWait: 200 * time.Millisecond, MaxWait: 200 * time.Millisecond})
	ctx := context.Background()

	if err := th.WaitForHost(ctx, "a.example.com"); err != nil {
		t.Fatal(err)
	}
	start := time.Now()
	if err := th.WaitForHost(ctx, "b.example.com"); err != nil {
		t.Fatal(err)
	}
	if time.Since(start) > 50*time.Millisecond {
		t.Errorf("expected distinct host to not inherit the other host's wait")
	}
}
