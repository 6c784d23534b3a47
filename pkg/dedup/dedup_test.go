package dedup

import (
	"fmt"
	"testing"
	"time"
)

func TestShouldProcess(t *testing.T) {
	now := time.Date(2025, 9, 21, 0, 0, 0, 0, time.UTC)
	d := New(time.Minute, 10).WithClock(func() time.Time { return now })

	if !d.ShouldProcess("a") {
		t.Fatal("first sighting must be processed")
	}
	if d.ShouldProcess("a") {
		t.Fatal("duplicate within ttl must be dropped")
	}
	if !d.ShouldProcess("") || !d.ShouldProcess("") {
		t.Error("empty ids are always processed")
	}

	now = now.Add(2 * time.Minute)
	if !d.ShouldProcess("a") {
		t.Error("expired id must be processed again")
	}
}

func TestCapacity(t *testing.T) {
	now := time.Now()
	d := New(time.Hour, 5).WithClock(func() time.Time { return now })
	for i := 0; i < 50; i++ {
		d.ShouldProcess(fmt.Sprintf("id-%d", i))
		if d.Len() > 5 {
			t.Fatalf("len = %d after %d ids", d.Len(), i+1)
		}
	}
}

func TestDefaults(t *testing.T) {
	d := New(0, 0)
	if d.ttl != 10*time.Minute || d.max != 10000 {
		t.Errorf("defaults = %v/%d", d.ttl, d.max)
	}
}
