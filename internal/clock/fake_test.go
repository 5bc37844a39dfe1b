package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func TestFake_AfterFuncFiresInOrder(t *testing.T) {
	c := NewFake(epoch)

	var order []string
	c.AfterFunc(3*time.Second, func() { order = append(order, "c") })
	c.AfterFunc(1*time.Second, func() { order = append(order, "a") })
	c.AfterFunc(2*time.Second, func() { order = append(order, "b") })

	c.Advance(2 * time.Second)
	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("order after 2s = %v, want [a b]", order)
	}

	c.Advance(time.Second)
	if len(order) != 3 || order[2] != "c" {
		t.Fatalf("order after 3s = %v, want [a b c]", order)
	}
	if got := c.Now(); !got.Equal(epoch.Add(3 * time.Second)) {
		t.Errorf("Now() = %v, want %v", got, epoch.Add(3*time.Second))
	}
}

func TestFake_StopPreventsFire(t *testing.T) {
	c := NewFake(epoch)

	fired := false
	timer := c.AfterFunc(time.Second, func() { fired = true })

	if !timer.Stop() {
		t.Fatal("Stop() = false, want true for pending timer")
	}
	if timer.Stop() {
		t.Error("second Stop() = true, want false")
	}

	c.Advance(time.Minute)
	if fired {
		t.Error("stopped timer fired")
	}
	if c.Pending() != 0 {
		t.Errorf("Pending() = %d, want 0", c.Pending())
	}
}

func TestFake_CallbackCanSchedule(t *testing.T) {
	c := NewFake(epoch)

	count := 0
	var schedule func()
	schedule = func() {
		count++
		if count < 3 {
			c.AfterFunc(time.Second, schedule)
		}
	}
	c.AfterFunc(time.Second, schedule)

	c.Advance(10 * time.Second)
	if count != 3 {
		t.Errorf("count = %d, want 3", count)
	}
}

func TestFake_Ticker(t *testing.T) {
	c := NewFake(epoch)

	tk := c.NewTicker(time.Second)
	defer tk.Stop()

	c.Advance(time.Second)
	select {
	case <-tk.C():
	default:
		t.Fatal("expected tick after 1s")
	}

	c.Advance(500 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("unexpected tick after 1.5s")
	default:
	}
}
