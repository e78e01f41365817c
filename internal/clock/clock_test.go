package clock

import (
	"testing"
	"time"
)

func TestSystem_Now(t *testing.T) {
	before := time.Now()
	actual := System{}.Now()
	after := time.Now()

	if actual.Before(before) || actual.After(after) {
		t.Errorf("System.Now() = %v, want between %v and %v", actual, before, after)
	}
}

func TestManual(t *testing.T) {
	start := time.Date(2014, 6, 2, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	if !c.Now().Equal(start) {
		t.Errorf("Now() = %v, want %v", c.Now(), start)
	}

	c.Advance(90 * time.Second)
	if want := start.Add(90 * time.Second); !c.Now().Equal(want) {
		t.Errorf("Now() after Advance = %v, want %v", c.Now(), want)
	}
}

func TestStopwatch(t *testing.T) {
	start := time.Date(2014, 6, 2, 9, 0, 0, 0, time.UTC)
	c := NewManual(start)

	sw := Start(c)
	if !sw.Started().Equal(start) {
		t.Errorf("Started() = %v, want %v", sw.Started(), start)
	}
	if sw.Elapsed() != 0 {
		t.Errorf("Elapsed() = %v, want 0", sw.Elapsed())
	}

	c.Advance(3 * time.Minute)
	if sw.Elapsed() != 3*time.Minute {
		t.Errorf("Elapsed() = %v, want 3m", sw.Elapsed())
	}
}
