package transcript

import (
	"strings"
	"sync"
	"testing"
)

func TestAccumulator_HelloWorld(t *testing.T) {
	a := NewAccumulator()
	a.Append("hello")
	a.Append("world")

	if got := a.Current(); got != " hello world" {
		t.Errorf("Expected %q, got %q", " hello world", got)
	}
}

func TestAccumulator_SpaceJoinedInArrivalOrder(t *testing.T) {
	sequences := [][]string{
		{},
		{"one"},
		{"a", "b", "c"},
		{"", "empty before"},
		{"multi word fragment", "ünïcödé", "  padded  "},
	}

	for _, msgs := range sequences {
		a := NewAccumulator()
		for _, m := range msgs {
			a.Append(m)
		}

		want := ""
		for _, m := range msgs {
			want += " " + m
		}
		if got := a.Current(); got != want {
			t.Errorf("Messages %q: expected %q, got %q", msgs, want, got)
		}
	}
}

func TestAccumulator_MonotonicLength(t *testing.T) {
	a := NewAccumulator()
	prev := a.Len()
	for _, m := range []string{"x", "", "longer text", "y"} {
		a.Append(m)
		if a.Len() <= prev {
			t.Errorf("Expected length to grow past %d after %q, got %d", prev, m, a.Len())
		}
		prev = a.Len()
	}
}

func TestAccumulator_Display(t *testing.T) {
	a := NewAccumulator()
	if a.Display() != Placeholder {
		t.Errorf("Expected placeholder, got %q", a.Display())
	}
	a.Append("hi")
	if a.Display() != " hi" {
		t.Errorf("Expected %q, got %q", " hi", a.Display())
	}
}

func TestAccumulator_ConcurrentAppend(t *testing.T) {
	a := NewAccumulator()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Append("w")
		}()
	}
	wg.Wait()

	if got := a.Current(); got != strings.Repeat(" w", 50) {
		t.Errorf("Expected 50 fragments, got %q", got)
	}
}
