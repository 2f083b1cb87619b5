package meters

import (
	"testing"
	"time"
)

func TestTimeMeter(t *testing.T) {
	m := NewTimeMeter()

	m.Update(3)
	m.Update(2)
	if m.N() != 5 {
		t.Errorf("N() = %d, want 5", m.N())
	}
	if m.Avg() < 0 {
		t.Errorf("Avg() = %f, want non-negative", m.Avg())
	}

	m.Reset()
	if m.N() != 0 {
		t.Errorf("N() after Reset = %d, want 0", m.N())
	}
}

func TestStopwatchMeter(t *testing.T) {
	var m StopwatchMeter

	m.Start()
	time.Sleep(time.Millisecond)
	m.Stop(4)

	if m.N() != 4 {
		t.Errorf("N() = %d, want 4", m.N())
	}
	if m.Sum() <= 0 {
		t.Errorf("Sum() = %v, want positive", m.Sum())
	}
	if m.Avg() <= 0 || m.Avg() > m.Sum() {
		t.Errorf("Avg() = %v, want within (0, %v]", m.Avg(), m.Sum())
	}
}

func TestStopwatchMeter_StopWithoutStart(t *testing.T) {
	var m StopwatchMeter

	m.Stop(10)
	if m.N() != 0 || m.Sum() != 0 {
		t.Errorf("Stop without Start recorded n=%d sum=%v, want zeroes", m.N(), m.Sum())
	}
}

func TestStopwatchMeter_Accumulates(t *testing.T) {
	var m StopwatchMeter

	m.Start()
	m.Stop(1)
	first := m.Sum()

	m.Start()
	time.Sleep(time.Millisecond)
	m.Stop(2)

	if m.N() != 3 {
		t.Errorf("N() = %d, want 3", m.N())
	}
	if m.Sum() < first {
		t.Errorf("Sum() = %v, want at least %v", m.Sum(), first)
	}

	// A second Stop with no new Start must not add anything.
	n, sum := m.N(), m.Sum()
	m.Stop(5)
	if m.N() != n || m.Sum() != sum {
		t.Error("repeated Stop must be a no-op")
	}
}

func TestTimeMeter_ZeroAvgOnZeroEvents(t *testing.T) {
	m := NewTimeMeter()
	if m.Avg() != 0 {
		t.Errorf("Avg() with no events = %f, want 0", m.Avg())
	}
}
