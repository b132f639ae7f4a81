package keypad

import (
	"context"
	"sync"
	"testing"
	"time"
)

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func press(d *Decoder, label rune, at time.Duration) Stage {
	k, ok := d.Layout().Find(label)
	if !ok {
		panic("no key " + string(label))
	}
	return d.Press(KeyEvent{Row: k.Row, Col: k.Col, At: t0.Add(at)})
}

// collect drains whatever is queued right now.
func collect(d *Decoder) (out []Event) {
	d.drain(HandlerFunc(func(e Event) { out = append(out, e) }))
	return out
}

func newTestDecoder(queue int) *Decoder {
	cfg := DefaultConfig
	cfg.QueueSize = queue
	return NewDecoder(&cfg, nil)
}

func TestSameKeyCyclesLayers(t *testing.T) {
	d := newTestDecoder(8)
	for i := 0; i < 5; i++ {
		if st := press(d, '2', time.Duration(i)*150*time.Millisecond); st != Emit {
			t.Fatalf("press %d: stage %s", i, st)
		}
	}
	evs := collect(d)
	if len(evs) != 5 {
		t.Fatalf("expected 5 events, got %d", len(evs))
	}
	wantLayers := []int{0, 1, 2, 3, 0}
	wantRunes := []rune("abc2a")
	for i, e := range evs {
		if e.Type != Character || e.Layer != wantLayers[i] || e.Rune != wantRunes[i] {
			t.Errorf("event %d: got %s, want layer %d %q", i, e, wantLayers[i], wantRunes[i])
		}
		if e.Repeat != (i > 0) {
			t.Errorf("event %d: repeat = %t", i, e.Repeat)
		}
	}
}

func TestDifferentKeyResetsLayer(t *testing.T) {
	d := newTestDecoder(8)
	press(d, '2', 0)
	press(d, '2', 200*time.Millisecond)
	press(d, '3', 400*time.Millisecond)
	press(d, '2', 600*time.Millisecond)
	evs := collect(d)
	want := []rune("abda")
	if len(evs) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(evs))
	}
	for i, e := range evs {
		if e.Rune != want[i] {
			t.Errorf("event %d: got %q, want %q", i, e.Rune, want[i])
		}
	}
	if evs[2].Repeat || evs[2].Layer != 0 || evs[3].Repeat || evs[3].Layer != 0 {
		t.Errorf("a different key must restart at layer 0: %v", evs)
	}
}

func TestDebounceDiscardsBounce(t *testing.T) {
	d := newTestDecoder(8)
	if st := press(d, '5', 0); st != Emit {
		t.Fatalf("first press: %s", st)
	}
	if st := press(d, '5', 30*time.Millisecond); st != Idle {
		t.Fatalf("bounce should be discarded, got %s", st)
	}
	if _, st := d.decode(KeyEvent{Row: 1, Col: 1, At: t0.Add(99 * time.Millisecond)}); st != DebounceCheck {
		t.Fatalf("expected to stop at DebounceCheck, got %s", st)
	}
	// window is measured from the last accepted press, not the bounce
	if st := press(d, '5', 100*time.Millisecond); st != Emit {
		t.Fatalf("press at the window edge should be accepted, got %s", st)
	}
	evs := collect(d)
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d: %v", len(evs), evs)
	}
	if evs[1].Layer != 1 {
		t.Errorf("second accepted press should advance the layer, got %s", evs[1])
	}
}

func TestSeparatedPressesNotCoalesced(t *testing.T) {
	d := newTestDecoder(8)
	press(d, '8', 0)
	press(d, '8', 2*time.Second)
	if evs := collect(d); len(evs) != 2 {
		t.Fatalf("expected both presses emitted, got %v", evs)
	}
}

func TestControlKeys(t *testing.T) {
	d := newTestDecoder(8)
	press(d, '2', 0)
	press(d, '*', 200*time.Millisecond)
	press(d, '2', 400*time.Millisecond)
	press(d, 'D', 600*time.Millisecond)
	press(d, 'C', 800*time.Millisecond)
	press(d, '#', 1000*time.Millisecond)
	evs := collect(d)
	want := []Type{Character, AdvanceCursor, Character, DeleteLast, ClearAll, Commit}
	if len(evs) != len(want) {
		t.Fatalf("expected %d events, got %v", len(want), evs)
	}
	for i, e := range evs {
		if e.Type != want[i] {
			t.Errorf("event %d: got %s, want %s", i, e.Type, want[i])
		}
	}
	if evs[2].Repeat || evs[2].Rune != 'a' {
		t.Errorf("key after a control key should restart at layer 0, got %s", evs[2])
	}
}

func TestOutOfMatrixPress(t *testing.T) {
	d := newTestDecoder(8)
	if st := d.Press(KeyEvent{Row: 4, Col: 0, At: t0}); st != Idle {
		t.Fatalf("got %s", st)
	}
	if _, st := d.decode(KeyEvent{Row: 0, Col: -1, At: t0}); st != ColumnScan {
		t.Fatalf("expected to stop at ColumnScan, got %s", st)
	}
	// an unresolved column must not arm the debounce window
	if st := press(d, '1', 10*time.Millisecond); st != Emit {
		t.Fatalf("got %s", st)
	}
}

func TestQueueOverflowDropsNewest(t *testing.T) {
	d := newTestDecoder(5)
	labels := []rune("123456")
	for i, l := range labels {
		st := press(d, l, time.Duration(i)*200*time.Millisecond)
		if i < 5 && st != Emit {
			t.Fatalf("press %d: %s", i, st)
		}
		if i == 5 && st != Idle {
			t.Fatalf("overflowing press should be dropped, got %s", st)
		}
	}
	evs := collect(d)
	if len(evs) != 5 {
		t.Fatalf("expected 5 queued events, got %d", len(evs))
	}
	if k, _ := d.Layout().Find('5'); evs[4].Key != k {
		t.Errorf("newest event should be the one lost, got %v", evs)
	}
}

func TestRunDeliversInOrder(t *testing.T) {
	cfg := DefaultConfig
	cfg.PollInterval = 0
	d := NewDecoder(&cfg, nil)

	var (
		mu  sync.Mutex
		got []rune
	)
	done := make(chan struct{})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		d.Run(ctx, HandlerFunc(func(e Event) {
			mu.Lock()
			got = append(got, e.Rune)
			n := len(got)
			mu.Unlock()
			if n == 3 {
				close(done)
			}
		}))
	}()

	press(d, '4', 0)
	press(d, '7', 200*time.Millisecond)
	press(d, '0', 400*time.Millisecond)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("consumer did not drain the queue")
	}
	mu.Lock()
	defer mu.Unlock()
	if string(got) != "gp0" {
		t.Fatalf("got %q", string(got))
	}
}
