package history

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/solar3s/padlink/frame"
)

func testJournal(t *testing.T, keep int) *Journal {
	cfg := DefaultConfig
	cfg.Keep = keep
	j, err := Open(filepath.Join(t.TempDir(), "history.db"), &cfg)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { j.Close() })
	return j
}

func TestRecordRecent(t *testing.T) {
	j := testJournal(t, 0)

	if err := j.Record(Out, frame.Frame{ID: frame.Text, Payload: []byte("hello")}); err != nil {
		t.Fatal(err)
	}
	if err := j.Record(In, frame.Frame{ID: frame.Numeric, Payload: []byte("42")}); err != nil {
		t.Fatal(err)
	}

	entries, err := j.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	// newest first
	if entries[0].Direction != In || entries[0].Payload != "42" || entries[0].Kind != "numeric" {
		t.Errorf("unexpected newest entry %+v", entries[0])
	}
	if entries[1].Direction != Out || entries[1].Payload != "hello" || entries[1].ID != '1' {
		t.Errorf("unexpected oldest entry %+v", entries[1])
	}
	if entries[0].Seq <= entries[1].Seq {
		t.Errorf("expected increasing sequence, got %d then %d", entries[1].Seq, entries[0].Seq)
	}

	entries, _ = j.Recent(1)
	if len(entries) != 1 {
		t.Errorf("expected Recent(1) to return 1 entry, got %d", len(entries))
	}
}

func TestPrune(t *testing.T) {
	j := testJournal(t, 3)
	for i := 0; i < 10; i++ {
		err := j.Record(Out, frame.Frame{ID: frame.Numeric, Payload: []byte(fmt.Sprint(i))})
		if err != nil {
			t.Fatal(err)
		}
	}
	if j.Len() != 3 {
		t.Errorf("expected 3 entries kept, got %d", j.Len())
	}
	entries, err := j.Recent(0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 3 || entries[0].Payload != "9" || entries[2].Payload != "7" {
		t.Errorf("expected entries 9..7, got %+v", entries)
	}
}

func TestReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	j, err := Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	j.Record(Out, frame.Frame{ID: frame.Text, Payload: []byte("persisted")})
	j.Close()

	if err := j.Record(Out, frame.Frame{ID: frame.Text}); err != ErrClosed {
		t.Errorf("expected ErrClosed, got %v", err)
	}

	j, err = Open(path, nil)
	if err != nil {
		t.Fatal(err)
	}
	defer j.Close()
	entries, _ := j.Recent(0)
	if len(entries) != 1 || entries[0].Payload != "persisted" {
		t.Errorf("expected persisted entry, got %+v", entries)
	}
}
