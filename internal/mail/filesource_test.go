package mail

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeMessage(t *testing.T, dir string, m Message) {
	t.Helper()
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, m.ID+".json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestFileSource_ListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	writeMessage(t, dir, Message{ID: "old", Subject: "Application received", Sender: "jane@initech.com", Date: base})
	writeMessage(t, dir, Message{ID: "new", Subject: "Interview invitation", Sender: "jane@initech.com", Date: base.Add(time.Hour)})

	refs, err := NewFileSource(dir).List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 2 || refs[0].ID != "new" || refs[1].ID != "old" {
		t.Errorf("refs = %+v, want [new old]", refs)
	}
}

func TestFileSource_QueryFiltersSubjectAndSender(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, Message{ID: "m1", Subject: "Interview invitation", Sender: "jane@initech.com"})
	writeMessage(t, dir, Message{ID: "m2", Subject: "Weekly digest", Sender: "digest@jobboard.example"})

	src := NewFileSource(dir)

	refs, err := src.List(context.Background(), "interview")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != "m1" {
		t.Errorf("subject query refs = %+v, want [m1]", refs)
	}

	refs, err = src.List(context.Background(), "jobboard")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != "m2" {
		t.Errorf("sender query refs = %+v, want [m2]", refs)
	}
}

func TestFileSource_Fetch(t *testing.T) {
	dir := t.TempDir()
	writeMessage(t, dir, Message{ID: "m1", ThreadID: "t1", Subject: "Hello", Sender: "jane@initech.com", Text: "body"})

	msg, err := NewFileSource(dir).Fetch(context.Background(), Ref{ID: "m1"})
	if err != nil {
		t.Fatal(err)
	}
	if msg.Subject != "Hello" || msg.Text != "body" || msg.ThreadID != "t1" {
		t.Errorf("msg = %+v", msg)
	}
}

func TestFileSource_FetchMissing(t *testing.T) {
	if _, err := NewFileSource(t.TempDir()).Fetch(context.Background(), Ref{ID: "ghost"}); err == nil {
		t.Fatal("expected error for missing message")
	}
}

func TestFileSource_IDFromFilename(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "m7.json"), []byte(`{"subject":"Hi"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	refs, err := NewFileSource(dir).List(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 || refs[0].ID != "m7" {
		t.Errorf("refs = %+v, want id derived from filename", refs)
	}
}

func TestFetchBatch_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	for _, id := range []string{"a", "b", "c"} {
		writeMessage(t, dir, Message{ID: id, Subject: "s-" + id})
	}
	src := NewFileSource(dir)

	refs := []Ref{{ID: "c"}, {ID: "a"}, {ID: "b"}}
	msgs, err := FetchBatch(context.Background(), src, refs, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 3 {
		t.Fatalf("got %d messages", len(msgs))
	}
	for i, want := range []string{"c", "a", "b"} {
		if msgs[i].ID != want {
			t.Errorf("msgs[%d].ID = %q, want %q", i, msgs[i].ID, want)
		}
	}
}
