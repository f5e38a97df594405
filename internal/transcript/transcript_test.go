package transcript

import (
	"sync"
	"testing"
)

func TestNewSeedsGreeting(t *testing.T) {
	tr := New("hello there")

	msgs := tr.Snapshot()
	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant {
		t.Errorf("expected assistant role, got %s", msgs[0].Role)
	}
	if msgs[0].Content != "hello there" {
		t.Errorf("content: got %q", msgs[0].Content)
	}
	if msgs[0].ID == "" {
		t.Error("expected generated id")
	}
}

func TestNewEmptyGreeting(t *testing.T) {
	if n := New("").Len(); n != 0 {
		t.Fatalf("expected empty transcript, got %d", n)
	}
}

func TestAppendKeepsOrder(t *testing.T) {
	tr := New("")
	a := NewMessage(RoleUser, "a")
	b := NewMessage(RoleAssistant, "b")
	c := NewMessage(RoleUser, "c")
	tr.Append(a)
	tr.Append(b)
	tr.Append(c)

	msgs := tr.Snapshot()
	want := []string{a.ID, b.ID, c.ID}
	for i, id := range want {
		if msgs[i].ID != id {
			t.Errorf("position %d: got %s, want %s", i, msgs[i].ID, id)
		}
	}
}

func TestAppendDuplicateIDIgnored(t *testing.T) {
	tr := New("")
	m := NewMessage(RoleUser, "once")
	tr.Append(m)
	m.Content = "twice"
	tr.Append(m)

	if tr.Len() != 1 {
		t.Fatalf("expected 1 message, got %d", tr.Len())
	}
	got, _ := tr.Get(m.ID)
	if got.Content != "once" {
		t.Errorf("content: got %q, want %q", got.Content, "once")
	}
}

func TestMutate(t *testing.T) {
	tr := New("")
	m := NewMessage(RoleAssistant, "")
	tr.Append(m)

	for _, chunk := range []string{"Hel", "lo"} {
		if !tr.Mutate(m.ID, func(c string) string { return c + chunk }) {
			t.Fatal("expected mutate to find message")
		}
	}

	got, ok := tr.Get(m.ID)
	if !ok {
		t.Fatal("message not found")
	}
	if got.Content != "Hello" {
		t.Errorf("content: got %q, want %q", got.Content, "Hello")
	}
	if got.Role != RoleAssistant {
		t.Errorf("role changed to %s", got.Role)
	}
}

func TestMutateUnknownIDIsNoop(t *testing.T) {
	tr := New("greeting")
	before := tr.Snapshot()

	called := false
	if tr.Mutate("missing", func(c string) string { called = true; return "x" }) {
		t.Error("expected mutate to report a miss")
	}
	if called {
		t.Error("fn must not run for a missing id")
	}

	after := tr.Snapshot()
	if len(after) != len(before) || after[0] != before[0] {
		t.Errorf("transcript changed: %+v -> %+v", before, after)
	}
}

func TestSnapshotIsACopy(t *testing.T) {
	tr := New("original")
	snap := tr.Snapshot()
	snap[0].Content = "edited"

	if tr.Snapshot()[0].Content != "original" {
		t.Error("snapshot edits leaked into the transcript")
	}
}

func TestHistoryDropsIDs(t *testing.T) {
	tr := New("hi")
	tr.Append(NewMessage(RoleUser, "question"))

	h := tr.History()
	want := []Turn{
		{Role: RoleAssistant, Content: "hi"},
		{Role: RoleUser, Content: "question"},
	}
	if len(h) != len(want) {
		t.Fatalf("expected %d turns, got %d", len(want), len(h))
	}
	for i := range want {
		if h[i] != want[i] {
			t.Errorf("turn %d: got %+v, want %+v", i, h[i], want[i])
		}
	}
}

func TestConcurrentMutateAndSnapshot(t *testing.T) {
	tr := New("")
	m := NewMessage(RoleAssistant, "")
	tr.Append(m)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			tr.Mutate(m.ID, func(c string) string { return c + "x" })
		}
	}()
	go func() {
		defer wg.Done()
		prev := 0
		for i := 0; i < 500; i++ {
			got, _ := tr.Get(m.ID)
			if len(got.Content) < prev {
				t.Errorf("content shrank from %d to %d", prev, len(got.Content))
				return
			}
			prev = len(got.Content)
		}
	}()
	wg.Wait()

	got, _ := tr.Get(m.ID)
	if len(got.Content) != 500 {
		t.Errorf("expected 500 bytes, got %d", len(got.Content))
	}
}
