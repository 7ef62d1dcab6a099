package transcriber

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeSink collects appended fragments
type fakeSink struct {
	mu        sync.Mutex
	fragments []string
}

func (f *fakeSink) Append(text string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fragments = append(f.fragments, text)
	return true
}

func (f *fakeSink) all() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.fragments))
	copy(out, f.fragments)
	return out
}

// writeScript creates an executable shell script in dir
func writeScript(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755); err != nil {
		t.Fatalf("failed to write script: %v", err)
	}
	return path
}

// writeChunk creates a placeholder chunk file
func writeChunk(t *testing.T, dir string) string {
	t.Helper()
	path := filepath.Join(dir, "chunk_test.wav")
	if err := os.WriteFile(path, []byte("fake audio"), 0o644); err != nil {
		t.Fatalf("failed to write chunk: %v", err)
	}
	return path
}

func drainOne(tr *Transcriber, path string) {
	ch := make(chan string, 1)
	ch <- path
	close(ch)
	tr.Drain(ch)
}

func TestProcessChunkAppendsCleanedFragment(t *testing.T) {
	dir := t.TempDir()
	exe := writeScript(t, dir, "recognizer",
		`printf 'model info\n\nHello (cough) world [noise]\n\ndone\n'`)
	chunk := writeChunk(t, dir)

	sink := &fakeSink{}
	tr := New(Config{Executable: exe}, nil, sink, testLogger(), nil)

	drainOne(tr, chunk)

	got := sink.all()
	if len(got) != 1 || got[0] != "Hello world " {
		t.Errorf("fragments = %v, want [%q]", got, "Hello world ")
	}

	if _, err := os.Stat(chunk); !os.IsNotExist(err) {
		t.Error("chunk file not deleted after transcription")
	}

	stats := tr.GetStats()
	if stats.Completed != 1 {
		t.Errorf("Completed = %d, want 1", stats.Completed)
	}
}

func TestProcessChunkParseMissSkipsSilently(t *testing.T) {
	dir := t.TempDir()
	exe := writeScript(t, dir, "recognizer",
		`printf 'no payload here\njust noise\n'`)
	chunk := writeChunk(t, dir)

	sink := &fakeSink{}
	tr := New(Config{Executable: exe}, nil, sink, testLogger(), nil)

	drainOne(tr, chunk)

	if got := sink.all(); len(got) != 0 {
		t.Errorf("fragments = %v, want none", got)
	}

	// Chunk file deleted regardless of match success
	if _, err := os.Stat(chunk); !os.IsNotExist(err) {
		t.Error("chunk file not deleted after parse miss")
	}

	stats := tr.GetStats()
	if stats.ParseMisses != 1 {
		t.Errorf("ParseMisses = %d, want 1", stats.ParseMisses)
	}
}

func TestProcessChunkSubprocessFailure(t *testing.T) {
	dir := t.TempDir()
	exe := writeScript(t, dir, "recognizer", `exit 1`)
	chunk := writeChunk(t, dir)

	sink := &fakeSink{}
	tr := New(Config{Executable: exe}, nil, sink, testLogger(), nil)

	drainOne(tr, chunk)

	if got := sink.all(); len(got) != 0 {
		t.Errorf("fragments = %v, want none", got)
	}
	if _, err := os.Stat(chunk); !os.IsNotExist(err) {
		t.Error("chunk file not deleted after subprocess failure")
	}

	stats := tr.GetStats()
	if stats.Failures != 1 {
		t.Errorf("Failures = %d, want 1", stats.Failures)
	}
}

func TestProcessChunkAnnotationOnlyFragmentSkipped(t *testing.T) {
	dir := t.TempDir()
	exe := writeScript(t, dir, "recognizer",
		`printf 'info\n\n[BLANK_AUDIO]\n\n'`)
	chunk := writeChunk(t, dir)

	sink := &fakeSink{}
	tr := New(Config{Executable: exe}, nil, sink, testLogger(), nil)

	drainOne(tr, chunk)

	if got := sink.all(); len(got) != 0 {
		t.Errorf("fragments = %v, want none", got)
	}
}

func TestDrainPreservesOrder(t *testing.T) {
	dir := t.TempDir()

	// The recognizer echoes the chunk file's own content as the payload
	exe := writeScript(t, dir, "recognizer",
		`printf '\n'; cat "$1"; printf '\n\n'`)

	paths := make([]string, 3)
	for i, content := range []string{"one", "two", "three"} {
		path := filepath.Join(dir, "chunk_"+content+".wav")
		if err := os.WriteFile(path, []byte(content+"\n"), 0o644); err != nil {
			t.Fatalf("failed to write chunk: %v", err)
		}
		paths[i] = path
	}

	sink := &fakeSink{}
	tr := New(Config{Executable: exe}, nil, sink, testLogger(), nil)

	ch := make(chan string, 3)
	for _, p := range paths {
		ch <- p
	}
	close(ch)
	tr.Drain(ch)

	got := sink.all()
	want := []string{"one ", "two ", "three "}
	if len(got) != len(want) {
		t.Fatalf("fragments = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fragment[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
