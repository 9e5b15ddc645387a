package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInferFormat(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"promozioni_eurospin.json", "json"},
		{"out.CSV", "csv"},
		{"report.md", "markdown"},
		{"report.markdown", "markdown"},
		{"page.htm", "html"},
		{"notes.txt", "text"},
		{"archive.zip", ""},
		{"noext", ""},
	}
	for _, tt := range tests {
		if got := InferFormat(tt.name); got != tt.want {
			t.Errorf("InferFormat(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestWriteOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "out.json")

	if err := Write(path, []byte(`[{"nome": "Caffè"}]`)); err != nil {
		t.Fatal(err)
	}
	if err := Write(path, []byte("[]\n")); err != nil {
		t.Fatal(err)
	}

	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "[]\n" {
		t.Errorf("Expected file to be replaced, got %q", got)
	}
}

func TestWriteLeavesNoTemporaryFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "promozioni_eurospin.json")

	for _, content := range []string{"[]\n", "[\n  {}\n]\n"} {
		if err := Write(path, []byte(content)); err != nil {
			t.Fatal(err)
		}
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "promozioni_eurospin.json" {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("Expected only the artifact in the directory, got %v", names)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0644 {
		t.Errorf("Expected mode 0644, got %v", info.Mode().Perm())
	}
}

func TestWriteConcurrentReadersSeeWholeFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.json")
	small := []byte("[]\n")
	large := []byte(strings.Repeat("x", 1<<20))
	if err := Write(path, small); err != nil {
		t.Fatal(err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			if err := Write(path, large); err != nil {
				t.Error(err)
				return
			}
			if err := Write(path, small); err != nil {
				t.Error(err)
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			return
		default:
		}
		got, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}
		if len(got) != len(small) && len(got) != len(large) {
			t.Fatalf("Read a partial file of %d bytes", len(got))
		}
	}
}

func TestWriteRejectsInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.txt")
	if err := Write(path, []byte{0xff, 0xfe}); err == nil {
		t.Error("Expected error for invalid UTF-8")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("Expected no file to be written")
	}
}

func TestWriteEmptyPath(t *testing.T) {
	if err := Write("", []byte("x")); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestContentType(t *testing.T) {
	tests := map[string]string{
		"json":     "application/json; charset=utf-8",
		"csv":      "text/csv; charset=utf-8",
		"markdown": "text/markdown; charset=utf-8",
		"html":     "text/html; charset=utf-8",
		"text":     "text/plain; charset=utf-8",
	}
	for format, want := range tests {
		if got := ContentType(format); got != want {
			t.Errorf("ContentType(%q) = %q, want %q", format, got, want)
		}
	}
}

func TestFormatsHaveExtensions(t *testing.T) {
	for _, ext := range []string{".json", ".csv", ".md", ".txt", ".html"} {
		found := false
		for _, f := range Formats {
			if InferFormat("out"+ext) == f {
				found = true
			}
		}
		if !found {
			t.Errorf("Extension %s infers a format missing from Formats", ext)
		}
	}
}
