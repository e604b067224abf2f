package hook

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func writeManifest(t *testing.T, root, dir string, m Manifest) {
	t.Helper()
	path := filepath.Join(root, dir)
	if err := os.MkdirAll(path, 0o755); err != nil {
		t.Fatalf("failed to create hook dir: %v", err)
	}
	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("failed to marshal manifest: %v", err)
	}
	if err := os.WriteFile(filepath.Join(path, ManifestFile), data, 0o644); err != nil {
		t.Fatalf("failed to write manifest: %v", err)
	}
}

func TestManager_Discover(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "announce", Manifest{Name: "announce", Executable: "run.sh", Events: []string{EventIdentified}})
	writeManifest(t, root, "audit", Manifest{Name: "audit", Executable: "audit", Events: []string{EventEnrolled, EventIdentified}})
	writeManifest(t, root, "broken", Manifest{Name: "broken"})

	if err := os.MkdirAll(filepath.Join(root, "empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "stray.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(root, "garbled"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(root, "garbled", ManifestFile), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() failed: %v", err)
	}

	hooks := m.List()
	if len(hooks) != 2 {
		t.Fatalf("expected 2 hooks, got %d", len(hooks))
	}
	if hooks[0].Manifest.Name != "announce" || hooks[1].Manifest.Name != "audit" {
		t.Errorf("hooks should be sorted by name, got %s, %s", hooks[0].Manifest.Name, hooks[1].Manifest.Name)
	}
	if want := filepath.Join(root, "announce", "run.sh"); hooks[0].Executable != want {
		t.Errorf("expected executable %s, got %s", want, hooks[0].Executable)
	}

	if got := m.For(EventEnrolled); len(got) != 1 || got[0].Manifest.Name != "audit" {
		t.Errorf("unexpected enrolled subscribers %v", got)
	}
	if got := m.For(EventIdentified); len(got) != 2 {
		t.Errorf("expected 2 identified subscribers, got %d", len(got))
	}
}

func TestManager_Discover_MissingDir(t *testing.T) {
	m := NewManager(filepath.Join(t.TempDir(), "nope"))
	if err := m.Discover(); err != nil {
		t.Fatalf("Discover() on missing dir should not fail: %v", err)
	}
	if len(m.List()) != 0 {
		t.Error("expected no hooks")
	}
}

func TestManager_Discover_Rescan(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "a", Manifest{Name: "a", Executable: "a"})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if err := os.RemoveAll(filepath.Join(root, "a")); err != nil {
		t.Fatal(err)
	}
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Get("a"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("removed hook should be gone, got %v", err)
	}
}

func TestManager_Get(t *testing.T) {
	root := t.TempDir()
	writeManifest(t, root, "dir-name", Manifest{Executable: "x"})

	m := NewManager(root)
	if err := m.Discover(); err != nil {
		t.Fatal(err)
	}

	h, err := m.Get("dir-name")
	if err != nil {
		t.Fatalf("hook without a name should be keyed by its directory: %v", err)
	}
	if h.Manifest.Name != "dir-name" {
		t.Errorf("unexpected name %q", h.Manifest.Name)
	}
	if _, err := m.Get("other"); !errors.Is(err, ErrHookNotFound) {
		t.Errorf("expected ErrHookNotFound, got %v", err)
	}
}
