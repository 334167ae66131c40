package platform

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/spf13/afero"
)

func TestCreateDirectoryIfNotExists(t *testing.T) {
	fs := afero.NewMemMapFs()
	testDir := "/downloads/ytplay"

	if err := CreateDirectoryIfNotExists(fs, testDir); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}

	exists, err := afero.DirExists(fs, testDir)
	if err != nil || !exists {
		t.Fatalf("Directory was not created: %s", testDir)
	}

	// Second call should not fail
	if err := CreateDirectoryIfNotExists(fs, testDir); err != nil {
		t.Fatalf("Failed to handle existing directory: %v", err)
	}
}

func TestGetHomeDownloadsDir(t *testing.T) {
	downloadsDir, err := GetHomeDownloadsDir()
	if err != nil {
		t.Fatalf("Failed to get downloads directory: %v", err)
	}

	if filepath.Base(downloadsDir) != "Downloads" {
		t.Errorf("Expected directory to end with 'Downloads', got: %s", downloadsDir)
	}
}

func stubCommands(t *testing.T, fail map[string]bool) *[][]string {
	t.Helper()
	var calls [][]string
	prevRun, prevLook := runCommand, lookPath
	runCommand = func(name string, args ...string) error {
		calls = append(calls, append([]string{name}, args...))
		if fail[name] {
			return errors.New("not available")
		}
		return nil
	}
	lookPath = func(file string) (string, error) {
		if file == "thunar" {
			return "/usr/bin/thunar", nil
		}
		return "", errors.New("not found")
	}
	t.Cleanup(func() {
		runCommand, lookPath = prevRun, prevLook
	})
	return &calls
}

func TestOpenFileInManager_NonExistentFile(t *testing.T) {
	calls := stubCommands(t, nil)

	err := OpenFileInManager(filepath.Join(t.TempDir(), "nonexistent.mp4"))
	if err == nil {
		t.Error("Expected error for non-existent file")
	}
	if len(*calls) != 0 {
		t.Errorf("No command should run, got %v", *calls)
	}

	if err := OpenFileWithDefaultApp(""); err == nil {
		t.Error("Expected error for empty path")
	}
}

func TestOpenFileInManager_WithExistingFile(t *testing.T) {
	if runtime.GOOS != OSLinux {
		t.Skip("command selection is checked on linux")
	}
	dir := t.TempDir()
	file := filepath.Join(dir, "clip.mp4")
	if err := os.WriteFile(file, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	calls := stubCommands(t, map[string]bool{XDGOpenCommand: true})
	if err := OpenFileInManager(file); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	got := *calls
	if len(got) != 2 || got[1][0] != "thunar" || got[1][1] != dir {
		t.Errorf("Expected xdg-open then thunar on %s, got %v", dir, got)
	}

	calls = stubCommands(t, nil)
	if err := OpenFileWithDefaultApp(file); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if got := *calls; len(got) != 1 || got[0][0] != XDGOpenCommand || got[0][1] != file {
		t.Errorf("Expected xdg-open %s, got %v", file, got)
	}
}
