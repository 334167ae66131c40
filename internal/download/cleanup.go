package download

import (
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
)

// ArtifactPolicy describes which files next to a finished download are
// leftovers of the engine and which must be kept.
type ArtifactPolicy struct {
	// Garbage are suffixes of temporary containers, partial downloads,
	// resumption metadata and re-encode leftovers.
	Garbage []string
	// Sidecars are suffixes that are never deleted (thumbnails).
	Sidecars []string
	// Intermediate matches per-stream files such as ".f137.mp4".
	Intermediate *regexp.Regexp
}

// DefaultArtifactPolicy returns the policy for yt-dlp with ffmpeg post-processing.
func DefaultArtifactPolicy() ArtifactPolicy {
	return ArtifactPolicy{
		Garbage:      []string{".webm", ".m4a", ".part", ".ytdl", ".orig", ".temp.mp4", ".temp", ".tmp"},
		Sidecars:     []string{".jpg", ".jpeg", ".webp", ".png"},
		Intermediate: regexp.MustCompile(`^\.f[0-9A-Za-z_-]+\.[A-Za-z0-9]+$`),
	}
}

// IsGarbage reports whether file (a name inside the download directory) is
// a leftover of the download whose final artifact is final.
func (p ArtifactPolicy) IsGarbage(file, base, final string) bool {
	if file == final || !strings.HasPrefix(file, base+".") {
		return false
	}

	suffix := strings.ToLower(file[len(base):])
	for _, s := range p.Sidecars {
		if strings.HasSuffix(suffix, s) {
			return false
		}
	}
	for _, g := range p.Garbage {
		if strings.HasSuffix(suffix, g) {
			return true
		}
	}
	return p.Intermediate != nil && p.Intermediate.MatchString(suffix)
}

// Cleanup deletes the leftovers of base in dir and returns how many files were
// removed. Failures are logged and otherwise ignored.
func Cleanup(fs afero.Fs, dir, base, final string, policy ArtifactPolicy, logger zerolog.Logger) int {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		logger.Debug().Err(err).Str("dir", dir).Msg("cleanup: cannot list directory")
		return 0
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !policy.IsGarbage(e.Name(), base, final) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		if err := fs.Remove(path); err != nil {
			logger.Debug().Err(err).Str("path", path).Msg("cleanup: remove failed")
			continue
		}
		removed++
	}
	return removed
}

// locateArtifact finds the most playable file for base in dir when the engine
// did not produce the expected name.
func locateArtifact(fs afero.Fs, dir, base string, policy ArtifactPolicy) (string, bool) {
	entries, err := afero.ReadDir(fs, dir)
	if err != nil {
		return "", false
	}

	var candidates []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, base+".") || policy.IsGarbage(name, base, "") {
			continue
		}
		if isSidecar(name, policy) {
			continue
		}
		candidates = append(candidates, name)
	}
	if len(candidates) == 0 {
		return "", false
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		pi := extPriority(filepath.Ext(candidates[i]))
		pj := extPriority(filepath.Ext(candidates[j]))
		if pi == pj {
			return candidates[i] < candidates[j]
		}
		return pi < pj
	})
	return filepath.Join(dir, candidates[0]), true
}

func isSidecar(name string, policy ArtifactPolicy) bool {
	lower := strings.ToLower(name)
	for _, s := range policy.Sidecars {
		if strings.HasSuffix(lower, s) {
			return true
		}
	}
	return false
}

// extPriority returns a priority score for file extensions (lower = better).
func extPriority(ext string) int {
	switch strings.ToLower(ext) {
	case ".mp4", ".mp3":
		return 0
	case ".mkv":
		return 1
	case ".webm":
		return 2
	case ".mov":
		return 3
	case ".avi":
		return 4
	case ".flv":
		return 5
	default:
		return 100
	}
}
