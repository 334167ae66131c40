package model

import "strings"

// PlaylistEntry is a single item of an expanded playlist
type PlaylistEntry struct {
	VideoID string
	Title   string
	URL     string
}

// Playlist is an expanded playlist ready to be turned into jobs
type Playlist struct {
	ID      string
	Title   string
	URL     string
	Entries []PlaylistEntry
}

// Len returns the number of entries
func (p *Playlist) Len() int {
	return len(p.Entries)
}

// EntryName returns the desired file name for the entry at index i:
// the entry title with the playlist-wide common prefix removed when that
// leaves something meaningful.
func (p *Playlist) EntryName(i int) string {
	if i < 0 || i >= len(p.Entries) {
		return ""
	}
	title := strings.TrimSpace(p.Entries[i].Title)
	prefix := strings.TrimSpace(strings.TrimSuffix(p.Title, " Playlist"))
	if prefix != "" && strings.HasPrefix(title, prefix) {
		if rest := strings.Trim(strings.TrimPrefix(title, prefix), " -|:"); rest != "" {
			return rest
		}
	}
	if title == "" {
		return p.Entries[i].VideoID
	}
	return title
}
