// Package ui contains the Fyne desktop interface: the URL and format
// picker, the download queue list, and the player with its docked, mini and
// full-screen output windows. Background events are re-dispatched onto the
// Fyne thread with fyne.Do; the playback session only runs there.
package ui
