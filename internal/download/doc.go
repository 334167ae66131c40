package download

// Package download implements the sequential download queue on top of yt-dlp
// (via github.com/lrstanley/go-ytdlp). It resolves formats, runs one job at a
// time with progress propagation to the caller, picks collision-free output
// names and removes intermediate artifacts once a job finishes.
