package platform

// Package platform contains OS integration and external tooling glue:
// download directory resolution, OS open/reveal of finished files and
// playlist expansion via the ytdlp library.
