package main

import (
	"net/http"
	"strconv"
	"strings"

	"lyrics-resolver-go/services/providers"
)

// firstParam returns the first non-empty value among the given query parameter aliases
func firstParam(r *http.Request, names ...string) string {
	q := r.URL.Query()
	for _, name := range names {
		if v := strings.TrimSpace(q.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

// queryFromRequest reads the song identity, accepting the short aliases
// older clients send (s/song for the title, a for the artist)
func queryFromRequest(r *http.Request) providers.Query {
	return providers.Query{
		Artist: firstParam(r, "artist", "a", "artistName"),
		Title:  firstParam(r, "title", "s", "song", "songName"),
	}
}

// boolParam parses a flag parameter; a bare "?refresh" counts as true
func boolParam(r *http.Request, name string) bool {
	values, ok := r.URL.Query()[name]
	if !ok {
		return false
	}
	if len(values) == 0 || values[0] == "" {
		return true
	}
	b, err := strconv.ParseBool(values[0])
	return err == nil && b
}
