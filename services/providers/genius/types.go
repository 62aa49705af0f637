package genius

// searchResponse is the api.genius.com/search payload
type searchResponse struct {
	Meta struct {
		Status  int    `json:"status"`
		Message string `json:"message"`
	} `json:"meta"`
	Response struct {
		Hits []hit `json:"hits"`
	} `json:"response"`
}

type hit struct {
	Type   string `json:"type"`
	Result song   `json:"result"`
}

type song struct {
	ID            int    `json:"id"`
	Title         string `json:"title"`
	URL           string `json:"url"`
	LyricsState   string `json:"lyrics_state"`
	PrimaryArtist struct {
		Name string `json:"name"`
	} `json:"primary_artist"`
}
