package kugou

// lyricsSearchResponse is the krcs.kugou.com/search payload
type lyricsSearchResponse struct {
	Status     int               `json:"status"`
	ErrCode    int               `json:"errcode"`
	ErrMsg     string            `json:"errmsg"`
	Candidates []lyricsCandidate `json:"candidates"`
}

// lyricsCandidate is one lyrics file offered for a song hash
type lyricsCandidate struct {
	ID          string `json:"id"`
	AccessKey   string `json:"accesskey"`
	ProductFrom string `json:"product_from"`
	Singer      string `json:"singer"`
	Song        string `json:"song"`
	Duration    int    `json:"duration"` // milliseconds
	Language    string `json:"language"`
	KRCType     int    `json:"krctype"` // 1 = synced
	Score       int    `json:"score"`
}

// downloadResponse carries the base64-encoded LRC body
type downloadResponse struct {
	Status    int    `json:"status"`
	Info      string `json:"info"`
	ErrorCode int    `json:"error_code"`
	Charset   string `json:"charset"`
	Content   string `json:"content"`
}

// songSearchResponse is the msearchcdn song search payload
type songSearchResponse struct {
	Status  int `json:"status"`
	ErrCode int `json:"errcode"`
	Data    struct {
		Total int        `json:"total"`
		Info  []songInfo `json:"info"`
	} `json:"data"`
}

// songInfo is a catalog entry; Hash is what the lyrics search needs
type songInfo struct {
	Hash       string `json:"hash"`
	SQHash     string `json:"sqhash"`
	Hash320    string `json:"320hash"`
	SongName   string `json:"songname"`
	SingerName string `json:"singername"`
	AlbumName  string `json:"album_name"`
	Duration   int    `json:"duration"` // seconds
}
