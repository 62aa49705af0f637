package scoring

import "testing"

func TestClassifyMarker(t *testing.T) {
	tests := []struct {
		line string
		want MarkerKind
	}{
		{"[Verse 1]", MarkerVerse1},
		{"[Verse 1: Kendrick Lamar]", MarkerVerse1},
		{"Verse 1", MarkerVerse1},
		{"verse one:", MarkerVerse1},
		{"[Verse]", MarkerVerse1},
		{"1절", MarkerVerse1},
		{"[1절]", MarkerVerse1},
		{"[Verse 2]", MarkerLaterVerse},
		{"(Verse Two)", MarkerLaterVerse},
		{"[Verse 3 - Guest]", MarkerLaterVerse},
		{"2 절", MarkerLaterVerse},
		{"[Chorus]", MarkerChorus},
		{"Chorus:", MarkerChorus},
		{"[Chorus 2]", MarkerChorus},
		{"[Refrain]", MarkerChorus},
		{"후렴", MarkerChorus},
		{"[Bridge]", MarkerBridge},
		{"(Bridge: Artist)", MarkerBridge},
		{"브릿지", MarkerBridge},
		{"[Pre-Chorus]", MarkerOther},
		{"[Intro]", MarkerOther},
		{"[Outro]", MarkerOther},
		{"", MarkerNone},
		{"Just a normal lyric line", MarkerNone},
		{"He said: the chorus of the night", MarkerNone},
		{"(Oh yeah)", MarkerNone},
		{"The verse that I wrote for you tonight", MarkerNone},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			if got := ClassifyMarker(tt.line); got != tt.want {
				t.Errorf("ClassifyMarker(%q) = %s, want %s", tt.line, got, tt.want)
			}
		})
	}
}

func TestDetectMarkers(t *testing.T) {
	tests := []struct {
		name string
		text string
		want MarkerSet
	}{
		{"none", "plain\nlyrics", MarkerSet{}},
		{"numbered", "[Verse 1]\na\n[Chorus]\nb\n[Verse 2]\nc", MarkerSet{Verse1: true, Verse2: true, Chorus: true}},
		{"unnumbered verses", "[Verse]\na\n[Verse]\nb", MarkerSet{Verse1: true, Verse2: true}},
		{"single unnumbered verse", "[Verse]\na\n[Bridge]\nb", MarkerSet{Verse1: true, Bridge: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectMarkers(tt.text); got != tt.want {
				t.Errorf("DetectMarkers() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestIsMarkerLine(t *testing.T) {
	if !IsMarkerLine("[Outro]") {
		t.Error("Expected [Outro] to be a marker line")
	}
	if IsMarkerLine("Counting stars") {
		t.Error("Did not expect a lyric line to be a marker")
	}
}
