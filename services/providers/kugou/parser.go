package kugou

import (
	"encoding/base64"
	"regexp"
	"strings"
)

var (
	// [mm:ss.xx] or [mm:ss:xx]
	timedLineRegex = regexp.MustCompile(`^\[\d{2}:\d{2}[\.:]\d{2,3}\]`)

	// Credit lines such as "[00:05.00]作曲：xxx"
	creditLineRegex = regexp.MustCompile(`^\[\d{2}:\d{2}[\.:]\d{2,3}\].+：.+`)
)

const (
	// pureMusicText is the placeholder Kugou serves for instrumental tracks
	pureMusicText = "纯音乐，请欣赏"

	// creditScanLines bounds how far from each end credit lines are searched
	creditScanLines = 30
)

// decodeContent decodes the base64 LRC body and drops a leading BOM
func decodeContent(encoded string) (string, error) {
	decoded, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return strings.TrimPrefix(string(decoded), "\ufeff"), nil
}

// isInstrumental reports whether the LRC is Kugou's pure-music placeholder
func isInstrumental(lrc string) bool {
	return strings.Contains(lrc, pureMusicText)
}

// trimCredits keeps only timed lines and cuts the credit blocks Kugou
// prepends and appends (title, composer, lyricist, producer).
func trimCredits(lrc string) string {
	var timed []string
	for _, line := range strings.Split(strings.ReplaceAll(lrc, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(line)
		if timedLineRegex.MatchString(line) {
			timed = append(timed, line)
		}
	}
	if len(timed) == 0 {
		return ""
	}

	// Head: drop everything up to the last credit line in the top half
	start := 0
	for i := min(creditScanLines, (len(timed)+1)/2) - 1; i >= 0; i-- {
		if creditLineRegex.MatchString(timed[i]) {
			start = i + 1
			break
		}
	}

	// Tail: drop from the last credit line near the bottom
	end := len(timed)
	for i := 0; i < creditScanLines && len(timed)-1-i >= start; i++ {
		if creditLineRegex.MatchString(timed[len(timed)-1-i]) {
			end = len(timed) - 1 - i
			break
		}
	}

	return strings.Join(timed[start:end], "\n")
}

// detectLanguage guesses a language code from the script of the lyrics
func detectLanguage(declared, content string) string {
	if code := languageCode(declared); code != "" {
		return code
	}
	for _, r := range content {
		switch {
		case r >= '\u3040' && r <= '\u30ff':
			return "ja"
		case r >= '\uac00' && r <= '\ud7af':
			return "ko"
		case r >= '\u4e00' && r <= '\u9fff':
			return "zh"
		case r >= '\u0590' && r <= '\u05ff':
			return "he"
		case r >= '\u0600' && r <= '\u06ff':
			return "ar"
		}
	}
	return "en"
}

// languageCode maps Kugou's language labels to ISO codes
func languageCode(lang string) string {
	switch strings.ToLower(strings.TrimSpace(lang)) {
	case "":
		return ""
	case "英语", "english", "eng":
		return "en"
	case "中文", "chinese", "chi", "普通话", "国语", "粤语":
		return "zh"
	case "日语", "japanese", "jpn":
		return "ja"
	case "韩语", "korean", "kor":
		return "ko"
	case "西班牙语", "spanish", "spa":
		return "es"
	case "法语", "french", "fra":
		return "fr"
	case "德语", "german", "ger":
		return "de"
	}
	return ""
}
