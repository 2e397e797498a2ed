package lib

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	youtubeURLRegexp  = regexp.MustCompile(`(https?://)?(www\.|m\.)?(youtube\.com/watch\?v=|youtu\.be/)[a-zA-Z0-9_-]+(\S*)`)
	playlistURLRegexp = regexp.MustCompile(`(https?://)?(www\.|m\.)?youtube\.com/playlist\?list=[a-zA-Z0-9_-]+(\S*)`)
)

// ExtractYoutubeURL returns the first YouTube video or playlist link found in text, with a scheme.
func ExtractYoutubeURL(text string) string {
	match := youtubeURLRegexp.FindString(text)
	if match == "" {
		match = playlistURLRegexp.FindString(text)
	}
	if match == "" {
		return ""
	}
	if !strings.HasPrefix(match, "http://") && !strings.HasPrefix(match, "https://") {
		match = "https://" + match
	}
	return match
}

func IsPlaylistURL(link string) bool {
	return strings.Contains(link, "playlist?list=") || strings.Contains(link, "&list=")
}

// ExtractVideoID returns the video id of a watch or short link, or "video" when none is found.
func ExtractVideoID(link string) string {
	parsed, err := url.Parse(link)
	if err != nil {
		return "video"
	}
	if strings.HasSuffix(parsed.Host, "youtu.be") {
		if id := strings.Trim(parsed.Path, "/"); id != "" {
			return id
		}
	}
	if id := parsed.Query().Get("v"); id != "" {
		return id
	}
	return "video"
}

func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

var nonWordRegexp = regexp.MustCompile(`[^\p{L}\p{N}_\s-]`)

// CleanTitle strips characters that do not belong in an audio caption or file name.
func CleanTitle(title string) string {
	cleaned := strings.TrimSpace(nonWordRegexp.ReplaceAllString(title, ""))
	if cleaned == "" {
		return "audio"
	}
	return cleaned
}
