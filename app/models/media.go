package models

// MediaInfo is the subset of the extractor metadata the bot relies on.
type MediaInfo struct {
	ID              string       `json:"id"`
	Title           string       `json:"title"`
	DurationSeconds float64      `json:"duration"`
	ApproxSizeBytes int64        `json:"filesize_approx"`
	WebpageURL      string       `json:"webpage_url"`
	Entries         []MediaEntry `json:"entries,omitempty"`
}

type MediaEntry struct {
	ID              string  `json:"id"`
	Title           string  `json:"title"`
	URL             string  `json:"url"`
	DurationSeconds float64 `json:"duration"`
}
