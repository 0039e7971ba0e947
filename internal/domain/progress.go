package domain

import "time"

// PlaybackProgressRecord is the per-episode persisted playback state, keyed
// by the episode href. lastPlayed is clamped to total by the writer; total
// is only meaningful once the player reported a finite duration.
type PlaybackProgressRecord struct {
	Href              string    `json:"href"`
	LastPlayedSeconds float64   `json:"lastPlayedSeconds"`
	TotalSeconds      float64   `json:"totalSeconds"`
	UpdatedAt         time.Time `json:"updatedAt"`
}

// Clamp enforce lastPlayed <= total (quand total est connu).
func (r PlaybackProgressRecord) Clamp() PlaybackProgressRecord {
	if r.TotalSeconds > 0 && r.LastPlayedSeconds > r.TotalSeconds {
		r.LastPlayedSeconds = r.TotalSeconds
	}
	if r.LastPlayedSeconds < 0 {
		r.LastPlayedSeconds = 0
	}
	return r
}

// ContinueWatchingEntry is the denormalized snapshot written alongside each
// progress sample and consumed by a "continue watching" surface. Latest
// write wins per href.
type ContinueWatchingEntry struct {
	Href              string     `json:"href"`
	Provider          ProviderID `json:"provider"`
	Title             string     `json:"title"`
	EpisodeNumber     string     `json:"episodeNumber"`
	EpisodeTitle      string     `json:"episodeTitle,omitempty"`
	ThumbnailURL      string     `json:"thumbnailUrl,omitempty"`
	LastPlayedSeconds float64    `json:"lastPlayedSeconds"`
	TotalSeconds      float64    `json:"totalSeconds"`
	UpdatedAt         time.Time  `json:"updatedAt"`
}
