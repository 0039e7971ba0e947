package domain

import (
	"sort"
)

// QualityVariant is one rung of a quality ladder: a label like "1080p" and
// the URL serving that rendition. Also reused for download candidates, where
// the label is a filename.
type QualityVariant struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

// StreamCandidate is the resolved playable reference for one episode.
// Ephemeral: recomputed per playback request, never persisted.
type StreamCandidate struct {
	URL         string           `json:"url"`
	SubtitleURL string           `json:"subtitleUrl,omitempty"`
	Variants    []QualityVariant `json:"variants,omitempty"`
}

// SortVariantsDesc orders a ladder by descending numeric quality. Labels
// without a numeric portion sink to the end.
func SortVariantsDesc(vs []QualityVariant) {
	sort.SliceStable(vs, func(i, j int) bool {
		ni, oki := EpisodeNumberValue(vs[i].Label)
		nj, okj := EpisodeNumberValue(vs[j].Label)
		if oki && okj {
			return ni > nj
		}
		return oki && !okj
	})
}

// PlaybackRequest is what a player backend needs to start rendering.
type PlaybackRequest struct {
	URL           string  `json:"url"`
	SubtitleURL   string  `json:"subtitleUrl,omitempty"`
	ResumeSeconds float64 `json:"resumeSeconds"`
}
