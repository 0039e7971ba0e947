package domain

import (
	"sort"
	"strconv"
	"strings"
)

// Episode is one entry of a title's episode list. Identity within a list is
// the Href; Number is display text and not guaranteed numeric ("Filme 1",
// "S2E03").
type Episode struct {
	Number string `json:"number"`
	Title  string `json:"title,omitempty"`
	Href   string `json:"href"`

	// Optional direct download URL when the provider exposes one.
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// TitleDetail is one title's metadata as fetched from a provider. Recreated
// wholesale on every fetch, never cached.
type TitleDetail struct {
	Title    string    `json:"title"`
	Aliases  string    `json:"aliases,omitempty"`
	Synopsis string    `json:"synopsis,omitempty"`
	AirDate  string    `json:"airDate,omitempty"`
	Rating   string    `json:"rating,omitempty"`
	CoverURL string    `json:"coverUrl,omitempty"`
	Episodes []Episode `json:"episodes"`
}

// EpisodeNumberValue extracts the numeric portion of an episode number label.
// "12" -> 12, "Filme 1" -> 1, "S2E03" -> 203 is NOT attempted: the first run
// of digits wins. Returns false when no digits are present.
func EpisodeNumberValue(label string) (int, bool) {
	start := -1
	for i, r := range label {
		if r >= '0' && r <= '9' {
			start = i
			break
		}
	}
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(label) && label[end] >= '0' && label[end] <= '9' {
		end++
	}
	n, err := strconv.Atoi(label[start:end])
	if err != nil {
		return 0, false
	}
	return n, true
}

// SortEpisodes orders a list ascending by numeric episode number (labels
// without digits sort last, between themselves lexicographically), then
// reverses when reverse is set. Navigation arithmetic depends on this order.
func SortEpisodes(eps []Episode, reverse bool) {
	sort.SliceStable(eps, func(i, j int) bool {
		ni, oki := EpisodeNumberValue(eps[i].Number)
		nj, okj := EpisodeNumberValue(eps[j].Number)
		switch {
		case oki && okj:
			if ni != nj {
				return ni < nj
			}
			return strings.Compare(eps[i].Number, eps[j].Number) < 0
		case oki:
			return true
		case okj:
			return false
		default:
			return strings.Compare(eps[i].Number, eps[j].Number) < 0
		}
	})
	if reverse {
		for i, j := 0, len(eps)-1; i < j; i, j = i+1, j-1 {
			eps[i], eps[j] = eps[j], eps[i]
		}
	}
}

// DedupeEpisodes drops later duplicates by href, preserving first-seen order.
func DedupeEpisodes(eps []Episode) []Episode {
	seen := make(map[string]struct{}, len(eps))
	out := eps[:0]
	for _, e := range eps {
		if _, ok := seen[e.Href]; ok {
			continue
		}
		seen[e.Href] = struct{}{}
		out = append(out, e)
	}
	return out
}
