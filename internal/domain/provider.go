package domain

// ProviderID identifie une source de streaming supportée.
type ProviderID string

const (
	ProviderAnimeWorld  ProviderID = "animeworld"
	ProviderGoGoAnime   ProviderID = "gogoanime"
	ProviderAnimeFox    ProviderID = "animefox"
	ProviderAniWatch    ProviderID = "aniwatch"
	ProviderAnimeSaturn ProviderID = "animesaturn"
	ProviderAnimePahe   ProviderID = "animepahe"
)

// DetailStrategy selects how a title's metadata page is fetched and decoded.
type DetailStrategy string

const (
	DetailHTML        DetailStrategy = "html"
	DetailHTMLSeasons DetailStrategy = "html-seasons"
	DetailJSON        DetailStrategy = "json-api"
)

// EpisodeStrategy selects how the episode list is extracted from the detail
// document. Every strategy yields a flat, deduplicated, UNSORTED list;
// sorting belongs to the caller (SortEpisodes).
type EpisodeStrategy string

const (
	// One DOM element per episode.
	EpisodesElements EpisodeStrategy = "elements"
	// A "start-end" label expanded into one episode per integer.
	EpisodesRange EpisodeStrategy = "range"
	// Numbered episodes plus films/specials counted separately.
	EpisodesFilmsSplit EpisodeStrategy = "films-split"
	// One secondary fetch per season, merged.
	EpisodesSeasons EpisodeStrategy = "seasons"
	// Nested JSON array in the API response.
	EpisodesJSONArray EpisodeStrategy = "json-array"
)

// StreamStrategy selects how an episode href becomes a playable URL.
type StreamStrategy string

const (
	StreamScrape   StreamStrategy = "scrape"
	StreamIframe   StreamStrategy = "iframe"
	StreamAttr     StreamStrategy = "attr"
	StreamAPI2Hop  StreamStrategy = "api-2hop"
	StreamManifest StreamStrategy = "manifest"
	StreamRedirect StreamStrategy = "redirect"
)

// HrefJoinRule describes how a content/episode reference is combined with a
// provider base URL.
type HrefJoinRule string

const (
	// Reference appended to the base URL as a path.
	JoinAppend HrefJoinRule = "append"
	// Identifier extracted from an "id=" query parameter, then appended.
	JoinIDQuery HrefJoinRule = "id-query"
	// Identifier extracted from an "?ep=" query parameter, then appended.
	JoinEpQuery HrefJoinRule = "ep-query"
)

// DetailSelectors holds the CSS selectors for HTML detail pages.
type DetailSelectors struct {
	Title    string
	Aliases  string
	Synopsis string
	AirDate  string
	Rating   string
	Cover    string // img element; l'attribut src porte l'affiche

	// Episode list extraction.
	EpisodeItem     string // one element per episode
	EpisodeHrefAttr string // attribute carrying the href, défaut "href"
	RangeLabel      string // element whose text is "start-end" (range strategy)
	SeasonLink      string // season page links (seasons strategy)
}

// StreamSelectors holds the selectors/attributes for scrape-family stream
// strategies.
type StreamSelectors struct {
	VideoSource    string // e.g. "video source"
	Iframe         string
	Attr           string // element selector for attribute scrape
	AttrName       string // e.g. "data-video-src"
	ManifestSource string // element whose attr points at the master playlist
	DownloadAnchor string // anchors matching host+extension for downloads
}

// APIEndpoints holds the path templates for JSON-API providers. Templates
// receive the (extracted) reference via fmt.Sprintf.
type APIEndpoints struct {
	Detail  string
	Servers string
	Sources string
}

// ProviderSpec is the compile-time description of one source. Immutable;
// the registry owns the table.
type ProviderSpec struct {
	ID      ProviderID
	Name    string
	Mirrors []string

	Detail   DetailStrategy
	Episodes EpisodeStrategy
	Stream   StreamStrategy
	Join     HrefJoinRule

	Selectors DetailSelectors
	StreamSel StreamSelectors
	API       APIEndpoints

	// EpisodeHrefTemplate builds an href from an expanded episode number
	// (range strategy), e.g. "/videos/%s-episode-%d".
	EpisodeHrefTemplate string
}
