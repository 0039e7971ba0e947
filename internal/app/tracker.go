package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"
	"unicode"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/mizukiro/anibridge/internal/domain"
)

var ErrTrackerNotConfigured = errors.New("tracker not configured")

// TrackerService parle au service de tracking (API GraphQL type AniList):
// recherche d'un id numérique par titre, mutation de progression par
// (id, numéro d'épisode).
type TrackerService struct {
	settings func(ctx context.Context) (domain.Settings, error)
	endpoint string
	client   *http.Client
}

func NewTrackerService(settingsGetter func(ctx context.Context) (domain.Settings, error)) *TrackerService {
	return &TrackerService{
		settings: settingsGetter,
		endpoint: "https://graphql.anilist.co",
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

func (s *TrackerService) WithEndpoint(endpoint string) *TrackerService {
	if strings.TrimSpace(endpoint) != "" {
		s.endpoint = strings.TrimSpace(endpoint)
	}
	return s
}

type trackerGraphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type trackerGraphQLError struct {
	Message string `json:"message"`
}

type trackerGraphQLResponse[T any] struct {
	Data   T                     `json:"data"`
	Errors []trackerGraphQLError `json:"errors,omitempty"`
}

type TrackerMedia struct {
	ID    int `json:"id"`
	Title struct {
		Romaji  string `json:"romaji"`
		English string `json:"english"`
		Native  string `json:"native"`
	} `json:"title"`
	Synonyms []string `json:"synonyms"`
}

type searchPageData struct {
	Page struct {
		Media []TrackerMedia `json:"media"`
	} `json:"Page"`
}

// SearchMediaID résout un titre lisible vers l'id numérique du service.
// Le meilleur candidat est choisi par fuzzy match sur les titres et
// synonymes normalisés (accents pliés); à défaut, le premier résultat.
func (s *TrackerService) SearchMediaID(ctx context.Context, title string) (int, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return 0, errors.New("empty title")
	}

	req := trackerGraphQLRequest{
		Query: `query($q:String){
			Page(page:1, perPage:10){
				media(search:$q, type: ANIME){ id synonyms title{ romaji english native } }
			}
		}`,
		Variables: map[string]any{"q": title},
	}

	var out trackerGraphQLResponse[searchPageData]
	if err := s.do(ctx, "", req, &out); err != nil {
		return 0, err
	}
	if len(out.Errors) > 0 {
		return 0, errors.New(out.Errors[0].Message)
	}
	media := out.Data.Page.Media
	if len(media) == 0 {
		return 0, coded(CodeSync, "no tracker match for "+title, nil)
	}

	want := normalizeTitle(title)
	bestID := media[0].ID
	bestRank := -1
	for _, m := range media {
		for _, cand := range append([]string{m.Title.Romaji, m.Title.English, m.Title.Native}, m.Synonyms...) {
			if cand == "" {
				continue
			}
			rank := fuzzy.RankMatchNormalizedFold(want, normalizeTitle(cand))
			if rank < 0 {
				continue
			}
			if bestRank < 0 || rank < bestRank {
				bestRank = rank
				bestID = m.ID
			}
		}
	}
	return bestID, nil
}

type saveEntryData struct {
	SaveMediaListEntry struct {
		ID       int `json:"id"`
		Progress int `json:"progress"`
	} `json:"SaveMediaListEntry"`
}

// SaveProgress pousse (id, épisode) vers le service. Requiert le token.
func (s *TrackerService) SaveProgress(ctx context.Context, mediaID, episode int) error {
	if s == nil || s.settings == nil {
		return ErrTrackerNotConfigured
	}
	st, err := s.settings(ctx)
	if err != nil {
		return err
	}
	token := strings.TrimSpace(st.TrackerToken)
	if token == "" {
		return ErrTrackerNotConfigured
	}

	req := trackerGraphQLRequest{
		Query: `mutation($mediaId:Int,$progress:Int){
			SaveMediaListEntry(mediaId:$mediaId, progress:$progress){ id progress }
		}`,
		Variables: map[string]any{"mediaId": mediaID, "progress": episode},
	}

	var out trackerGraphQLResponse[saveEntryData]
	if err := s.do(ctx, token, req, &out); err != nil {
		return err
	}
	if len(out.Errors) > 0 {
		return errors.New(out.Errors[0].Message)
	}
	return nil
}

func (s *TrackerService) do(ctx context.Context, token string, req trackerGraphQLRequest, out any) error {
	b, err := json.Marshal(req)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "anibridge-server")
	if strings.TrimSpace(token) != "" {
		httpReq.Header.Set("Authorization", "Bearer "+strings.TrimSpace(token))
	}

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return errors.New("tracker http error: " + resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

// normalizeTitle plie accents et casse pour la comparaison de titres
// (NFD -> suppression Mn -> NFC, minuscules).
func normalizeTitle(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	tr := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	if out, _, err := transform.String(tr, s); err == nil {
		s = out
	}
	return strings.Join(strings.Fields(s), " ")
}
