package app

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/ports"
)

type SessionState string

const (
	SessionIdle      SessionState = "idle"
	SessionResolving SessionState = "resolving"
	SessionPlaying   SessionState = "playing"
)

// syncThresholdSeconds: seuil "fin d'épisode" déclenchant le push tracker.
const syncThresholdSeconds = 120

var ErrNoActiveSession = errors.New("no active playback session")

// StartRequest démarre la lecture d'un épisode d'un titre.
type StartRequest struct {
	Provider domain.ProviderID
	Title    domain.TitleDetail
	// Index dans la liste TRIÉE selon la préférence reverseSort.
	Index  int
	Prompt PromptFunc
}

// playbackSession est l'état vivant de "l'épisode en cours". Créée à la
// sélection d'un épisode, détruite à la fin ou au remplacement.
type playbackSession struct {
	ID       string
	Provider domain.ProviderID
	Title    domain.TitleDetail // épisodes triés
	Index    int
	Reverse  bool
	AutoPlay bool
	PushSync bool
	Prefs    Preferences
	Prompt   PromptFunc

	Candidate domain.StreamCandidate

	// Garde at-most-once du push tracker, remise à zéro à chaque nouvel
	// épisode.
	syncSent bool

	cancel context.CancelFunc
}

func (s *playbackSession) episode() domain.Episode {
	return s.Title.Episodes[s.Index]
}

// Coordinator possède l'épisode courant, l'échantillonnage de progression,
// la persistance, l'avance auto et le déclenchement du sync distant —
// indépendamment du backend qui rend la vidéo. Toute mutation d'état passe
// par le mutex; les callbacks réseau ne touchent jamais l'état directement.
type Coordinator struct {
	logger    zerolog.Logger
	resolver  *StreamResolver
	progress  ports.ProgressRepository
	continues ports.ContinueWatchingRepository
	settings  func(ctx context.Context) (domain.Settings, error)
	sync      *ProgressSyncService
	backend   ports.PlayerBackend
	bus       ports.EventBus

	// Cadence d'échantillonnage (~1s en production, réduite en test).
	SampleInterval time.Duration

	mu    sync.Mutex
	state SessionState
	sess  *playbackSession
}

func NewCoordinator(
	logger zerolog.Logger,
	resolver *StreamResolver,
	progress ports.ProgressRepository,
	continues ports.ContinueWatchingRepository,
	settingsGetter func(ctx context.Context) (domain.Settings, error),
	syncSvc *ProgressSyncService,
	backend ports.PlayerBackend,
	bus ports.EventBus,
) *Coordinator {
	return &Coordinator{
		logger:         logger,
		resolver:       resolver,
		progress:       progress,
		continues:      continues,
		settings:       settingsGetter,
		sync:           syncSvc,
		backend:        backend,
		bus:            bus,
		SampleInterval: time.Second,
		state:          SessionIdle,
	}
}

// Start résout puis joue l'épisode demandé. En cas d'échec de résolution,
// l'état antérieur (session en cours comprise) reste intact.
func (c *Coordinator) Start(ctx context.Context, req StartRequest) error {
	st, err := c.settings(ctx)
	if err != nil {
		return err
	}

	title := req.Title
	title.Episodes = append([]domain.Episode(nil), title.Episodes...)
	domain.SortEpisodes(title.Episodes, st.ReverseSort)

	if req.Index < 0 || req.Index >= len(title.Episodes) {
		return coded(CodeNoCandidates, "episode index out of range", nil)
	}

	tpl := &playbackSession{
		Provider: req.Provider,
		Title:    title,
		Reverse:  st.ReverseSort,
		AutoPlay: st.AutoPlay,
		PushSync: st.PushSync,
		Prefs: Preferences{
			Quality: st.PreferredQuality,
			Audio:   st.PreferredAudio,
			Server:  st.PreferredServer,
		},
		Prompt: req.Prompt,
	}
	return c.startEpisode(ctx, tpl, req.Index)
}

// startEpisode fait la résolution hors verrou puis bascule la session.
func (c *Coordinator) startEpisode(ctx context.Context, tpl *playbackSession, index int) error {
	ep := tpl.Title.Episodes[index]

	c.mu.Lock()
	prev := c.state
	c.state = SessionResolving
	c.mu.Unlock()

	cand, err := c.resolver.Resolve(ctx, ResolveRequest{
		Provider: tpl.Provider,
		Href:     ep.Href,
		Prefs:    tpl.Prefs,
		Prompt:   tpl.Prompt,
	})
	if err != nil {
		c.mu.Lock()
		c.state = prev
		c.mu.Unlock()
		return err
	}

	// Reprise: seek au dernier temps connu avant la lecture.
	var resume float64
	if rec, rerr := c.progress.Get(ctx, ep.Href); rerr == nil && rec.LastPlayedSeconds > 0 {
		resume = rec.LastPlayedSeconds
	}

	sessCtx, cancel := context.WithCancel(context.Background())
	next := &playbackSession{
		ID:        uuid.NewString(),
		Provider:  tpl.Provider,
		Title:     tpl.Title,
		Index:     index,
		Reverse:   tpl.Reverse,
		AutoPlay:  tpl.AutoPlay,
		PushSync:  tpl.PushSync,
		Prefs:     tpl.Prefs,
		Prompt:    tpl.Prompt,
		Candidate: cand,
		cancel:    cancel,
	}

	if err := c.backend.Play(ctx, domain.PlaybackRequest{
		URL:           cand.URL,
		SubtitleURL:   cand.SubtitleURL,
		ResumeSeconds: resume,
	}); err != nil {
		cancel()
		c.mu.Lock()
		c.state = prev
		c.mu.Unlock()
		return err
	}

	// Le canal Done est remplacé par chaque Play: capturé ici, le watcher
	// d'une session remplacée ne peut pas consommer la fin de la suivante.
	done := c.backend.Done()

	c.mu.Lock()
	old := c.sess
	c.sess = next
	c.state = SessionPlaying
	c.mu.Unlock()
	if old != nil {
		old.cancel()
	}

	c.publish("session.started", map[string]any{
		"sessionId": next.ID,
		"provider":  next.Provider,
		"episode":   ep.Number,
		"href":      ep.Href,
		"url":       cand.URL,
		"resume":    resume,
	})
	c.logger.Info().
		Str("session", next.ID).
		Str("provider", string(next.Provider)).
		Str("episode", ep.Number).
		Float64("resume", resume).
		Msg("playback started")

	go c.watch(sessCtx, next, done)
	return nil
}

// watch échantillonne la position à cadence fixe et réagit à la fin de
// lecture. Une session remplacée est annulée via son contexte: aucun
// résultat tardif d'une session périmée n'est appliqué.
func (c *Coordinator) watch(ctx context.Context, sess *playbackSession, done <-chan ports.EndReason) {
	ticker := time.NewTicker(c.SampleInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-done:
			c.onPlaybackEnded(sess, reason)
			return
		case <-ticker.C:
			c.sample(ctx, sess)
		}
	}
}

// sample fait un tick de progression: exige une durée finie (sinon tick
// ignoré, sans erreur), persiste l'enregistrement + le snapshot "continue
// watching", et évalue le déclencheur de sync distant.
func (c *Coordinator) sample(ctx context.Context, sess *playbackSession) {
	cur, dur, ok := c.backend.Position()
	if !ok || dur <= 0 || math.IsInf(dur, 0) || math.IsNaN(dur) {
		return
	}

	c.mu.Lock()
	if c.sess != sess {
		// Résultat périmé: un autre épisode a pris la main.
		c.mu.Unlock()
		return
	}
	ep := sess.episode()
	triggerSync := false
	remaining := dur - cur
	if remaining < syncThresholdSeconds && sess.PushSync && !sess.syncSent {
		sess.syncSent = true
		triggerSync = true
	}
	c.mu.Unlock()

	now := time.Now().UTC()
	rec := domain.PlaybackProgressRecord{
		Href:              ep.Href,
		LastPlayedSeconds: cur,
		TotalSeconds:      dur,
		UpdatedAt:         now,
	}.Clamp()
	if err := c.progress.Put(ctx, rec); err != nil {
		c.logger.Warn().Err(err).Str("href", ep.Href).Msg("progress write failed")
	}
	if err := c.continues.Put(ctx, domain.ContinueWatchingEntry{
		Href:              ep.Href,
		Provider:          sess.Provider,
		Title:             sess.Title.Title,
		EpisodeNumber:     ep.Number,
		EpisodeTitle:      ep.Title,
		ThumbnailURL:      sess.Title.CoverURL,
		LastPlayedSeconds: rec.LastPlayedSeconds,
		TotalSeconds:      rec.TotalSeconds,
		UpdatedAt:         now,
	}); err != nil {
		c.logger.Warn().Err(err).Str("href", ep.Href).Msg("continue-watching write failed")
	}

	c.publish("session.progress", map[string]any{
		"sessionId": sess.ID,
		"href":      ep.Href,
		"current":   rec.LastPlayedSeconds,
		"duration":  rec.TotalSeconds,
	})

	if triggerSync {
		go c.pushSync(sess, ep)
	}
}

// pushSync: au plus une fois par session; échec loggé, jamais bloquant.
func (c *Coordinator) pushSync(sess *playbackSession, ep domain.Episode) {
	num, ok := domain.EpisodeNumberValue(ep.Number)
	if !ok {
		c.logger.Debug().Str("episode", ep.Number).Msg("non-numeric episode, sync skipped")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := c.sync.Push(ctx, sess.Title.Title, num); err != nil {
		c.logger.Warn().Err(err).Str("title", sess.Title.Title).Msg("remote sync failed")
	}
}

// onPlaybackEnded: une erreur backend vaut fin de lecture pour l'avance
// auto; elle ne fait jamais tomber le coordinator.
func (c *Coordinator) onPlaybackEnded(sess *playbackSession, reason ports.EndReason) {
	c.mu.Lock()
	if c.sess != sess {
		c.mu.Unlock()
		return
	}
	autoAdvance := sess.AutoPlay && reason != ports.EndDismissed
	c.mu.Unlock()

	c.publish("session.ended", map[string]any{
		"sessionId": sess.ID,
		"reason":    string(reason),
	})
	c.logger.Info().Str("session", sess.ID).Str("reason", string(reason)).Msg("playback ended")

	if autoAdvance {
		ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
		defer cancel()
		started, err := c.advance(ctx, 1)
		if err != nil {
			c.logger.Warn().Err(err).Msg("auto-advance failed")
		}
		if !started {
			// Dernier épisode (ou avance impossible): fin de lecture = Idle.
			c.clearSession(sess)
		}
		return
	}
	c.clearSession(sess)
}

func (c *Coordinator) clearSession(sess *playbackSession) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sess == sess {
		sess.cancel()
		c.sess = nil
		c.state = SessionIdle
	}
}

// Next avance dans le SENS DE TRI actif: une liste triée descendante
// décrémente l'index. Dépasser une borne clampe sans wrap ni erreur.
func (c *Coordinator) Next(ctx context.Context) error {
	_, err := c.advance(ctx, 1)
	return err
}

// Previous recule, même arithmétique inversée.
func (c *Coordinator) Previous(ctx context.Context) error {
	_, err := c.advance(ctx, -1)
	return err
}

// advance rapporte s'il a réellement démarré un autre épisode: une borne
// clampée rend (false, nil), ce qui laisse l'avance auto retomber sur Idle.
func (c *Coordinator) advance(ctx context.Context, direction int) (bool, error) {
	c.mu.Lock()
	sess := c.sess
	if sess == nil {
		c.mu.Unlock()
		return false, ErrNoActiveSession
	}
	delta := direction
	if sess.Reverse {
		delta = -direction
	}
	idx := sess.Index + delta
	if idx < 0 {
		idx = 0
	}
	if idx > len(sess.Title.Episodes)-1 {
		idx = len(sess.Title.Episodes) - 1
	}
	if idx == sess.Index {
		// Borne atteinte: on reste sur l'épisode courant.
		c.mu.Unlock()
		return false, nil
	}
	tpl := &playbackSession{
		Provider: sess.Provider,
		Title:    sess.Title,
		Reverse:  sess.Reverse,
		AutoPlay: sess.AutoPlay,
		PushSync: sess.PushSync,
		Prefs:    sess.Prefs,
		Prompt:   sess.Prompt,
	}
	c.mu.Unlock()

	if err := c.startEpisode(ctx, tpl, idx); err != nil {
		return false, err
	}
	return true, nil
}

// Stop termine la session courante et repasse Idle.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	sess := c.sess
	c.sess = nil
	c.state = SessionIdle
	c.mu.Unlock()

	if sess != nil {
		sess.cancel()
		c.backend.Stop()
		c.publish("session.ended", map[string]any{
			"sessionId": sess.ID,
			"reason":    string(ports.EndDismissed),
		})
	}
}

// SessionSnapshot est la vue lecture seule exposée par l'API.
type SessionSnapshot struct {
	State         SessionState      `json:"state"`
	SessionID     string            `json:"sessionId,omitempty"`
	Provider      domain.ProviderID `json:"provider,omitempty"`
	Title         string            `json:"title,omitempty"`
	EpisodeNumber string            `json:"episodeNumber,omitempty"`
	EpisodeHref   string            `json:"episodeHref,omitempty"`
	Index         int               `json:"index"`
	EpisodeCount  int               `json:"episodeCount"`
	URL           string            `json:"url,omitempty"`
	SyncSent      bool              `json:"syncSent"`
}

func (c *Coordinator) Snapshot() SessionSnapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	snap := SessionSnapshot{State: c.state}
	if c.sess != nil {
		ep := c.sess.episode()
		snap.SessionID = c.sess.ID
		snap.Provider = c.sess.Provider
		snap.Title = c.sess.Title.Title
		snap.EpisodeNumber = ep.Number
		snap.EpisodeHref = ep.Href
		snap.Index = c.sess.Index
		snap.EpisodeCount = len(c.sess.Title.Episodes)
		snap.URL = c.sess.Candidate.URL
		snap.SyncSent = c.sess.syncSent
	}
	return snap
}

func (c *Coordinator) publish(topic string, payload map[string]any) {
	if c.bus == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return
	}
	c.bus.Publish(topic, b)
}
