// Package remoteplayer implémente ports.PlayerBackend pour un lecteur
// piloté à distance (client HTTP, receiver cast): le backend publie "quoi
// jouer" sur le bus d'événements et le lecteur rapporte sa position via
// l'API; le coordinator la lit par polling comme pour un lecteur local.
package remoteplayer

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/mizukiro/anibridge/internal/domain"
	"github.com/mizukiro/anibridge/internal/ports"
)

type Player struct {
	bus ports.EventBus

	mu      sync.Mutex
	current domain.PlaybackRequest
	pos     float64
	dur     float64
	hasPos  bool
	done    chan ports.EndReason
	playing bool
}

func New(bus ports.EventBus) *Player {
	return &Player{bus: bus, done: make(chan ports.EndReason, 1)}
}

func (p *Player) Play(ctx context.Context, req domain.PlaybackRequest) error {
	p.mu.Lock()
	p.current = req
	p.pos = req.ResumeSeconds
	p.dur = 0
	p.hasPos = false
	p.done = make(chan ports.EndReason, 1)
	p.playing = true
	p.mu.Unlock()

	if b, err := json.Marshal(req); err == nil {
		p.bus.Publish("player.play", b)
	}
	return nil
}

// Position: ok uniquement après un premier rapport de durée finie.
func (p *Player) Position() (float64, float64, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || !p.hasPos || p.dur <= 0 {
		return 0, 0, false
	}
	return p.pos, p.dur, true
}

func (p *Player) Seek(seconds float64) error {
	p.mu.Lock()
	p.pos = seconds
	p.mu.Unlock()
	if b, err := json.Marshal(map[string]float64{"seconds": seconds}); err == nil {
		p.bus.Publish("player.seek", b)
	}
	return nil
}

func (p *Player) Done() <-chan ports.EndReason {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

func (p *Player) Stop() {
	p.mu.Lock()
	p.playing = false
	p.mu.Unlock()
	p.bus.Publish("player.stop", nil)
}

// Report est appelé par la couche HTTP quand le lecteur distant rapporte
// (position, durée). Les statuts cast arrivent sous la même forme.
func (p *Player) Report(current, duration float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.pos = current
	p.dur = duration
	p.hasPos = true
}

// End signale la fin de lecture (fin naturelle, rejet utilisateur ou
// erreur). Au plus un signal par Play.
func (p *Player) End(reason ports.EndReason) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing {
		return
	}
	p.playing = false
	select {
	case p.done <- reason:
	default:
	}
}
