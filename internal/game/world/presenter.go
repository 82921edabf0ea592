package world

import (
	"math"

	"go.uber.org/zap"

	"github.com/marcaocj/R1/internal/game/ai"
)

// logPresenter is the headless visual side of an enemy: health bar updates,
// animation changes, the death cue and overlay removal become debug log
// lines.
type logPresenter struct {
	logger  *zap.Logger
	showBar bool
	overlay bool
	percent int

	anim    ai.Animation
	animSet bool
}

func newLogPresenter(logger *zap.Logger, showBar bool) *logPresenter {
	return &logPresenter{logger: logger, showBar: showBar, overlay: showBar, percent: 100}
}

func (p *logPresenter) HealthChanged(current, max float64) {
	if !p.overlay || max <= 0 {
		return
	}
	pct := int(math.Round(100 * current / max))
	if pct == p.percent {
		return
	}
	p.percent = pct
	p.logger.Debug("health bar", zap.Int("percent", pct))
}

// Animate syncs the animation with the controller. Only changes of state or
// gait are logged.
func (p *logPresenter) Animate(a ai.Animation) {
	moving := a.Speed > 0.05
	if p.animSet && a.State == p.anim.State && moving == (p.anim.Speed > 0.05) {
		p.anim = a
		return
	}
	p.anim, p.animSet = a, true
	p.logger.Debug("animation",
		zap.String("state", string(a.State)),
		zap.Float64("speed", a.Speed),
		zap.Bool("in_combat", a.InCombat),
	)
}

func (p *logPresenter) PlayDeath() {
	p.logger.Debug("death animation")
}

func (p *logPresenter) RemoveOverlay() {
	p.overlay = false
}

// reset shows the health bar again after a respawn.
func (p *logPresenter) reset() {
	p.overlay = p.showBar
	p.percent = 100
	p.animSet = false
}
