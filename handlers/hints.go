package handlers

import (
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// Hints serves occasional usage tips to the app shell after a successful
// search. Tips are rate-limited per visitor so nobody sees them twice in
// quick succession.
type Hints struct {
	cooldowns   map[string]time.Time // visitor key -> last tip time
	cooldownMu  sync.RWMutex
	cooldownDur time.Duration
	tipChance   float32
	tips        []string
}

// visitor maps stay bounded; expired entries are pruned past this size
const maxCooldownEntries = 1000

func NewHints() *Hints {
	return &Hints{
		cooldowns:   make(map[string]time.Time),
		cooldownDur: 5 * time.Minute,
		tipChance:   0.15,
		tips: []string{
			"Tip: click an album cover to drop the needle on its tracks",
			"Tip: log in with Spotify to play full tracks instead of 30-second clips",
			"Tip: tracks without a preview clip spin as pure vinyl crackle",
			"Tip: the platter keeps spinning through the queue until the last track ends",
			"Tip: lyrics for the spinning track are one click away",
			"Tip: preview search digs through playlists, your query, and new releases",
		},
	}
}

// ShouldShowTip rolls the dice for one visitor. Returns the tip and true
// when one should be displayed.
func (h *Hints) ShouldShowTip(visitor string) (string, bool) {
	if rand.Float32() > h.tipChance {
		return "", false
	}

	h.cooldownMu.RLock()
	lastTip, hasCooldown := h.cooldowns[visitor]
	h.cooldownMu.RUnlock()

	if hasCooldown && time.Since(lastTip) < h.cooldownDur {
		return "", false
	}

	tip := h.tips[rand.Intn(len(h.tips))]

	h.cooldownMu.Lock()
	if len(h.cooldowns) >= maxCooldownEntries {
		h.pruneLocked()
	}
	h.cooldowns[visitor] = time.Now()
	h.cooldownMu.Unlock()

	log.Debugf("Showing tip for %s: %s", visitor, tip)
	return tip, true
}

// ClearCooldown removes the cooldown for a visitor (useful for testing)
func (h *Hints) ClearCooldown(visitor string) {
	h.cooldownMu.Lock()
	delete(h.cooldowns, visitor)
	h.cooldownMu.Unlock()
}

// CooldownRemaining returns the remaining cooldown time for a visitor
func (h *Hints) CooldownRemaining(visitor string) time.Duration {
	h.cooldownMu.RLock()
	defer h.cooldownMu.RUnlock()
	lastTip, exists := h.cooldowns[visitor]
	if !exists {
		return 0
	}
	remaining := h.cooldownDur - time.Since(lastTip)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (h *Hints) pruneLocked() {
	for visitor, lastTip := range h.cooldowns {
		if time.Since(lastTip) >= h.cooldownDur {
			delete(h.cooldowns, visitor)
		}
	}
}

// GetHint answers the shell's post-search poll. The hint field is empty
// when no tip applies this time.
func (m *Manager) GetHint(c *gin.Context) {
	tip, _ := m.Hints.ShouldShowTip(c.ClientIP())
	c.JSON(http.StatusOK, gin.H{"hint": tip})
}
