// Package alert composes the emergency message and hands it to the outbound
// messaging channel.
package alert

import (
	"context"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/location"
	"github.com/Sabith-07/WISE/internal/logging"
)

const locationPlaceholder = "{location}"

// ComposerConfig holds the message template settings.
type ComposerConfig struct {
	Template        string
	UnavailableText string
	MapsBaseURL     string
	Timeout         time.Duration
}

func (c ComposerConfig) withDefaults() ComposerConfig {
	if c.Template == "" {
		c.Template = "EMERGENCY ALERT! Location: " + locationPlaceholder
	}
	if c.UnavailableText == "" {
		c.UnavailableText = "Location unavailable"
	}
	if c.MapsBaseURL == "" {
		c.MapsBaseURL = "https://www.google.com/maps"
	}
	return c
}

// Composer builds the emergency message around a freshly resolved fix.
type Composer struct {
	locator location.Locator
	logger  *zap.Logger

	mu  sync.RWMutex
	cfg ComposerConfig
}

func NewComposer(loc location.Locator, cfg ComposerConfig, logger *zap.Logger) *Composer {
	return &Composer{
		locator: loc,
		cfg:     cfg.withDefaults(),
		logger:  logging.OrNop(logger),
	}
}

// SetConfig swaps the template settings; used on config reload.
func (c *Composer) SetConfig(cfg ComposerConfig) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cfg = cfg.withDefaults()
}

// Compose resolves the current position and renders the message. It never
// fails: any location error degrades to the unavailable sentinel.
func (c *Composer) Compose(ctx context.Context) domain.EmergencyMessage {
	c.mu.RLock()
	timeout := c.cfg.Timeout
	c.mu.RUnlock()

	fix, err := location.Resolve(ctx, c.locator, timeout)
	if err != nil {
		c.logger.Warn("location unavailable for alert",
			zap.String("code", domain.LocationErrorCode(err)),
			zap.Error(err))
		return c.Render(nil, err)
	}
	return c.Render(&fix, nil)
}

// Render fills the template with fix, or with the sentinel when fix is nil.
func (c *Composer) Render(fix *domain.Coordinate, cause error) domain.EmergencyMessage {
	c.mu.RLock()
	cfg := c.cfg
	c.mu.RUnlock()

	msg := domain.EmergencyMessage{Location: cfg.UnavailableText}
	if fix != nil {
		pos := *fix
		msg.Position = &pos
		msg.Location = MapsLink(cfg.MapsBaseURL, pos)
	} else {
		msg.Degraded = domain.LocationErrorCode(cause)
		if msg.Degraded == "" {
			msg.Degraded = "unavailable"
		}
	}

	if strings.Contains(cfg.Template, locationPlaceholder) {
		msg.Text = strings.ReplaceAll(cfg.Template, locationPlaceholder, msg.Location)
	} else {
		msg.Text = strings.TrimSpace(cfg.Template) + " " + msg.Location
	}
	return msg
}

// MapsLink renders a map URL that drops a pin at fix.
func MapsLink(base string, fix domain.Coordinate) string {
	return base + "?q=" +
		strconv.FormatFloat(fix.Latitude, 'f', -1, 64) + "," +
		strconv.FormatFloat(fix.Longitude, 'f', -1, 64)
}
