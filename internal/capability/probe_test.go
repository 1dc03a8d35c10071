package capability

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Sabith-07/WISE/internal/config"
	"github.com/Sabith-07/WISE/internal/domain"
)

func found(string) (string, error)   { return "/usr/bin/ffmpeg", nil }
func missing(string) (string, error) { return "", errors.New("not found") }

func TestRunDefaults(t *testing.T) {
	r := Probe{LookPath: missing}.Run(config.Default())

	assert.Equal(t, domain.Unknown, r.Microphone)
	assert.Equal(t, domain.Unknown, r.Speech)
	assert.Equal(t, domain.Unknown, r.Geolocation)
	assert.Equal(t, domain.Unknown, r.Vibration)
	assert.Equal(t, domain.Unavailable, r.SMS)
	assert.Equal(t, domain.Unavailable, r.AI)
}

func TestRunDeepgram(t *testing.T) {
	cfg := config.Default()
	cfg.Voice.Provider = "deepgram"
	cfg.Voice.DeepgramAPIKey = "key"

	r := Probe{LookPath: found}.Run(cfg)
	assert.Equal(t, domain.Available, r.Microphone)
	assert.Equal(t, domain.Available, r.Speech)

	r = Probe{LookPath: missing}.Run(cfg)
	assert.Equal(t, domain.Unavailable, r.Microphone)
}

func TestRunProviders(t *testing.T) {
	cfg := config.Default()
	cfg.SMS = config.SMSConfig{AccountSID: "AC", AuthToken: "tok", From: "+1500"}
	cfg.AI.APIKey = "gem"
	lat, lng := 12.97, 77.59
	cfg.Location.Latitude, cfg.Location.Longitude = &lat, &lng

	r := Probe{LookPath: missing}.Run(cfg)
	assert.Equal(t, domain.Available, r.SMS)
	assert.Equal(t, domain.Available, r.AI)
	assert.Equal(t, domain.Available, r.Geolocation)
}
