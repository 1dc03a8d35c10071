// Package capability evaluates, once at startup, which device and provider
// capabilities this process can offer.
package capability

import (
	"os/exec"
	"strings"

	"github.com/Sabith-07/WISE/internal/config"
	"github.com/Sabith-07/WISE/internal/domain"
)

// Report is the startup capability snapshot. It is computed once and passed
// to the components that need it; nothing re-probes at runtime.
type Report struct {
	Microphone  domain.Availability `json:"microphone"`
	Speech      domain.Availability `json:"speech"`
	Geolocation domain.Availability `json:"geolocation"`
	Vibration   domain.Availability `json:"vibration"`
	SMS         domain.Availability `json:"sms"`
	AI          domain.Availability `json:"ai"`
}

// Probe inspects the configuration and the host.
type Probe struct {
	// LookPath finds executables; exec.LookPath when nil.
	LookPath func(file string) (string, error)
}

// Run evaluates every capability. Capabilities that live on a remote client
// (browser microphone, vibration, geolocation) are unknown until a client
// exercises them.
func (p Probe) Run(cfg *config.Config) Report {
	lookPath := p.LookPath
	if lookPath == nil {
		lookPath = exec.LookPath
	}

	r := Report{
		Microphone:  domain.Unknown,
		Speech:      domain.Unknown,
		Geolocation: domain.Unknown,
		Vibration:   domain.Unknown,
		SMS:         available(cfg.SMS.AccountSID != "" && cfg.SMS.AuthToken != "" && cfg.SMS.From != ""),
		AI:          available(strings.TrimSpace(cfg.AI.APIKey) != ""),
	}

	if strings.EqualFold(cfg.Voice.Provider, "deepgram") {
		_, err := lookPath(cfg.Voice.FFmpegCommand)
		r.Microphone = available(err == nil)
		r.Speech = available(strings.TrimSpace(cfg.Voice.DeepgramAPIKey) != "")
	}
	if _, _, ok := cfg.StaticFix(); ok {
		r.Geolocation = domain.Available
	}
	return r
}

func available(ok bool) domain.Availability {
	if ok {
		return domain.Available
	}
	return domain.Unavailable
}
