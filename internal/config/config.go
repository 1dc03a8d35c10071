package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Log       LogConfig       `yaml:"log"`
	Broadcast BroadcastConfig `yaml:"broadcast"`
	Alert     AlertConfig     `yaml:"alert"`
	Vibration VibrationConfig `yaml:"vibration"`
	Voice     VoiceConfig     `yaml:"voice"`
	Location  LocationConfig  `yaml:"location"`
	SMS       SMSConfig       `yaml:"sms"`
	AI        AIConfig        `yaml:"ai"`
	Guardians GuardianConfig  `yaml:"guardians"`
	Safety    SafetyConfig    `yaml:"safety"`
}

type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AuthToken      string   `yaml:"auth_token"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	StaticDir      string   `yaml:"static_dir"`
	Dev            bool     `yaml:"dev"`
	MaxConnections int      `yaml:"max_connections"`
}

type LogConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type BroadcastConfig struct {
	Throttle         time.Duration `yaml:"throttle"`
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`
}

type AlertConfig struct {
	WhatsAppNumber     string        `yaml:"whatsapp_number"`
	DeepLinkBase       string        `yaml:"deep_link_base"`
	MapsBaseURL        string        `yaml:"maps_base_url"`
	Template           string        `yaml:"template"`
	UnavailableText    string        `yaml:"unavailable_text"`
	LocationTimeout    time.Duration `yaml:"location_timeout"`
	CancelOnDeactivate bool          `yaml:"cancel_on_deactivate"`
	SMSGuardians       bool          `yaml:"sms_guardians"`
}

// VibrationConfig holds on/off patterns in milliseconds.
type VibrationConfig struct {
	SOSPattern  []int         `yaml:"sos_pattern"`
	SOSCycle    time.Duration `yaml:"sos_cycle"`
	RingPattern []int         `yaml:"ring_pattern"`
	RingCycle   time.Duration `yaml:"ring_cycle"`
}

type VoiceConfig struct {
	Provider         string        `yaml:"provider"` // "remote" or "deepgram"
	Keyword          string        `yaml:"keyword"`
	FuzzyDistance    int           `yaml:"fuzzy_distance"`
	Language         string        `yaml:"language"`
	DeepgramAPIKey   string        `yaml:"deepgram_api_key"`
	DeepgramModel    string        `yaml:"deepgram_model"`
	DeepgramBaseURL  string        `yaml:"deepgram_base_url"`
	FFmpegCommand    string        `yaml:"ffmpeg_command"`
	InputFormat      string        `yaml:"input_format"`
	InputDevice      string        `yaml:"input_device"`
	RestartBaseDelay time.Duration `yaml:"restart_base_delay"`
	RestartMaxDelay  time.Duration `yaml:"restart_max_delay"`
	MinSession       time.Duration `yaml:"min_session"`
	MaxRestarts      int           `yaml:"max_restarts"`
}

type LocationConfig struct {
	// Static fallback fix, used when no device has reported one.
	Latitude  *float64      `yaml:"latitude"`
	Longitude *float64      `yaml:"longitude"`
	MaxAge    time.Duration `yaml:"max_age"`
}

type SMSConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	From       string `yaml:"from"`
}

type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

type GuardianConfig struct {
	Persist  bool   `yaml:"persist"`
	StateDir string `yaml:"state_dir"`
}

// SafetyConfig holds the 0-100 metric inputs for the safety score.
type SafetyConfig struct {
	Lighting        int `yaml:"lighting"`
	CrimeRate       int `yaml:"crime_rate"`
	CrowdDensity    int `yaml:"crowd_density"`
	Surveillance    int `yaml:"surveillance"`
	CommunityRating int `yaml:"community_rating"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "127.0.0.1",
			MaxConnections: 16,
		},
		Log: LogConfig{
			Level: "info",
		},
		Broadcast: BroadcastConfig{
			Throttle:         100 * time.Millisecond,
			SnapshotInterval: 5 * time.Second,
		},
		Alert: AlertConfig{
			DeepLinkBase:    "https://wa.me",
			MapsBaseURL:     "https://www.google.com/maps",
			Template:        "EMERGENCY ALERT! Location: {location}",
			UnavailableText: "Location unavailable",
			LocationTimeout: 10 * time.Second,
		},
		Vibration: VibrationConfig{
			SOSPattern:  []int{500, 500},
			SOSCycle:    time.Second,
			RingPattern: []int{1000, 1000, 1000, 1000},
			RingCycle:   4 * time.Second,
		},
		Voice: VoiceConfig{
			Provider:         "remote",
			Keyword:          "help",
			Language:         "en-US",
			DeepgramModel:    "nova-2",
			DeepgramBaseURL:  "https://api.deepgram.com/v1",
			FFmpegCommand:    "ffmpeg",
			InputFormat:      "pulse",
			InputDevice:      "default",
			RestartBaseDelay: 250 * time.Millisecond,
			RestartMaxDelay:  10 * time.Second,
			MinSession:       2 * time.Second,
			MaxRestarts:      5,
		},
		Location: LocationConfig{
			MaxAge: 2 * time.Minute,
		},
		AI: AIConfig{
			Model: "gemini-2.0-flash",
		},
		Safety: SafetyConfig{
			Lighting:        85,
			CrimeRate:       92,
			CrowdDensity:    78,
			Surveillance:    70,
			CommunityRating: 88,
		},
	}
}

// Load reads the YAML file at path over the defaults, then applies secrets
// from the environment. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, err
			}
		case errors.Is(err, fs.ErrNotExist):
		default:
			return nil, err
		}
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	set := func(dst *string, key string) {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			*dst = v
		}
	}
	set(&c.SMS.AccountSID, "TWILIO_ACCOUNT_SID")
	set(&c.SMS.AuthToken, "TWILIO_AUTH_TOKEN")
	set(&c.SMS.From, "TWILIO_PHONE_NUMBER")
	set(&c.AI.APIKey, "GEMINI_API_KEY")
	set(&c.Voice.DeepgramAPIKey, "DEEPGRAM_API_KEY")
	set(&c.Alert.WhatsAppNumber, "WISE_EMERGENCY_WHATSAPP_NUMBER")
	set(&c.Server.AuthToken, "WISE_AUTH_TOKEN")
}

// StaticFix reports the configured fallback coordinate, if both halves are set.
func (c *Config) StaticFix() (lat, lng float64, ok bool) {
	if c.Location.Latitude == nil || c.Location.Longitude == nil {
		return 0, 0, false
	}
	return *c.Location.Latitude, *c.Location.Longitude, true
}

// Millis converts a millisecond pattern to durations.
func Millis(pattern []int) []time.Duration {
	out := make([]time.Duration, 0, len(pattern))
	for _, ms := range pattern {
		if ms < 0 {
			ms = 0
		}
		out = append(out, time.Duration(ms)*time.Millisecond)
	}
	return out
}
