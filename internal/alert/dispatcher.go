package alert

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/Sabith-07/WISE/internal/device"
	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/logging"
)

// Texter sends one SMS. Implemented by notify.Service.
type Texter interface {
	Text(ctx context.Context, to, body string) (string, error)
}

// GuardianLister lists the trusted contacts.
type GuardianLister interface {
	List() []domain.Guardian
}

// DispatcherConfig selects the messaging deep link target.
type DispatcherConfig struct {
	DeepLinkBase   string
	WhatsAppNumber string
	SMSGuardians   bool
}

// Result reports what a dispatch did. Delivery is never confirmed.
type Result struct {
	Link      string   `json:"link"`
	Texted    []string `json:"texted,omitempty"`
	TextFails []string `json:"textFailures,omitempty"`
}

// Dispatcher opens a prefilled messaging deep link carrying the alert.
type Dispatcher struct {
	opener    device.Opener
	texter    Texter
	guardians GuardianLister
	notifier  device.Notifier
	logger    *zap.Logger

	mu  sync.RWMutex
	cfg DispatcherConfig
}

func NewDispatcher(opener device.Opener, cfg DispatcherConfig, logger *zap.Logger) *Dispatcher {
	if cfg.DeepLinkBase == "" {
		cfg.DeepLinkBase = "https://wa.me"
	}
	return &Dispatcher{
		opener:   opener,
		cfg:      cfg,
		notifier: device.NopNotifier{},
		logger:   logging.OrNop(logger),
	}
}

// SetGuardianTexting enables the SMS fan-out to guardians with a phone number.
func (d *Dispatcher) SetGuardianTexting(texter Texter, guardians GuardianLister, notifier device.Notifier) {
	d.texter = texter
	d.guardians = guardians
	if notifier != nil {
		d.notifier = notifier
	}
}

// SetConfig swaps the link settings; used on config reload.
func (d *Dispatcher) SetConfig(cfg DispatcherConfig) {
	if cfg.DeepLinkBase == "" {
		cfg.DeepLinkBase = "https://wa.me"
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.cfg = cfg
}

// Link builds https://<base>/<number>?text=<message>.
func (d *Dispatcher) Link(text string) (string, error) {
	d.mu.RLock()
	cfg := d.cfg
	d.mu.RUnlock()
	return DeepLink(cfg.DeepLinkBase, cfg.WhatsAppNumber, text)
}

// Dispatch opens the deep link for msg. Success means the link was handed to
// the opener, not that anything was delivered.
func (d *Dispatcher) Dispatch(ctx context.Context, msg domain.EmergencyMessage) (Result, error) {
	link, err := d.Link(msg.Text)
	if err != nil {
		return Result{}, err
	}
	if d.opener == nil {
		return Result{}, fmt.Errorf("%w: no outbound channel", domain.ErrUnsupportedCapability)
	}
	if err := d.opener.Open(ctx, link); err != nil {
		return Result{}, fmt.Errorf("%w: open deep link: %v", domain.ErrProviderDispatch, err)
	}
	d.logger.Info("alert dispatched", zap.String("link", link), zap.String("location", msg.Location))

	res := Result{Link: link}

	d.mu.RLock()
	smsGuardians := d.cfg.SMSGuardians
	d.mu.RUnlock()
	if smsGuardians && d.texter != nil && d.guardians != nil {
		res.Texted, res.TextFails = d.textGuardians(ctx, msg.Text)
	}
	return res, nil
}

func (d *Dispatcher) textGuardians(ctx context.Context, body string) (sent, failed []string) {
	for _, g := range d.guardians.List() {
		if g.Phone == "" {
			continue
		}
		if _, err := d.texter.Text(ctx, g.Phone, body); err != nil {
			d.logger.Warn("guardian sms failed", zap.String("guardian", g.Name), zap.Error(err))
			failed = append(failed, g.Name)
			continue
		}
		sent = append(sent, g.Name)
	}
	if len(failed) > 0 {
		d.notifier.Notify(domain.Notice{
			Title:       "SMS Alert Incomplete",
			Description: "Could not text: " + strings.Join(failed, ", "),
			Variant:     domain.NoticeDestructive,
		})
	}
	return sent, failed
}

// DeepLink builds a messaging deep link. The message is encoded the way
// browsers' encodeURIComponent does it: spaces as %20, and !'()* left bare.
func DeepLink(base, number, text string) (string, error) {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return "", errors.New("deep link base is empty")
	}
	if _, err := url.Parse(base); err != nil {
		return "", fmt.Errorf("invalid deep link base: %w", err)
	}
	return base + "/" + digitsOnly(number) + "?text=" + encodeURIComponent(text), nil
}

// uriComponentUnescaper restores the marks encodeURIComponent leaves bare.
var uriComponentUnescaper = strings.NewReplacer(
	"+", "%20",
	"%21", "!",
	"%27", "'",
	"%28", "(",
	"%29", ")",
	"%2A", "*",
)

func encodeURIComponent(s string) string {
	return uriComponentUnescaper.Replace(url.QueryEscape(s))
}

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
