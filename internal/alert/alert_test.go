package alert

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/location"
)

func failingLocator(err error) location.Locator {
	return location.LocatorFunc(func(context.Context) (domain.Coordinate, error) {
		return domain.Coordinate{}, err
	})
}

func TestComposeWithFix(t *testing.T) {
	c := NewComposer(location.NewStatic(12.9716, 77.5946), ComposerConfig{}, nil)

	msg := c.Compose(context.Background())

	assert.Equal(t, "https://www.google.com/maps?q=12.9716,77.5946", msg.Location)
	assert.Equal(t, "EMERGENCY ALERT! Location: https://www.google.com/maps?q=12.9716,77.5946", msg.Text)
	require.NotNil(t, msg.Position)
	assert.Empty(t, msg.Degraded)
}

func TestComposeDegradesOnLocationFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code string
	}{
		{"denied", domain.ErrPermissionDenied, "denied"},
		{"timeout", domain.ErrResolutionTimeout, "timeout"},
		{"unavailable", domain.ErrResolutionUnavailable, "unavailable"},
		{"unsupported", domain.ErrUnsupportedCapability, "unsupported"},
		{"unexpected", errors.New("gps exploded"), "unavailable"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewComposer(failingLocator(tt.err), ComposerConfig{}, nil)

			msg := c.Compose(context.Background())

			assert.Equal(t, "EMERGENCY ALERT! Location: Location unavailable", msg.Text)
			assert.Equal(t, "Location unavailable", msg.Location)
			assert.Nil(t, msg.Position)
			assert.Equal(t, tt.code, msg.Degraded)
		})
	}
}

func TestComposeTimesOutSlowLocator(t *testing.T) {
	slow := location.LocatorFunc(func(ctx context.Context) (domain.Coordinate, error) {
		<-ctx.Done()
		return domain.Coordinate{}, ctx.Err()
	})
	c := NewComposer(slow, ComposerConfig{Timeout: 10 * time.Millisecond}, nil)

	msg := c.Compose(context.Background())
	assert.Contains(t, msg.Text, "Location unavailable")
	assert.Equal(t, "timeout", msg.Degraded)
}

func TestComposeNilLocator(t *testing.T) {
	c := NewComposer(nil, ComposerConfig{}, nil)
	msg := c.Compose(context.Background())
	assert.Contains(t, msg.Text, "Location unavailable")
}

func TestRenderTemplateWithoutPlaceholder(t *testing.T) {
	c := NewComposer(nil, ComposerConfig{Template: "Need help now."}, nil)
	msg := c.Render(&domain.Coordinate{Latitude: 1.5, Longitude: -2.25}, nil)
	assert.Equal(t, "Need help now. https://www.google.com/maps?q=1.5,-2.25", msg.Text)
}

func TestDeepLink(t *testing.T) {
	link, err := DeepLink("https://wa.me/", "+91 98765-43210", "EMERGENCY ALERT! Location: https://www.google.com/maps?q=1,2")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(link, "https://wa.me/919876543210?text="), link)
	assert.Contains(t, link, "EMERGENCY%20ALERT!%20Location")
	assert.NotContains(t, link, "+")

	u, err := url.Parse(link)
	require.NoError(t, err)
	assert.Equal(t, "EMERGENCY ALERT! Location: https://www.google.com/maps?q=1,2", u.Query().Get("text"))
}

func TestEncodeURIComponent(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"EMERGENCY ALERT!", "EMERGENCY%20ALERT!"},
		{"it's (very) *urgent*", "it's%20(very)%20*urgent*"},
		{"a+b=c&d", "a%2Bb%3Dc%26d"},
		{"maps?q=1,2", "maps%3Fq%3D1%2C2"},
		{"-_.~", "-_.~"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, encodeURIComponent(tt.in), tt.in)
	}
}

func TestDeepLinkEmptyBase(t *testing.T) {
	_, err := DeepLink("  ", "1", "x")
	assert.Error(t, err)
}

type recordingOpener struct {
	urls []string
	err  error
}

func (o *recordingOpener) Open(_ context.Context, u string) error {
	o.urls = append(o.urls, u)
	return o.err
}

type fakeTexter struct {
	sent []string
	fail map[string]bool
}

func (f *fakeTexter) Text(_ context.Context, to, _ string) (string, error) {
	if f.fail[to] {
		return "", domain.ErrProviderDispatch
	}
	f.sent = append(f.sent, to)
	return "SM1", nil
}

type staticGuardians []domain.Guardian

func (g staticGuardians) List() []domain.Guardian { return g }

func TestDispatchOpensLink(t *testing.T) {
	opener := &recordingOpener{}
	d := NewDispatcher(opener, DispatcherConfig{WhatsAppNumber: "919876543210"}, nil)

	res, err := d.Dispatch(context.Background(), domain.EmergencyMessage{Text: "EMERGENCY ALERT! Location: Location unavailable"})
	require.NoError(t, err)
	require.Len(t, opener.urls, 1)
	assert.Equal(t, opener.urls[0], res.Link)
	assert.Empty(t, res.Texted)
}

func TestDispatchOpenerFailure(t *testing.T) {
	d := NewDispatcher(&recordingOpener{err: errors.New("no clients")}, DispatcherConfig{}, nil)
	_, err := d.Dispatch(context.Background(), domain.EmergencyMessage{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrProviderDispatch)
}

func TestDispatchWithoutOpener(t *testing.T) {
	d := NewDispatcher(nil, DispatcherConfig{}, nil)
	_, err := d.Dispatch(context.Background(), domain.EmergencyMessage{Text: "x"})
	assert.ErrorIs(t, err, domain.ErrUnsupportedCapability)
}

func TestDispatchTextsGuardians(t *testing.T) {
	texter := &fakeTexter{fail: map[string]bool{"+0987654321": true}}
	var notices []domain.Notice
	d := NewDispatcher(&recordingOpener{}, DispatcherConfig{SMSGuardians: true}, nil)
	d.SetGuardianTexting(texter, staticGuardians{
		{ID: "1", Name: "Mom", Phone: "+919876543210"},
		{ID: "2", Name: "Dad", Phone: "+0987654321"},
		{ID: "3", Name: "Friend"},
	}, noticeRecorder(&notices))

	res, err := d.Dispatch(context.Background(), domain.EmergencyMessage{Text: "help"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Mom"}, res.Texted)
	assert.Equal(t, []string{"Dad"}, res.TextFails)
	require.Len(t, notices, 1)
	assert.Equal(t, domain.NoticeDestructive, notices[0].Variant)
}

type noticeFunc func(domain.Notice)

func (f noticeFunc) Notify(n domain.Notice) { f(n) }

func noticeRecorder(out *[]domain.Notice) noticeFunc {
	return func(n domain.Notice) { *out = append(*out, n) }
}
