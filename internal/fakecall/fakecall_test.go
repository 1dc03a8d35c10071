package fakecall

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sabith-07/WISE/internal/domain"
	"github.com/Sabith-07/WISE/internal/session"
)

type notices []domain.Notice

func (n *notices) Notify(notice domain.Notice) { *n = append(*n, notice) }

func (n notices) last() domain.Notice { return n[len(n)-1] }

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name string
		req  Request
		want string
	}{
		{"ok", Request{"Mom", "Come home right now please"}, ""},
		{"missing caller", Request{"", "Come home right now please"}, "Caller ID and message are required."},
		{"long caller", Request{strings.Repeat("a", 31), "Come home right now please"}, "Caller ID must be 30 characters or less."},
		{"short message", Request{"Mom", "hi"}, "Message must be at least 10 characters."},
		{"long message", Request{"Mom", strings.Repeat("x", 301)}, "Message must be 300 characters or less."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.want == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrProviderValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestGenerateSuccess(t *testing.T) {
	var got Request
	gen := GeneratorFunc(func(_ context.Context, req Request) (string, error) {
		got = req
		return "  Your mom is calling about dinner.  ", nil
	})
	var n notices
	svc := NewService(gen, &n, nil)

	res := svc.Generate(context.Background(), Request{CallerID: " Mom ", PreRecordedMessage: "Come home right now please"})

	require.True(t, res.Success)
	assert.Equal(t, "Your mom is calling about dinner.", res.Data.ScenarioDescription)
	assert.Equal(t, "Mom", got.CallerID)
	assert.Equal(t, "Fake Call Scenario Generated!", n.last().Title)
}

func TestGenerateEmptyResult(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, Request) (string, error) { return " ", nil })
	res := NewService(gen, nil, nil).Generate(context.Background(), Request{"Mom", "Come home right now please"})

	assert.False(t, res.Success)
	assert.Nil(t, res.Data)
	assert.Equal(t, "Failed to generate scenario description from AI.", res.Error)
}

func TestGenerateProviderError(t *testing.T) {
	gen := GeneratorFunc(func(context.Context, Request) (string, error) { return "", errors.New("quota exceeded") })
	var n notices
	res := NewService(gen, &n, nil).Generate(context.Background(), Request{"Mom", "Come home right now please"})

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "quota exceeded")
	assert.Equal(t, domain.NoticeDestructive, n.last().Variant)
}

func TestGenerateValidationSkipsProvider(t *testing.T) {
	called := false
	gen := GeneratorFunc(func(context.Context, Request) (string, error) {
		called = true
		return "x", nil
	})
	res := NewService(gen, nil, nil).Generate(context.Background(), Request{"Mom", "short"})

	assert.False(t, res.Success)
	assert.Equal(t, "Message must be at least 10 characters.", res.Error)
	assert.False(t, called)
}

func TestParseScenario(t *testing.T) {
	assert.Equal(t, "A call", parseScenario(`{"scenarioDescription":" A call "}`))
	assert.Equal(t, "plain text", parseScenario("plain text\n"))
}

type fakeVibrator struct{ starts, stops int }

func (v *fakeVibrator) Start([]time.Duration) error { v.starts++; return nil }
func (v *fakeVibrator) Stop() error                 { v.stops++; return nil }

type fakeRinger struct {
	err     error
	rings   int
	silence int
}

func (r *fakeRinger) Ring(loop bool) error {
	r.rings++
	return r.err
}

func (r *fakeRinger) Silence() error {
	r.silence++
	return nil
}

func TestCallRingAndEnd(t *testing.T) {
	vib := &fakeVibrator{}
	ring := &fakeRinger{}
	var n notices
	store := session.NewStore()
	call := NewCall(vib, ring, &n, store, []time.Duration{time.Second}, nil)

	call.Ring("Mom")
	call.Ring("Dad")
	ringing, caller := call.Ringing()
	assert.True(t, ringing)
	assert.Equal(t, "Mom", caller)
	assert.True(t, store.Get().FakeCallRinging)
	assert.Equal(t, 1, vib.starts)
	assert.Equal(t, 1, ring.rings)

	require.NoError(t, call.End())
	assert.Equal(t, 1, vib.stops)
	assert.Equal(t, 1, ring.silence)
	assert.False(t, store.Get().FakeCallRinging)
	assert.Equal(t, "Call Ended", n.last().Title)

	assert.ErrorIs(t, call.End(), ErrNotRinging)
}

func TestCallRingtoneFailureNotifies(t *testing.T) {
	var n notices
	call := NewCall(nil, &fakeRinger{err: errors.New("autoplay blocked")}, &n, nil, nil, nil)

	call.Ring("Mom")

	require.Len(t, n, 1)
	assert.Equal(t, "Audio Playback Error", n[0].Title)
	ringing, _ := call.Ringing()
	assert.True(t, ringing)
}
