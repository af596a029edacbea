package call

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/pion/webrtc/v4"

	"github.com/peerwave/peerwave/internal/config"
)

type fakeDevice struct {
	audio  atomic.Bool
	video  atomic.Bool
	closes atomic.Int32
}

func newFakeDevice() *fakeDevice {
	d := &fakeDevice{}
	d.audio.Store(true)
	d.video.Store(true)
	return d
}

func (d *fakeDevice) AudioTrack() webrtc.TrackLocal { return nil }
func (d *fakeDevice) VideoTrack() webrtc.TrackLocal { return nil }
func (d *fakeDevice) SetAudioEnabled(enabled bool)  { d.audio.Store(enabled) }
func (d *fakeDevice) SetVideoEnabled(enabled bool)  { d.video.Store(enabled) }
func (d *fakeDevice) AudioEnabled() bool            { return d.audio.Load() }
func (d *fakeDevice) VideoEnabled() bool            { return d.video.Load() }
func (d *fakeDevice) Close() error                  { d.closes.Add(1); return nil }

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.Load(config.Options{Domain: "test.invalid"})
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return cfg
}

func waitForStatus(t *testing.T, events <-chan Event, want Status) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case e := <-events:
			if se, ok := e.(StatusEvent); ok && se.Status == want {
				return
			}
		case <-deadline:
			t.Fatalf("timed out waiting for status %v", want)
		}
	}
}

func TestEndBeforeStart(t *testing.T) {
	s := NewSession(testConfig(t))

	s.End()

	waitForStatus(t, s.Events(), StatusEnded)
	if s.Status() != StatusEnded {
		t.Errorf("Status = %v, want ended", s.Status())
	}
}

func TestEndIsIdempotent(t *testing.T) {
	s := NewSession(testConfig(t))
	dev := newFakeDevice()
	s.device = dev

	s.End()
	s.End()
	s.End()

	if n := dev.closes.Load(); n != 1 {
		t.Errorf("device closed %d times, want 1", n)
	}
}

func TestToggleMuteFlipsTrackState(t *testing.T) {
	s := NewSession(testConfig(t))
	s.device = newFakeDevice()

	if got := s.ToggleMute(); got {
		t.Error("first toggle should disable audio")
	}
	if s.device.AudioEnabled() {
		t.Error("device audio still enabled after mute")
	}
	if got := s.ToggleMute(); !got {
		t.Error("second toggle should re-enable audio")
	}
}

func TestToggleVideoFlipsTrackState(t *testing.T) {
	s := NewSession(testConfig(t))
	s.device = newFakeDevice()

	if got := s.ToggleVideo(); got {
		t.Error("first toggle should disable video")
	}
	if got := s.ToggleVideo(); !got {
		t.Error("second toggle should re-enable video")
	}
}

func TestStalePeerJoinedKeepsLiveAttempt(t *testing.T) {
	s := NewSession(testConfig(t))
	dev, err := OpenSyntheticDevice()
	if err != nil {
		t.Fatalf("OpenSyntheticDevice: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	s.device = dev

	// The peer's offer can be drained ahead of its peer_joined; the offer
	// path has already built the attempt by the time peer_joined arrives.
	s.startAttempt(RoleAnswerer)
	t.Cleanup(s.closeAttempt)

	s.mu.Lock()
	first := s.neg
	s.mu.Unlock()
	if first == nil {
		t.Fatal("no attempt installed")
	}

	s.handlePeerJoined()

	s.mu.Lock()
	second := s.neg
	s.mu.Unlock()
	if second != first {
		t.Fatal("late peer_joined must not replace a live attempt")
	}

	// After the peer actually left, a rejoin builds a fresh attempt.
	s.closeAttempt()
	s.handlePeerJoined()

	s.mu.Lock()
	third := s.neg
	s.mu.Unlock()
	if third == nil {
		t.Fatal("peer_joined after peer_left must start a new attempt")
	}
	if third == first {
		t.Fatal("rejoin must not reuse the closed attempt")
	}
}

func TestNoAttemptInstalledAfterEnd(t *testing.T) {
	s := NewSession(testConfig(t))
	dev, err := OpenSyntheticDevice()
	if err != nil {
		t.Fatalf("OpenSyntheticDevice: %v", err)
	}
	t.Cleanup(func() { dev.Close() })
	s.device = dev

	s.End()
	s.startAttempt(RoleAnswerer)

	s.mu.Lock()
	neg := s.neg
	s.mu.Unlock()
	if neg != nil {
		t.Fatal("attempt installed after End; the connection would leak")
	}
}

func TestSummaryBeforeAnyAttempt(t *testing.T) {
	s := NewSession(testConfig(t))

	sum := s.Summary()
	if sum.Role != "-" {
		t.Errorf("Role = %q, want placeholder before negotiation", sum.Role)
	}
	if sum.Duration != 0 {
		t.Errorf("Duration = %v, want 0 before start", sum.Duration)
	}
	if sum.Status != StatusWaiting {
		t.Errorf("Status = %v, want waiting", sum.Status)
	}
}

func TestStatusStringsAreUserFacing(t *testing.T) {
	cases := map[Status]string{
		StatusWaiting:    "waiting for peer",
		StatusConnecting: "connecting",
		StatusConnected:  "connected",
		StatusPeerLeft:   "peer left",
		StatusFailed:     "failed",
		StatusEnded:      "ended",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Errorf("%d.String() = %q, want %q", status, got, want)
		}
	}
}
