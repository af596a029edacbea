package call

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/pion/webrtc/v4"
	"github.com/pion/webrtc/v4/pkg/media"
)

// MediaDevice is the local audio+video source a call attempt owns. Enabling
// and disabling tracks is track-level mute: the connection is never
// renegotiated for it.
type MediaDevice interface {
	AudioTrack() webrtc.TrackLocal
	VideoTrack() webrtc.TrackLocal
	SetAudioEnabled(enabled bool)
	SetVideoEnabled(enabled bool)
	AudioEnabled() bool
	VideoEnabled() bool
	Close() error
}

const (
	audioFrameInterval = 20 * time.Millisecond
	videoFrameInterval = 33 * time.Millisecond
)

// opusSilence is a single silent opus frame (TOC byte + comfort noise).
var opusSilence = []byte{0xf8, 0xff, 0xfe}

// vp8Filler is a minimal payload for the video sample writer. This device
// stands in for OS capture, which this build does not do; the tracks carry
// valid cadence so the transport behaves like a real call.
var vp8Filler = []byte{0x10, 0x02, 0x00, 0x9d, 0x01, 0x2a}

// SyntheticDevice produces silence and filler video frames from writer
// goroutines. Muting a track pauses its writer without touching the
// peer connection.
type SyntheticDevice struct {
	audio *webrtc.TrackLocalStaticSample
	video *webrtc.TrackLocalStaticSample

	audioOn atomic.Bool
	videoOn atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// OpenSyntheticDevice acquires the synthetic capture device. Failure here is
// fatal to starting a call; no signaling is attempted without local media.
func OpenSyntheticDevice() (*SyntheticDevice, error) {
	audio, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus},
		"audio", "peerwave",
	)
	if err != nil {
		return nil, NewError("acquire audio track", err)
	}

	video, err := webrtc.NewTrackLocalStaticSample(
		webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeVP8},
		"video", "peerwave",
	)
	if err != nil {
		return nil, NewError("acquire video track", err)
	}

	d := &SyntheticDevice{
		audio: audio,
		video: video,
		done:  make(chan struct{}),
	}
	d.audioOn.Store(true)
	d.videoOn.Store(true)

	d.wg.Add(2)
	go d.writeLoop(audio, audioFrameInterval, opusSilence, &d.audioOn)
	go d.writeLoop(video, videoFrameInterval, vp8Filler, &d.videoOn)

	return d, nil
}

func (d *SyntheticDevice) writeLoop(track *webrtc.TrackLocalStaticSample, interval time.Duration, payload []byte, enabled *atomic.Bool) {
	defer d.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-d.done:
			return
		case <-ticker.C:
			if !enabled.Load() {
				continue
			}
			// WriteSample is a no-op until the track is bound to a peer
			// connection, so the writers can start before negotiation.
			_ = track.WriteSample(media.Sample{Data: payload, Duration: interval})
		}
	}
}

func (d *SyntheticDevice) AudioTrack() webrtc.TrackLocal { return d.audio }
func (d *SyntheticDevice) VideoTrack() webrtc.TrackLocal { return d.video }

func (d *SyntheticDevice) SetAudioEnabled(enabled bool) { d.audioOn.Store(enabled) }
func (d *SyntheticDevice) SetVideoEnabled(enabled bool) { d.videoOn.Store(enabled) }

func (d *SyntheticDevice) AudioEnabled() bool { return d.audioOn.Load() }
func (d *SyntheticDevice) VideoEnabled() bool { return d.videoOn.Load() }

// Close stops both writers. Idempotent; safe whatever state the call was in.
func (d *SyntheticDevice) Close() error {
	d.closeOnce.Do(func() {
		close(d.done)
		d.wg.Wait()
	})
	return nil
}
