package call

import "testing"

func TestSyntheticDeviceLifecycle(t *testing.T) {
	d, err := OpenSyntheticDevice()
	if err != nil {
		t.Fatalf("OpenSyntheticDevice: %v", err)
	}

	if d.AudioTrack() == nil || d.VideoTrack() == nil {
		t.Fatal("device must expose both tracks")
	}
	if !d.AudioEnabled() || !d.VideoEnabled() {
		t.Error("tracks should start enabled")
	}

	d.SetAudioEnabled(false)
	if d.AudioEnabled() {
		t.Error("audio still enabled after disable")
	}
	if !d.VideoEnabled() {
		t.Error("disabling audio must not touch video")
	}

	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}
