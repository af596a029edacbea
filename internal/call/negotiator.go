package call

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/pion/webrtc/v4"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/peerwave/peerwave/internal/config"
	"github.com/peerwave/peerwave/internal/protocol"
)

// Role is which side of the offer/answer exchange this attempt plays. The
// relay's join order decides it: the second arrival offers.
type Role string

const (
	RoleOfferer  Role = "offerer"
	RoleAnswerer Role = "answerer"
)

// Hooks are the callbacks a Negotiator reports through. Send carries outbound
// handshake payloads to the relay; the rest surface call-visible events.
type Hooks struct {
	Send        func(protocol.SignalPayload)
	OnState     func(State)
	OnPeerMedia func(audio, video bool)
	OnBye       func()
}

// Negotiator drives one call attempt's handshake to completion. It is owned
// by exactly one attempt and is never reused: renegotiation means closing
// this instance and constructing a fresh one.
type Negotiator struct {
	role  Role
	pc    *webrtc.PeerConnection
	hooks Hooks

	// addCandidate defaults to pc.AddICECandidate; indirect so the queue
	// logic is testable without a live peer connection.
	addCandidate func(webrtc.ICECandidateInit) error

	mu        sync.Mutex
	state     State
	remoteSet bool
	pending   []webrtc.ICECandidateInit
	control   *webrtc.DataChannel
	closed    bool
}

// newPeerConnection builds the pion connection from config: STUN always,
// TURN when configured, relay-only policy when forced.
func newPeerConnection(cfg *config.Config) (*webrtc.PeerConnection, error) {
	iceServers := []webrtc.ICEServer{{URLs: cfg.STUNServers()}}

	if turn := cfg.TURNServers(); turn != nil {
		user, pass := cfg.TURNCredentials()
		iceServers = append(iceServers, webrtc.ICEServer{
			URLs:       turn,
			Username:   user,
			Credential: pass,
		})
	}

	policy := webrtc.ICETransportPolicyAll
	if cfg.ForceRelay && cfg.TURNServers() != nil {
		policy = webrtc.ICETransportPolicyRelay
	}

	pc, err := webrtc.NewPeerConnection(webrtc.Configuration{
		ICEServers:         iceServers,
		ICETransportPolicy: policy,
	})
	if err != nil {
		return nil, NewError("create peer connection", err)
	}
	return pc, nil
}

// NewNegotiator creates a call attempt in the given role, attaches the local
// media tracks, and wires trickle ICE. The offerer also opens the in-call
// control channel; the answerer waits for it to arrive.
func NewNegotiator(cfg *config.Config, role Role, device MediaDevice, hooks Hooks) (*Negotiator, error) {
	pc, err := newPeerConnection(cfg)
	if err != nil {
		return nil, err
	}

	n := &Negotiator{
		role:  role,
		pc:    pc,
		hooks: hooks,
		state: StateNew,
	}
	n.addCandidate = pc.AddICECandidate

	for _, track := range []webrtc.TrackLocal{device.AudioTrack(), device.VideoTrack()} {
		sender, err := pc.AddTrack(track)
		if err != nil {
			pc.Close()
			return nil, NewError("add local track", err)
		}
		// Drain RTCP so the interceptors keep running.
		go func() {
			buf := make([]byte, 1500)
			for {
				if _, _, err := sender.Read(buf); err != nil {
					return
				}
			}
		}()
	}

	pc.OnICECandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			return
		}
		// Trickle mode: each candidate goes out the moment it is found.
		body, err := json.Marshal(c.ToJSON())
		if err != nil {
			return
		}
		n.hooks.Send(protocol.SignalPayload{Kind: protocol.KindCandidate, Candidate: body})
	})

	pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		switch state {
		case webrtc.PeerConnectionStateConnected:
			n.setState(StateConnected)
		case webrtc.PeerConnectionStateDisconnected:
			n.setState(StateDisconnected)
		case webrtc.PeerConnectionStateFailed:
			n.setState(StateFailed)
		case webrtc.PeerConnectionStateClosed:
			n.setState(StateClosed)
		}
	})

	pc.OnTrack(func(track *webrtc.TrackRemote, receiver *webrtc.RTPReceiver) {
		slog.Debug("remote track", "kind", track.Kind().String(), "id", track.ID())
		// Media rendering is out of scope here; keep the pipe drained.
		buf := make([]byte, 1500)
		for {
			if _, _, err := track.Read(buf); err != nil {
				return
			}
		}
	})

	if role == RoleOfferer {
		dc, err := pc.CreateDataChannel(controlChannelLabel, nil)
		if err != nil {
			pc.Close()
			return nil, NewError("create control channel", err)
		}
		n.bindControl(dc)
	} else {
		pc.OnDataChannel(func(dc *webrtc.DataChannel) {
			if dc.Label() == controlChannelLabel {
				n.bindControl(dc)
			}
		})
	}

	return n, nil
}

func (n *Negotiator) bindControl(dc *webrtc.DataChannel) {
	n.mu.Lock()
	n.control = dc
	n.mu.Unlock()

	dc.OnMessage(func(msg webrtc.DataChannelMessage) {
		var ctrl ControlMessage
		if err := msgpack.Unmarshal(msg.Data, &ctrl); err != nil {
			slog.Warn("bad control message", "err", err)
			return
		}
		switch ctrl.Type {
		case ControlTypePeerState:
			var p PeerStatePayload
			if err := ctrl.DecodePayload(&p); err != nil {
				return
			}
			if n.hooks.OnPeerMedia != nil {
				n.hooks.OnPeerMedia(p.Audio, p.Video)
			}
		case ControlTypeBye:
			if n.hooks.OnBye != nil {
				n.hooks.OnBye()
			}
		}
	})
}

// Role returns which side of the exchange this attempt plays.
func (n *Negotiator) Role() Role {
	return n.role
}

// State returns the current negotiation state.
func (n *Negotiator) State() State {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.state
}

func (n *Negotiator) isClosed() bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.closed
}

func (n *Negotiator) setState(s State) {
	n.mu.Lock()
	if n.closed || n.state == s {
		n.mu.Unlock()
		return
	}
	if n.state == StateFailed && s != StateClosed {
		// Failed is terminal: no in-place recovery, the caller builds a
		// fresh attempt instead.
		n.mu.Unlock()
		return
	}
	n.state = s
	n.mu.Unlock()

	if n.hooks.OnState != nil {
		n.hooks.OnState(s)
	}
}

// StartOffer runs the offerer side of the handshake: create, apply locally,
// send. Candidates trickle separately via OnICECandidate.
func (n *Negotiator) StartOffer() error {
	if n.role != RoleOfferer {
		return ErrWrongRole
	}
	if n.isClosed() {
		return ErrClosed
	}
	n.setState(StateNegotiating)

	offer, err := n.pc.CreateOffer(nil)
	if err != nil {
		return NewError("create offer", err)
	}
	if err := n.pc.SetLocalDescription(offer); err != nil {
		return NewError("set local description", err)
	}

	n.hooks.Send(protocol.SignalPayload{Kind: protocol.KindOffer, SDP: n.pc.LocalDescription().SDP})
	return nil
}

// HandleOffer runs the answerer side: apply the remote offer, flush any
// queued candidates, create and apply the answer, send it back.
func (n *Negotiator) HandleOffer(sdp string) error {
	if n.role != RoleAnswerer {
		return ErrWrongRole
	}
	if n.isClosed() {
		return ErrClosed
	}
	n.setState(StateNegotiating)

	if err := n.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: sdp}); err != nil {
		return NewError("set remote description", err)
	}
	n.remoteDescriptionSet()

	answer, err := n.pc.CreateAnswer(nil)
	if err != nil {
		return NewError("create answer", err)
	}
	if err := n.pc.SetLocalDescription(answer); err != nil {
		return NewError("set local description", err)
	}

	n.hooks.Send(protocol.SignalPayload{Kind: protocol.KindAnswer, SDP: n.pc.LocalDescription().SDP})
	return nil
}

// HandleAnswer completes the offerer side of the description exchange.
func (n *Negotiator) HandleAnswer(sdp string) error {
	if n.role != RoleOfferer {
		return ErrWrongRole
	}
	if n.isClosed() {
		return ErrClosed
	}
	if err := n.pc.SetRemoteDescription(webrtc.SessionDescription{Type: webrtc.SDPTypeAnswer, SDP: sdp}); err != nil {
		return NewError("set remote description", err)
	}
	n.remoteDescriptionSet()
	return nil
}

// HandleCandidate applies one remote candidate, or queues it if the remote
// description has not arrived yet. The race between descriptions and
// candidates is expected, not exceptional. A rejected candidate is logged
// and skipped; it never aborts the negotiation.
func (n *Negotiator) HandleCandidate(init webrtc.ICECandidateInit) {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return
	}
	if !n.remoteSet {
		n.pending = append(n.pending, init)
		n.mu.Unlock()
		return
	}
	n.mu.Unlock()

	if err := n.addCandidate(init); err != nil {
		slog.Warn("candidate rejected", "err", err)
	}
}

// remoteDescriptionSet flips the gate and applies every queued candidate in
// receipt order, exactly once.
func (n *Negotiator) remoteDescriptionSet() {
	n.mu.Lock()
	n.remoteSet = true
	queued := n.pending
	n.pending = nil
	n.mu.Unlock()

	for _, c := range queued {
		if err := n.addCandidate(c); err != nil {
			slog.Warn("queued candidate rejected", "err", err)
		}
	}
}

// HandleSignal dispatches one relayed handshake payload.
func (n *Negotiator) HandleSignal(p protocol.SignalPayload) error {
	switch p.Kind {
	case protocol.KindOffer:
		return n.HandleOffer(p.SDP)
	case protocol.KindAnswer:
		return n.HandleAnswer(p.SDP)
	case protocol.KindCandidate:
		var init webrtc.ICECandidateInit
		if err := json.Unmarshal(p.Candidate, &init); err != nil {
			return NewError("parse candidate", err)
		}
		n.HandleCandidate(init)
		return nil
	default:
		return WrapError("handle signal", protocol.ErrUnknownKind, p.Kind)
	}
}

// SendPeerState announces local track enablement over the control channel.
// Best-effort: silently skipped while the channel is not open.
func (n *Negotiator) SendPeerState(audio, video bool) {
	n.sendControl(ControlTypePeerState, PeerStatePayload{Audio: audio, Video: video})
}

// SendBye tells the peer the call is ending, ahead of the relay disconnect.
func (n *Negotiator) SendBye() {
	n.sendControl(ControlTypeBye, struct{}{})
}

func (n *Negotiator) sendControl(msgType string, payload any) {
	n.mu.Lock()
	dc := n.control
	n.mu.Unlock()

	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}
	msg, err := NewControlMessage(msgType, payload)
	if err != nil {
		return
	}
	data, err := msgpack.Marshal(msg)
	if err != nil {
		return
	}
	if err := dc.Send(data); err != nil {
		slog.Debug("control send failed", "type", msgType, "err", err)
	}
}

// Close tears the attempt down and discards the pending candidate queue.
// Idempotent and safe from any state, including before negotiation started.
func (n *Negotiator) Close() error {
	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		return nil
	}
	n.closed = true
	n.pending = nil
	n.state = StateClosed
	n.mu.Unlock()

	if n.pc != nil {
		return n.pc.Close()
	}
	return nil
}
