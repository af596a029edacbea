package call

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/peerwave/peerwave/internal/config"
	"github.com/peerwave/peerwave/internal/protocol"
	"github.com/peerwave/peerwave/internal/signaling"
)

// welcomeTimeout bounds how long Start waits for the relay to assign an id.
const welcomeTimeout = 10 * time.Second

// Session owns one call from dial to hang-up: local media, the relay
// connection, and the current negotiation attempt. All attempt mutation
// happens on the session's event loop; negotiator callbacks only push into
// buffered channels.
type Session struct {
	cfg    *config.Config
	device MediaDevice

	client  *signaling.Client
	handler *signaling.Handler

	roomID   string
	clientID string
	started  time.Time

	events chan Event

	// fed by negotiator callbacks, drained by the loop
	negStates chan State
	peerMedia chan PeerMediaEvent
	byes      chan struct{}

	transportDone chan struct{}
	done          chan struct{}
	endOnce       sync.Once

	mu     sync.Mutex
	neg    *Negotiator
	role   Role
	status Status
}

// SessionSummary is a snapshot for display after the call ends.
type SessionSummary struct {
	RoomID   string
	ClientID string
	Role     string
	Status   Status
	Duration time.Duration
}

// NewSession creates an idle session. Start does the work.
func NewSession(cfg *config.Config) *Session {
	return &Session{
		cfg:           cfg,
		events:        make(chan Event, 32),
		negStates:     make(chan State, 8),
		peerMedia:     make(chan PeerMediaEvent, 8),
		byes:          make(chan struct{}, 1),
		transportDone: make(chan struct{}),
		done:          make(chan struct{}),
		status:        StatusWaiting,
	}
}

// Start brings the session up: local media first, then the relay connection,
// then the room join. Media failure is fatal before any signaling happens;
// there is no such thing as joining a call without something to send.
func (s *Session) Start(ctx context.Context, roomID string) error {
	device, err := OpenSyntheticDevice()
	if err != nil {
		return WrapError("start call", ErrNoMedia, err.Error())
	}
	s.device = device
	s.roomID = roomID

	s.client = signaling.NewClient(s.cfg.WebSocketURL)
	if err := s.client.Connect(); err != nil {
		s.device.Close()
		return NewError("connect to relay", err)
	}

	s.handler = signaling.NewHandler(s.client)
	go func() {
		s.handler.Start()
		close(s.transportDone)
	}()

	select {
	case id := <-s.handler.Welcome:
		s.clientID = id
	case <-s.transportDone:
		s.teardownTransport()
		return NewError("await welcome", ErrTransportLost)
	case <-time.After(welcomeTimeout):
		s.teardownTransport()
		return NewError("await welcome", ErrTimeout)
	case <-ctx.Done():
		s.teardownTransport()
		return ctx.Err()
	}

	s.started = time.Now()
	s.client.Join(roomID)
	go s.loop(ctx)

	return nil
}

func (s *Session) teardownTransport() {
	s.client.Close()
	s.device.Close()
}

// loop is the session's single writer: every attempt created, handed a
// signal, or torn down goes through here.
func (s *Session) loop(ctx context.Context) {
	for {
		select {
		case p := <-s.handler.RoomMembers:
			if p.Initiator {
				// A peer is already waiting; this side offers.
				s.startAttempt(RoleOfferer)
			} else {
				s.emitStatus(StatusWaiting, nil)
			}

		case peerID := <-s.handler.PeerJoined:
			slog.Debug("peer joined", "peer", peerID)
			s.handlePeerJoined()

		case sig := <-s.handler.Signals:
			s.handleSignal(sig)

		case peerID := <-s.handler.PeerLeft:
			slog.Debug("peer left", "peer", peerID)
			s.closeAttempt()
			s.emitStatus(StatusPeerLeft, nil)

		case errText := <-s.handler.Errors:
			s.emitStatus(StatusFailed, WrapError("relay", ErrSignalingError, errText))

		case state := <-s.negStates:
			s.handleNegState(state)

		case m := <-s.peerMedia:
			s.emit(m)

		case <-s.byes:
			// The peer hung up cleanly; the relay-level peer_left follows,
			// but the UI should not wait for it.
			s.closeAttempt()
			s.emitStatus(StatusPeerLeft, nil)

		case <-s.transportDone:
			s.closeAttempt()
			s.emitStatus(StatusFailed, NewError("relay", ErrTransportLost))
			return

		case <-s.done:
			return

		case <-ctx.Done():
			s.End()
			return
		}
	}
}

// handlePeerJoined starts the answerer attempt for a newly arrived peer. The
// typed channels drain in no particular order, so a peer_joined can land
// after that peer's own offer already built the attempt; a live attempt is
// left alone rather than torn down mid-handshake. After a real peer_left the
// attempt is already gone, which keeps the rejoin path working.
func (s *Session) handlePeerJoined() {
	s.mu.Lock()
	neg := s.neg
	s.mu.Unlock()

	if neg != nil && !neg.State().Terminal() {
		return
	}
	s.startAttempt(RoleAnswerer)
}

// startAttempt replaces the current negotiation attempt with a fresh one in
// the given role. The offerer kicks the handshake off immediately.
func (s *Session) startAttempt(role Role) {
	s.closeAttempt()

	hooks := Hooks{
		Send: func(p protocol.SignalPayload) {
			if err := s.client.Signal(s.roomID, p); err != nil {
				slog.Warn("signal send failed", "kind", p.Kind, "err", err)
			}
		},
		OnState: func(st State) {
			select {
			case s.negStates <- st:
			default:
			}
		},
		OnPeerMedia: func(audio, video bool) {
			select {
			case s.peerMedia <- PeerMediaEvent{Audio: audio, Video: video}:
			default:
			}
		},
		OnBye: func() {
			select {
			case s.byes <- struct{}{}:
			default:
			}
		},
	}

	neg, err := NewNegotiator(s.cfg, role, s.device, hooks)
	if err != nil {
		s.emitStatus(StatusFailed, err)
		return
	}

	s.mu.Lock()
	select {
	case <-s.done:
		// End already ran its teardown; installing now would leak the
		// connection with nobody left to reap it.
		s.mu.Unlock()
		neg.Close()
		return
	default:
	}
	s.neg = neg
	s.role = role
	s.mu.Unlock()

	s.emitStatus(StatusConnecting, nil)

	if role == RoleOfferer {
		if err := neg.StartOffer(); err != nil {
			s.closeAttempt()
			s.emitStatus(StatusFailed, err)
		}
	}
}

func (s *Session) handleSignal(sig signaling.IncomingSignal) {
	s.mu.Lock()
	neg := s.neg
	s.mu.Unlock()

	if neg == nil {
		// An offer can overtake our own peer_joined on a fresh connection.
		// Build the answerer on the spot rather than dropping the handshake.
		if sig.Payload.Kind == protocol.KindOffer {
			s.startAttempt(RoleAnswerer)
			s.mu.Lock()
			neg = s.neg
			s.mu.Unlock()
		}
		if neg == nil {
			slog.Debug("dropping signal with no active attempt", "kind", sig.Payload.Kind)
			return
		}
	}

	if err := neg.HandleSignal(sig.Payload); err != nil {
		// Description failures kill the attempt; the candidate path already
		// absorbs per-candidate rejections on its own.
		s.closeAttempt()
		s.emitStatus(StatusFailed, WrapError("negotiate", ErrNegotiationDead, err.Error()))
	}
}

func (s *Session) handleNegState(state State) {
	switch state {
	case StateConnected:
		s.emitStatus(StatusConnected, nil)
		// Late joiners of the control channel need our current mute state.
		s.withNegotiator(func(n *Negotiator) {
			n.SendPeerState(s.device.AudioEnabled(), s.device.VideoEnabled())
		})
	case StateDisconnected:
		// May self-heal; show connecting rather than a false failure.
		s.emitStatus(StatusConnecting, nil)
	case StateFailed:
		s.closeAttempt()
		s.emitStatus(StatusFailed, NewError("negotiate", ErrNegotiationDead))
	}
}

func (s *Session) closeAttempt() {
	s.mu.Lock()
	neg := s.neg
	s.neg = nil
	s.mu.Unlock()

	if neg != nil {
		neg.Close()
	}
}

func (s *Session) withNegotiator(fn func(*Negotiator)) {
	s.mu.Lock()
	neg := s.neg
	s.mu.Unlock()
	if neg != nil {
		fn(neg)
	}
}

// ToggleMute flips the local audio track and tells the peer. Returns the new
// enabled state.
func (s *Session) ToggleMute() bool {
	enabled := !s.device.AudioEnabled()
	s.device.SetAudioEnabled(enabled)
	s.notifyPeerState()
	return enabled
}

// ToggleVideo flips the local video track and tells the peer. Returns the new
// enabled state.
func (s *Session) ToggleVideo() bool {
	enabled := !s.device.VideoEnabled()
	s.device.SetVideoEnabled(enabled)
	s.notifyPeerState()
	return enabled
}

func (s *Session) notifyPeerState() {
	s.withNegotiator(func(n *Negotiator) {
		n.SendPeerState(s.device.AudioEnabled(), s.device.VideoEnabled())
	})
}

// Events returns the stream the UI consumes.
func (s *Session) Events() <-chan Event {
	return s.events
}

// Status returns the current user-visible status.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Summary returns a snapshot for the post-call table.
func (s *Session) Summary() SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	role := "-"
	if s.role != "" {
		role = string(s.role)
	}
	var dur time.Duration
	if !s.started.IsZero() {
		dur = time.Since(s.started).Round(time.Second)
	}
	return SessionSummary{
		RoomID:   s.roomID,
		ClientID: s.clientID,
		Role:     role,
		Status:   s.status,
		Duration: dur,
	}
}

func (s *Session) emitStatus(status Status, err error) {
	s.mu.Lock()
	s.status = status
	s.mu.Unlock()
	s.emit(StatusEvent{Status: status, Err: err})
}

func (s *Session) emit(e Event) {
	select {
	case s.events <- e:
	default:
		slog.Warn("event dropped, consumer too slow")
	}
}

// End hangs up: bye to the peer, media off, attempt closed, room left,
// connection closed. Idempotent; safe before Start and from any state.
func (s *Session) End() {
	s.endOnce.Do(func() {
		close(s.done)

		s.withNegotiator(func(n *Negotiator) { n.SendBye() })

		if s.device != nil {
			s.device.Close()
		}
		s.closeAttempt()

		if s.client != nil {
			if s.roomID != "" {
				s.client.Leave(s.roomID)
			}
			s.client.Close()
		}

		s.emitStatus(StatusEnded, nil)
	})
}
