package call

import (
	"errors"
	"fmt"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/peerwave/peerwave/internal/protocol"
)

// queueNegotiator builds a bare negotiator whose candidate application is
// recorded instead of hitting a real peer connection.
func queueNegotiator(t *testing.T, applied *[]string) *Negotiator {
	t.Helper()
	n := &Negotiator{role: RoleAnswerer, state: StateNew}
	n.addCandidate = func(c webrtc.ICECandidateInit) error {
		*applied = append(*applied, c.Candidate)
		return nil
	}
	return n
}

func cand(s string) webrtc.ICECandidateInit {
	return webrtc.ICECandidateInit{Candidate: s}
}

func TestCandidatesQueueUntilRemoteDescription(t *testing.T) {
	var applied []string
	n := queueNegotiator(t, &applied)

	n.HandleCandidate(cand("a"))
	n.HandleCandidate(cand("b"))
	n.HandleCandidate(cand("c"))

	if len(applied) != 0 {
		t.Fatalf("candidates applied before remote description: %v", applied)
	}

	n.remoteDescriptionSet()

	if len(applied) != 3 {
		t.Fatalf("applied %d candidates, want 3", len(applied))
	}
	for i, want := range []string{"a", "b", "c"} {
		if applied[i] != want {
			t.Errorf("applied[%d] = %q, want %q (receipt order)", i, applied[i], want)
		}
	}
}

func TestCandidatesApplyImmediatelyAfterRemoteDescription(t *testing.T) {
	var applied []string
	n := queueNegotiator(t, &applied)

	n.remoteDescriptionSet()
	n.HandleCandidate(cand("late"))

	if len(applied) != 1 || applied[0] != "late" {
		t.Fatalf("applied = %v, want [late]", applied)
	}
}

func TestInterleavedCandidatesKeepReceiptOrder(t *testing.T) {
	var applied []string
	n := queueNegotiator(t, &applied)

	n.HandleCandidate(cand("early-1"))
	n.HandleCandidate(cand("early-2"))
	n.remoteDescriptionSet()
	n.HandleCandidate(cand("late-1"))

	want := []string{"early-1", "early-2", "late-1"}
	if len(applied) != len(want) {
		t.Fatalf("applied %v, want %v", applied, want)
	}
	for i := range want {
		if applied[i] != want[i] {
			t.Errorf("applied[%d] = %q, want %q", i, applied[i], want[i])
		}
	}
}

func TestQueuedCandidatesFlushExactlyOnce(t *testing.T) {
	var applied []string
	n := queueNegotiator(t, &applied)

	n.HandleCandidate(cand("a"))
	n.remoteDescriptionSet()
	n.remoteDescriptionSet()

	if len(applied) != 1 {
		t.Fatalf("candidate applied %d times, want exactly once", len(applied))
	}
}

func TestRejectedCandidateDoesNotAbortTheRest(t *testing.T) {
	var applied []string
	n := &Negotiator{role: RoleAnswerer, state: StateNew}
	n.addCandidate = func(c webrtc.ICECandidateInit) error {
		if c.Candidate == "bad" {
			return fmt.Errorf("unparseable candidate")
		}
		applied = append(applied, c.Candidate)
		return nil
	}

	n.HandleCandidate(cand("a"))
	n.HandleCandidate(cand("bad"))
	n.HandleCandidate(cand("b"))
	n.remoteDescriptionSet()

	if len(applied) != 2 || applied[0] != "a" || applied[1] != "b" {
		t.Fatalf("applied = %v, want [a b]", applied)
	}
}

func TestCloseDiscardsPendingQueue(t *testing.T) {
	var applied []string
	n := queueNegotiator(t, &applied)

	n.HandleCandidate(cand("a"))
	n.HandleCandidate(cand("b"))
	if err := n.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	n.remoteDescriptionSet()
	n.HandleCandidate(cand("after-close"))

	if len(applied) != 0 {
		t.Fatalf("candidates applied after close: %v", applied)
	}
	if n.State() != StateClosed {
		t.Errorf("state = %v, want closed", n.State())
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	n := &Negotiator{role: RoleOfferer, state: StateNegotiating}
	if err := n.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := n.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestWrongRoleRejected(t *testing.T) {
	offerer := &Negotiator{role: RoleOfferer, state: StateNew}
	if err := offerer.HandleOffer("sdp"); !errors.Is(err, ErrWrongRole) {
		t.Errorf("offerer HandleOffer err = %v, want ErrWrongRole", err)
	}

	answerer := &Negotiator{role: RoleAnswerer, state: StateNew}
	if err := answerer.StartOffer(); !errors.Is(err, ErrWrongRole) {
		t.Errorf("answerer StartOffer err = %v, want ErrWrongRole", err)
	}
	if err := answerer.HandleAnswer("sdp"); !errors.Is(err, ErrWrongRole) {
		t.Errorf("answerer HandleAnswer err = %v, want ErrWrongRole", err)
	}
}

func TestDescriptionOpsAfterCloseReturnErrClosed(t *testing.T) {
	offerer := &Negotiator{role: RoleOfferer, state: StateNew}
	offerer.Close()
	if err := offerer.StartOffer(); !errors.Is(err, ErrClosed) {
		t.Errorf("StartOffer after close err = %v, want ErrClosed", err)
	}
	if err := offerer.HandleAnswer("sdp"); !errors.Is(err, ErrClosed) {
		t.Errorf("HandleAnswer after close err = %v, want ErrClosed", err)
	}

	answerer := &Negotiator{role: RoleAnswerer, state: StateNew}
	answerer.Close()
	if err := answerer.HandleOffer("sdp"); !errors.Is(err, ErrClosed) {
		t.Errorf("HandleOffer after close err = %v, want ErrClosed", err)
	}
}

func TestHandleSignalUnknownKind(t *testing.T) {
	n := &Negotiator{role: RoleOfferer, state: StateNew}
	err := n.HandleSignal(protocol.SignalPayload{Kind: "renegotiate"})
	if !errors.Is(err, protocol.ErrUnknownKind) {
		t.Errorf("err = %v, want ErrUnknownKind", err)
	}
}

func TestHandleSignalBadCandidateJSON(t *testing.T) {
	n := &Negotiator{role: RoleOfferer, state: StateNew}
	err := n.HandleSignal(protocol.SignalPayload{Kind: protocol.KindCandidate, Candidate: []byte("{not json")})
	if err == nil {
		t.Fatal("expected error for malformed candidate body")
	}
}

func TestFailedStateIsTerminalForTheInstance(t *testing.T) {
	var seen []State
	n := &Negotiator{role: RoleOfferer, state: StateNew}
	n.hooks.OnState = func(s State) { seen = append(seen, s) }

	n.setState(StateNegotiating)
	n.setState(StateFailed)
	n.setState(StateConnected) // must not resurrect

	if n.State() != StateFailed {
		t.Fatalf("state = %v, want failed", n.State())
	}
	if len(seen) != 2 || seen[1] != StateFailed {
		t.Errorf("observed transitions = %v", seen)
	}
}

func TestNoStateChangesAfterClose(t *testing.T) {
	var seen []State
	n := &Negotiator{role: RoleOfferer, state: StateConnected}
	n.hooks.OnState = func(s State) { seen = append(seen, s) }

	n.Close()
	n.setState(StateDisconnected)

	if len(seen) != 0 {
		t.Errorf("state callbacks after close: %v", seen)
	}
	if n.State() != StateClosed {
		t.Errorf("state = %v, want closed", n.State())
	}
}
