package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestSignalPayloadValidate(t *testing.T) {
	cases := []struct {
		name    string
		payload SignalPayload
		wantErr error
	}{
		{"offer with sdp", SignalPayload{Kind: KindOffer, SDP: "v=0"}, nil},
		{"answer with sdp", SignalPayload{Kind: KindAnswer, SDP: "v=0"}, nil},
		{"offer without sdp", SignalPayload{Kind: KindOffer}, ErrMissingSDP},
		{"answer without sdp", SignalPayload{Kind: KindAnswer}, ErrMissingSDP},
		{"candidate with body", SignalPayload{Kind: KindCandidate, Candidate: json.RawMessage(`{"candidate":"candidate:1 1 udp 2130706431 192.0.2.1 54321 typ host"}`)}, nil},
		{"candidate without body", SignalPayload{Kind: KindCandidate}, ErrMissingCand},
		{"unknown kind", SignalPayload{Kind: "renegotiate"}, ErrUnknownKind},
		{"empty kind", SignalPayload{}, ErrUnknownKind},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.payload.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Validate() = %v, want %v", err, tc.wantErr)
			}
		})
	}
}

func TestValidateInbound(t *testing.T) {
	offer, err := NewMessage(TypeSignal, "abc", SignalPayload{Kind: KindOffer, SDP: "v=0"})
	if err != nil {
		t.Fatal(err)
	}
	if err := offer.ValidateInbound(); err != nil {
		t.Fatalf("valid signal rejected: %v", err)
	}

	join := &Message{Type: TypeJoin, RoomID: "abc"}
	if err := join.ValidateInbound(); err != nil {
		t.Fatalf("valid join rejected: %v", err)
	}

	cases := []struct {
		name string
		msg  *Message
		want error
	}{
		{"join without room", &Message{Type: TypeJoin}, ErrMissingRoom},
		{"leave without room", &Message{Type: TypeLeave}, ErrMissingRoom},
		{"signal without room", &Message{Type: TypeSignal, Payload: json.RawMessage(`{"kind":"offer","sdp":"v=0"}`)}, ErrMissingRoom},
		{"server-only type from client", &Message{Type: TypePeerJoined, RoomID: "abc"}, ErrUnknownType},
		{"empty", &Message{}, ErrEmptyMessage},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.msg.ValidateInbound(); !errors.Is(err, tc.want) {
				t.Fatalf("ValidateInbound() = %v, want %v", err, tc.want)
			}
		})
	}
}

func TestValidateInboundBadSignalPayload(t *testing.T) {
	msg := &Message{Type: TypeSignal, RoomID: "abc", Payload: json.RawMessage(`{`)}
	if err := msg.ValidateInbound(); err == nil {
		t.Fatal("malformed signal payload accepted")
	}
}

func TestEnvelopeRoundTrip(t *testing.T) {
	msg, err := NewMessage(TypeRoomMembers, "abc", RoomMembersPayload{Members: []string{"p1"}, Initiator: true})
	if err != nil {
		t.Fatal(err)
	}
	msg.From = "server"

	raw, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}

	var decoded Message
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatal(err)
	}

	var p RoomMembersPayload
	if err := decoded.DecodePayload(&p); err != nil {
		t.Fatal(err)
	}
	if !p.Initiator || len(p.Members) != 1 || p.Members[0] != "p1" {
		t.Fatalf("payload mismatch: %+v", p)
	}
}
