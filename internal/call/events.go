package call

import "github.com/vmihailenco/msgpack/v5"

// In-call control channel. Pure client-to-client convention over a WebRTC
// data channel; the relay never sees these. Used so the remote UI can react
// to mute toggles and hang-ups ahead of the relay-level peer_left.
const controlChannelLabel = "control"

// Control message types.
const (
	ControlTypePeerState = "peer_state"
	ControlTypeBye       = "bye"
)

// ControlMessage is the envelope for all control channel traffic.
type ControlMessage struct {
	Type    string             `msgpack:"type"`
	Payload msgpack.RawMessage `msgpack:"payload"`
}

// PeerStatePayload announces the sender's current track enablement.
type PeerStatePayload struct {
	Audio bool `msgpack:"audio"`
	Video bool `msgpack:"video"`
}

// NewControlMessage creates a control message with an encoded payload.
func NewControlMessage(msgType string, payload any) (ControlMessage, error) {
	b, err := msgpack.Marshal(payload)
	if err != nil {
		return ControlMessage{}, err
	}
	return ControlMessage{Type: msgType, Payload: b}, nil
}

// DecodePayload decodes the message payload into the provided struct.
func (m ControlMessage) DecodePayload(v any) error {
	return msgpack.Unmarshal(m.Payload, v)
}
