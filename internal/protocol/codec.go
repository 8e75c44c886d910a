package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

var (
	ErrEmptyPayload = errors.New("protocol: empty payload")
	ErrUnknownType  = errors.New("protocol: unknown message type")
	ErrMissingID    = errors.New("protocol: payload has no id")
)

// Patch is an update whose coordinates may be partially present.
type Patch struct {
	ID    string   `json:"id"`
	X     *float64 `json:"x,omitempty"`
	Y     *float64 `json:"y,omitempty"`
	Angle *float64 `json:"angle,omitempty"`
}

// Apply merges the present fields of p into rec.
func (p Patch) Apply(rec PeerRecord) PeerRecord {
	rec.ID = p.ID
	if p.X != nil {
		rec.X = *p.X
	}
	if p.Y != nil {
		rec.Y = *p.Y
	}
	if p.Angle != nil {
		rec.Angle = *p.Angle
	}
	return rec
}

func Encode(m Message) ([]byte, error) {
	if m == nil {
		return nil, fmt.Errorf("trying to encode nil message")
	}
	var payload any
	switch msg := m.(type) {
	case Update:
		payload = msg.PeerRecord
	case State:
		payload = msg.PeerRecord
	case Join:
		payload = msg.PeerRecord
	case Snapshot:
		peers := msg.Peers
		if peers == nil {
			peers = []PeerRecord{}
		}
		payload = peers
	case Leave:
		payload = msg
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownType, m)
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: m.Kind(), Payload: pb})
}

func DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("decode envelope: %w", ErrEmptyPayload)
	}
	var e Envelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return e, nil
}

func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.Payload) == 0 {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.Type)
	}
	err := json.Unmarshal(env.Payload, &out)
	return out, err
}

// Decode parses one wire frame into its concrete message.
func Decode(b []byte) (Message, error) {
	env, err := DecodeEnvelope(b)
	if err != nil {
		return nil, err
	}

	switch env.Type {
	case KindUpdate, KindState, KindJoin:
		rec, err := DecodePayload[PeerRecord](env)
		if err != nil {
			return nil, err
		}
		if rec.ID == "" {
			return nil, fmt.Errorf("%s: %w", env.Type, ErrMissingID)
		}
		switch env.Type {
		case KindUpdate:
			return Update{rec}, nil
		case KindState:
			return State{rec}, nil
		default:
			return Join{rec}, nil
		}

	case KindSnapshot:
		if len(env.Payload) == 0 {
			return Snapshot{}, nil
		}
		recs, err := DecodePayload[[]*PeerRecord](env)
		if err != nil {
			return nil, err
		}
		snap := Snapshot{Peers: make([]PeerRecord, 0, len(recs))}
		for _, r := range recs {
			if r == nil || r.ID == "" {
				continue
			}
			snap.Peers = append(snap.Peers, *r)
		}
		return snap, nil

	case KindLeave:
		l, err := DecodePayload[Leave](env)
		if err != nil {
			return nil, err
		}
		if l.ID == "" {
			return nil, fmt.Errorf("leave: %w", ErrMissingID)
		}
		return l, nil
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownType, env.Type)
}
