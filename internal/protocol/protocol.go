package protocol

import "encoding/json"

type Kind string

const (
	KindUpdate   Kind = "update"
	KindState    Kind = "state"
	KindSnapshot Kind = "snapshot"
	KindJoin     Kind = "join"
	KindLeave    Kind = "leave"
)

// Envelope is the frame every message travels in.
type Envelope struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// PeerRecord is one participant's advisory position.
type PeerRecord struct {
	ID    string  `json:"id"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Angle float64 `json:"angle"`
}

// Message is implemented only by the five wire messages below.
type Message interface {
	Kind() Kind
	isMessage()
}

// Update is sent by a client whenever its local player moves.
type Update struct {
	PeerRecord
}

// State carries one peer's latest record.
type State struct {
	PeerRecord
}

// Snapshot replaces the whole peer table.
type Snapshot struct {
	Peers []PeerRecord
}

// Join announces a newly connected peer.
type Join struct {
	PeerRecord
}

// Leave announces a disconnected peer.
type Leave struct {
	ID string `json:"id"`
}

func (Update) Kind() Kind   { return KindUpdate }
func (State) Kind() Kind    { return KindState }
func (Snapshot) Kind() Kind { return KindSnapshot }
func (Join) Kind() Kind     { return KindJoin }
func (Leave) Kind() Kind    { return KindLeave }

func (Update) isMessage()   {}
func (State) isMessage()    {}
func (Snapshot) isMessage() {}
func (Join) isMessage()     {}
func (Leave) isMessage()    {}
