package netsync

import "duelarena/internal/protocol"

// Peer is the last advisory state received for a remote participant.
type Peer struct {
	X, Y  float64
	Angle float64
}

// PeerTable holds remote peers keyed by identity. It is owned by a single
// goroutine and is not safe for concurrent use.
type PeerTable struct {
	peers map[string]Peer
}

func NewPeerTable() *PeerTable {
	return &PeerTable{peers: make(map[string]Peer)}
}

// Apply folds one inbound message into the table. Records for self, the local
// identity, are never stored. Message kinds that carry no peer state are ignored.
func (t *PeerTable) Apply(msg protocol.Message, self string) {
	switch m := msg.(type) {
	case protocol.State:
		t.upsert(m.PeerRecord, self)
	case protocol.Join:
		t.upsert(m.PeerRecord, self)
	case protocol.Snapshot:
		t.peers = make(map[string]Peer, len(m.Peers))
		for _, rec := range m.Peers {
			t.upsert(rec, self)
		}
	case protocol.Leave:
		delete(t.peers, m.ID)
	}
}

func (t *PeerTable) upsert(rec protocol.PeerRecord, self string) {
	if rec.ID == "" || (self != "" && rec.ID == self) {
		return
	}
	t.peers[rec.ID] = Peer{X: rec.X, Y: rec.Y, Angle: rec.Angle}
}

func (t *PeerTable) Get(id string) (Peer, bool) {
	p, ok := t.peers[id]
	return p, ok
}

func (t *PeerTable) Len() int { return len(t.peers) }

func (t *PeerTable) Clear() {
	t.peers = make(map[string]Peer)
}

// Snapshot returns a copy safe to hand to another goroutine.
func (t *PeerTable) Snapshot() map[string]Peer {
	out := make(map[string]Peer, len(t.peers))
	for id, p := range t.peers {
		out[id] = p
	}
	return out
}
