package relay

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"duelarena/internal/protocol"
)

// Position given to every newly connected peer.
const (
	SpawnX = 400.0
	SpawnY = 300.0
)

var ErrHubStopped = errors.New("relay: hub stopped")

// PresenceStore mirrors relay membership somewhere outside the process.
type PresenceStore interface {
	Upsert(ctx context.Context, rec protocol.PeerRecord) error
	Remove(ctx context.Context, id string) error
}

type inbound struct {
	client *Client
	data   []byte
}

type presenceOp struct {
	rec    protocol.PeerRecord
	remove bool
}

// Hub is the relay's single owner of connections and peer states. All
// mutation happens on the Run goroutine.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	inbound    chan inbound
	queries    chan chan []protocol.PeerRecord
	quit       chan struct{}
	done       chan struct{}

	clients map[string]*Client
	states  map[string]protocol.PeerRecord

	presence   PresenceStore
	presenceQ  chan presenceOp
	sendBuffer int

	log *logrus.Entry
}

type Options struct {
	Presence   PresenceStore // optional
	SendBuffer int
}

func NewHub(opts Options) *Hub {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = 256
	}
	h := &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		inbound:    make(chan inbound, 256),
		queries:    make(chan chan []protocol.PeerRecord),
		quit:       make(chan struct{}),
		done:       make(chan struct{}),
		clients:    make(map[string]*Client),
		states:     make(map[string]protocol.PeerRecord),
		presence:   opts.Presence,
		sendBuffer: opts.SendBuffer,
		log:        logrus.WithField("component", "relay"),
	}
	if h.presence != nil {
		h.presenceQ = make(chan presenceOp, 1024)
	}
	return h
}

func (h *Hub) Run() {
	defer close(h.done)
	if h.presenceQ != nil {
		go h.mirror()
		defer close(h.presenceQ)
	}

	for {
		select {
		case <-h.quit:
			for id, c := range h.clients {
				c.closeSend()
				delete(h.clients, id)
			}
			return

		case c := <-h.register:
			h.connect(c)

		case c := <-h.unregister:
			if h.clients[c.ID] == c {
				h.disconnect(c)
			}

		case in := <-h.inbound:
			h.handle(in)

		case reply := <-h.queries:
			reply <- h.peerList()
		}
	}
}

func (h *Hub) Stop() {
	select {
	case <-h.quit:
	default:
		close(h.quit)
	}
	<-h.done
}

func (h *Hub) connect(c *Client) {
	if old, ok := h.clients[c.ID]; ok {
		h.log.WithField("client_id", c.ID).Info("replacing existing connection")
		old.closeSend()
	}
	h.clients[c.ID] = c
	rec := protocol.PeerRecord{ID: c.ID, X: SpawnX, Y: SpawnY}
	h.states[c.ID] = rec
	h.mirrorUpsert(rec)

	h.log.WithFields(logrus.Fields{
		"client_id": c.ID,
		"session":   c.Session,
		"peers":     len(h.clients),
	}).Info("peer joined")

	h.broadcast(protocol.Join{PeerRecord: rec})
	if data, err := protocol.Encode(protocol.Snapshot{Peers: h.peerList()}); err == nil {
		if !c.enqueue(data) {
			h.disconnect(c)
		}
	}
}

func (h *Hub) disconnect(c *Client) {
	delete(h.clients, c.ID)
	c.closeSend()
	if _, ok := h.states[c.ID]; !ok {
		return
	}
	delete(h.states, c.ID)
	h.mirrorRemove(c.ID)
	h.log.WithFields(logrus.Fields{"client_id": c.ID, "peers": len(h.clients)}).Info("peer left")
	h.broadcast(protocol.Leave{ID: c.ID})
}

// handle merges an update into the stored state and fans it out. Anything
// else a client sends is ignored.
func (h *Hub) handle(in inbound) {
	env, err := protocol.DecodeEnvelope(in.data)
	if err != nil || env.Type != protocol.KindUpdate {
		return
	}
	patch, err := protocol.DecodePayload[protocol.Patch](env)
	if err != nil || patch.ID == "" {
		return
	}
	cur, ok := h.states[patch.ID]
	if !ok {
		h.log.WithFields(logrus.Fields{
			"client_id": patch.ID,
			"from":      in.client.ID,
			"session":   in.client.Session,
		}).Debug("update for unknown peer")
		return
	}
	rec := patch.Apply(cur)
	h.states[patch.ID] = rec
	h.mirrorUpsert(rec)
	h.broadcast(protocol.State{PeerRecord: rec})
}

// broadcast sends m to every client. Clients that cannot keep up are dropped
// once the fan-out is done.
func (h *Hub) broadcast(m protocol.Message) {
	data, err := protocol.Encode(m)
	if err != nil {
		h.log.WithError(err).Error("encode broadcast")
		return
	}
	var slow []*Client
	for _, c := range h.clients {
		if !c.enqueue(data) {
			slow = append(slow, c)
		}
	}
	for _, c := range slow {
		h.log.WithField("client_id", c.ID).Warn("send buffer full, dropping peer")
		if h.clients[c.ID] == c {
			h.disconnect(c)
		}
	}
}

func (h *Hub) peerList() []protocol.PeerRecord {
	out := make([]protocol.PeerRecord, 0, len(h.states))
	for _, rec := range h.states {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Peers returns the current peer states ordered by id.
func (h *Hub) Peers(ctx context.Context) ([]protocol.PeerRecord, error) {
	reply := make(chan []protocol.PeerRecord, 1)
	select {
	case h.queries <- reply:
	case <-h.done:
		return nil, ErrHubStopped
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	select {
	case peers := <-reply:
		return peers, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

func (h *Hub) deliver(c *Client, data []byte) bool {
	select {
	case h.inbound <- inbound{client: c, data: data}:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) mirrorUpsert(rec protocol.PeerRecord) {
	h.queuePresence(presenceOp{rec: rec})
}

func (h *Hub) mirrorRemove(id string) {
	h.queuePresence(presenceOp{rec: protocol.PeerRecord{ID: id}, remove: true})
}

func (h *Hub) queuePresence(op presenceOp) {
	if h.presenceQ == nil {
		return
	}
	select {
	case h.presenceQ <- op:
	default:
		h.log.WithField("client_id", op.rec.ID).Warn("presence queue full")
	}
}

// mirror writes presence changes in order, off the hub goroutine.
func (h *Hub) mirror() {
	for op := range h.presenceQ {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		var err error
		if op.remove {
			err = h.presence.Remove(ctx, op.rec.ID)
		} else {
			err = h.presence.Upsert(ctx, op.rec)
		}
		cancel()
		if err != nil {
			h.log.WithError(err).WithField("client_id", op.rec.ID).Warn("presence mirror failed")
		}
	}
}
