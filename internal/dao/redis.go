package dao

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"duelarena/internal/protocol"
	"duelarena/pkg/config"
)

const (
	KeyPeers      = "presence:peers"
	KeyPeerPrefix = "presence:peer:"
)

func peerKey(id string) string { return KeyPeerPrefix + id }

// PresenceStore mirrors the relay's connected peers into Redis: one hash per
// peer, expiring after ttl, plus a set of ids.
type PresenceStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewPresenceStore connects and pings Redis.
func NewPresenceStore(ctx context.Context, cfg config.RedisConfig) (*PresenceStore, error) {
	ttl, err := time.ParseDuration(cfg.PresenceTTL)
	if err != nil {
		return nil, fmt.Errorf("redis presence_ttl: %w", err)
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis connect %s: %w", cfg.Addr, err)
	}
	return &PresenceStore{rdb: rdb, ttl: ttl}, nil
}

func (s *PresenceStore) Upsert(ctx context.Context, rec protocol.PeerRecord) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, KeyPeers, rec.ID)
		pipe.HSet(ctx, peerKey(rec.ID), peerFields(rec))
		pipe.Expire(ctx, peerKey(rec.ID), s.ttl)
		return nil
	})
	return err
}

func (s *PresenceStore) Remove(ctx context.Context, id string) error {
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SRem(ctx, KeyPeers, id)
		pipe.Del(ctx, peerKey(id))
		return nil
	})
	return err
}

// Peers lists mirrored peers ordered by id. Ids whose hash has expired are
// pruned from the set.
func (s *PresenceStore) Peers(ctx context.Context) ([]protocol.PeerRecord, error) {
	ids, err := s.rdb.SMembers(ctx, KeyPeers).Result()
	if err != nil {
		return nil, err
	}
	out := make([]protocol.PeerRecord, 0, len(ids))
	for _, id := range ids {
		h, err := s.rdb.HGetAll(ctx, peerKey(id)).Result()
		if err != nil {
			return nil, err
		}
		if len(h) == 0 {
			s.rdb.SRem(ctx, KeyPeers, id)
			continue
		}
		rec, err := peerFromHash(h)
		if err != nil {
			return nil, fmt.Errorf("peer %s: %w", id, err)
		}
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *PresenceStore) Close() error {
	return s.rdb.Close()
}

func peerFields(rec protocol.PeerRecord) map[string]any {
	return map[string]any{
		"id":    rec.ID,
		"x":     strconv.FormatFloat(rec.X, 'f', -1, 64),
		"y":     strconv.FormatFloat(rec.Y, 'f', -1, 64),
		"angle": strconv.FormatFloat(rec.Angle, 'f', -1, 64),
	}
}

func peerFromHash(h map[string]string) (protocol.PeerRecord, error) {
	rec := protocol.PeerRecord{ID: h["id"]}
	if rec.ID == "" {
		return rec, fmt.Errorf("missing id field")
	}
	for field, dst := range map[string]*float64{"x": &rec.X, "y": &rec.Y, "angle": &rec.Angle} {
		v, ok := h[field]
		if !ok {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return rec, fmt.Errorf("field %s: %w", field, err)
		}
		*dst = f
	}
	return rec, nil
}
