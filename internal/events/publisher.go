// Package events fans guest lifecycle changes out to connected dashboards
// over Redis pub/sub. Delivery is best-effort: a publish failure is logged
// and never fails the write that triggered it.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Channel is the pub/sub channel dashboards subscribe to.
const Channel = "gatelist:events"

// Event types published by the core services.
const (
	GuestCreated  = "guest.created"
	GuestUpdated  = "guest.updated"
	GuestDeleted  = "guest.deleted"
	GuestVerified = "guest.verified"
	GuestRSVP     = "guest.rsvp"
	CoupleCreated = "couple.created"
	CoupleDeleted = "couple.deleted"
	TagCreated    = "tag.created"
	TagDeleted    = "tag.deleted"
)

// Event is the wire shape on the channel.
type Event struct {
	Type     string    `json:"type"`
	CoupleID string    `json:"couple_id,omitempty"`
	GuestID  string    `json:"guest_id,omitempty"`
	TagID    string    `json:"tag_id,omitempty"`
	At       time.Time `json:"at"`
}

// Publisher publishes events to Redis. A nil Publisher (or one without a
// client) is a no-op, so services never need to branch on wiring.
type Publisher struct {
	Rdb *redis.Client
}

// Publish sends the event, stamping At if unset. Errors are logged only.
func (p *Publisher) Publish(ctx context.Context, e Event) {
	if p == nil || p.Rdb == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now().UTC()
	}
	b, err := json.Marshal(e)
	if err != nil {
		log.Warn().Err(err).Str("type", e.Type).Msg("event marshal failed")
		return
	}
	if err := p.Rdb.Publish(ctx, Channel, b).Err(); err != nil {
		log.Warn().Err(err).Str("type", e.Type).Msg("event publish failed")
	}
}
