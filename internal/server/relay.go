package server

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const relayChannelPrefix = "bulls-cows:room:"

// redisRelay forwards room events between instances. Every instance
// publishes to a per-room channel and delivers whatever it receives from
// the pattern subscription to its local websocket clients.
type redisRelay struct {
	client *redis.Client
	hub    *wsHub
}

func newRedisRelay(client *redis.Client, hub *wsHub) *redisRelay {
	return &redisRelay{client: client, hub: hub}
}

func relayChannel(roomCode string) string {
	return relayChannelPrefix + roomCode
}

func roomCodeFromChannel(channel string) (string, bool) {
	code, ok := strings.CutPrefix(channel, relayChannelPrefix)
	if !ok || code == "" {
		return "", false
	}
	return code, true
}

func (r *redisRelay) Publish(ctx context.Context, event roomEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, relayChannel(event.RoomCode), data).Err()
}

func (r *redisRelay) Run(ctx context.Context) {
	sub := r.client.PSubscribe(ctx, relayChannelPrefix+"*")
	defer sub.Close()

	log.Info().Str("pattern", relayChannelPrefix+"*").Msg("redis relay subscribed")
	messages := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-messages:
			if !ok {
				log.Warn().Msg("redis relay channel closed")
				return
			}
			code, ok := roomCodeFromChannel(msg.Channel)
			if !ok {
				continue
			}
			r.hub.BroadcastRaw(code, []byte(msg.Payload))
		}
	}
}
