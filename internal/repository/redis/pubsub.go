package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/kirinyoku/cinema-booking/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ShowtimePubSub fans out "seats at this showtime changed" notifications
// across instances. A nil *ShowtimePubSub publishes nothing.
type ShowtimePubSub struct {
	rdb     *redis.Client
	channel string
}

func NewShowtimePubSub(rdb *redis.Client) *ShowtimePubSub {
	return &ShowtimePubSub{
		rdb:     rdb,
		channel: ChannelShowtimeChanged(),
	}
}

type showtimeChangedMsg struct {
	Type     string             `json:"type"`
	Showtime domain.ShowtimeKey `json:"showtime"`
	TsUnix   int64              `json:"ts_unix"`
}

func (p *ShowtimePubSub) PublishShowtimeChanged(ctx context.Context, k domain.ShowtimeKey) error {
	if p == nil {
		return nil
	}

	b, err := json.Marshal(showtimeChangedMsg{
		Type:     "showtime_changed",
		Showtime: k,
		TsUnix:   time.Now().Unix(),
	})
	if err != nil {
		return err
	}

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

// Subscribe calls handler for every notification until ctx is done.
func (p *ShowtimePubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, k domain.ShowtimeKey)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var msg showtimeChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &msg); err == nil && msg.Showtime.MovieID != "" {
				handler(ctx, msg.Showtime)
			}
		}
	}
}
