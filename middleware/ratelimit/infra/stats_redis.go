package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"summarize-gateway/middleware/ratelimit/domain"

	"github.com/redis/go-redis/v9"
)

// RedisStatsStore publica os contadores de decisão em hashes do Redis.
//
// Layout das chaves (prefixo padrão "summarize:stats"):
//
//	<prefix>:total                 hash admitted/rejected/failed (não expira)
//	<prefix>:minute:200601021504   hash por minuto (expira em ttl)
//	<prefix>:route                 hash "<METHOD> <path>:<outcome>"
//	<prefix>:key:<identity>        hash por cliente (só com trackKeys)
//
// Só estatística: o estado da janela deslizante continua em memória do processo.
type RedisStatsStore struct {
	rdb redis.Cmdable

	prefix string
	// ttl aplica apenas em chaves de série temporal / por key.
	ttl time.Duration

	bucket string // "minute" (padrão) ou "none"

	trackKeys bool
}

type RedisStatsOption func(*RedisStatsStore)

func WithStatsPrefix(prefix string) RedisStatsOption {
	return func(s *RedisStatsStore) {
		s.prefix = strings.Trim(prefix, ":")
	}
}

func WithStatsTTL(d time.Duration) RedisStatsOption {
	return func(s *RedisStatsStore) { s.ttl = d }
}

func WithStatsBucket(bucket string) RedisStatsOption {
	return func(s *RedisStatsStore) { s.bucket = strings.ToLower(strings.TrimSpace(bucket)) }
}

func WithStatsTrackKeys(track bool) RedisStatsOption {
	return func(s *RedisStatsStore) { s.trackKeys = track }
}

func NewRedisStatsStore(rdb redis.Cmdable, opts ...RedisStatsOption) *RedisStatsStore {
	s := &RedisStatsStore{
		rdb:    rdb,
		prefix: "summarize:stats",
		ttl:    24 * time.Hour,
		bucket: "minute",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Keys devolve as chaves Redis que um evento tocaria. Útil para inspeção e testes.
func (s *RedisStatsStore) Keys(ev domain.StatsEvent) []string {
	keys := []string{s.prefix + ":total"}
	if s.bucket == "minute" {
		keys = append(keys, s.minuteKey(s.eventTime(ev)))
	}
	if routeField(ev) != "" {
		keys = append(keys, s.prefix+":route")
	}
	if k := strings.TrimSpace(string(ev.Key)); s.trackKeys && k != "" {
		keys = append(keys, s.prefix+":key:"+k)
	}
	return keys
}

func (s *RedisStatsStore) Record(ctx context.Context, ev domain.StatsEvent) error {
	if s == nil || s.rdb == nil {
		return nil
	}
	if ev.Outcome == "" {
		return fmt.Errorf("stats event without outcome")
	}

	field := string(ev.Outcome)
	at := s.eventTime(ev)

	pipe := s.rdb.Pipeline()
	pipe.HIncrBy(ctx, s.prefix+":total", field, 1)

	if s.bucket == "minute" {
		bucketKey := s.minuteKey(at)
		pipe.HIncrBy(ctx, bucketKey, field, 1)
		if s.ttl > 0 {
			pipe.Expire(ctx, bucketKey, s.ttl)
		}
	}

	if rf := routeField(ev); rf != "" {
		pipe.HIncrBy(ctx, s.prefix+":route", rf+":"+field, 1)
	}

	if s.trackKeys {
		if k := strings.TrimSpace(string(ev.Key)); k != "" {
			keyKey := s.prefix + ":key:" + k
			pipe.HIncrBy(ctx, keyKey, field, 1)
			if s.ttl > 0 {
				pipe.Expire(ctx, keyKey, s.ttl)
			}
		}
	}

	_, err := pipe.Exec(ctx)
	return err
}

func (s *RedisStatsStore) eventTime(ev domain.StatsEvent) time.Time {
	if ev.At.IsZero() {
		return time.Now()
	}
	return ev.At
}

func (s *RedisStatsStore) minuteKey(at time.Time) string {
	return fmt.Sprintf("%s:minute:%s", s.prefix, at.UTC().Format("200601021504"))
}

func routeField(ev domain.StatsEvent) string {
	return strings.TrimSpace(strings.TrimSpace(ev.Method) + " " + strings.TrimSpace(ev.Path))
}
