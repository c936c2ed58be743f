package memory

import (
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis"
	"github.com/tutumagi/soul/config"
	"github.com/tutumagi/soul/metrics"
)

// RedisSink keeps the newest entries of every agent in a capped redis list
// under "<key>:<agent>".
type RedisSink struct {
	client    *redis.Client
	prefix    string
	max       int64
	reporters metrics.Reporters
}

// NewRedisSink connects and pings the server
func NewRedisSink(cfg config.MemoryConfig, reporters ...metrics.Reporter) (*RedisSink, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		DB:       0,
		PoolSize: 4,
	})
	if _, err := client.Ping().Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("memory: ping redis %s: %w", cfg.RedisAddr, err)
	}
	return &RedisSink{
		client:    client,
		prefix:    cfg.RedisKey,
		max:       int64(cfg.RedisMax),
		reporters: reporters,
	}, nil
}

// Key of the list holding agent's entries
func (s *RedisSink) Key(agent string) string {
	return s.prefix + ":" + agent
}

// Append pushes e and trims the list to the newest max entries
func (s *RedisSink) Append(agent string, e Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return err
	}
	key := s.Key(agent)
	pipe := s.client.TxPipeline()
	pipe.RPush(key, data)
	if s.max > 0 {
		pipe.LTrim(key, -s.max, -1)
	}
	if _, err := pipe.Exec(); err != nil {
		s.reporters.Count(metrics.MemorySinkErrors, map[string]string{"sink": "redis"}, 1)
		return fmt.Errorf("memory: redis append: %w", err)
	}
	return nil
}

// Load reads back the stored entries of agent, oldest first
func (s *RedisSink) Load(agent string) ([]Entry, error) {
	raw, err := s.client.LRange(s.Key(agent), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]Entry, 0, len(raw))
	for _, r := range raw {
		var e Entry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

// Close the client
func (s *RedisSink) Close() error {
	return s.client.Close()
}
