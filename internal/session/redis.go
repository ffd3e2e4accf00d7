package session

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Cherry1177/cloudtribe/internal/models"
)

const (
	sessionKey     = "session:user"
	sessionChannel = "session:updates"
)

// RedisStore keeps the session user in Redis so several console instances
// share one sign-in. Change broadcasts ride on Redis pub/sub, which also
// feeds the local subscribers.
type RedisStore struct {
	notifier

	client *redis.Client
	logger *zap.Logger
	cancel context.CancelFunc
}

// NewRedisStore connects to redisURL and starts listening for session
// updates published by other instances.
func NewRedisStore(redisURL string, logger *zap.Logger) (*RedisStore, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis URL: %w", err)
	}

	client := redis.NewClient(opt)
	if _, err := client.Ping(context.Background()).Result(); err != nil {
		return nil, fmt.Errorf("connecting to redis: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &RedisStore{
		client: client,
		logger: logger,
		cancel: cancel,
	}
	go s.listen(ctx)

	return s, nil
}

func (s *RedisStore) listen(ctx context.Context) {
	sub := s.client.Subscribe(ctx, sessionChannel)
	defer sub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.Channel():
			if !ok {
				return
			}
			user, err := decodeUser([]byte(msg.Payload))
			if err != nil {
				s.logger.Warn("dropping malformed session update", zap.Error(err))
				continue
			}
			s.broadcast(user)
		}
	}
}

func (s *RedisStore) Current() *models.User {
	data, err := s.client.Get(context.Background(), sessionKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("reading session from redis", zap.Error(err))
		}
		return nil
	}

	user, err := decodeUser([]byte(data))
	if err != nil {
		s.logger.Warn("stored session is malformed", zap.Error(err))
		return nil
	}
	return user
}

func (s *RedisStore) Set(user *models.User) error {
	if user == nil {
		return s.Clear()
	}

	data, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encoding session user: %w", err)
	}

	ctx := context.Background()
	if err := s.client.Set(ctx, sessionKey, data, 0).Err(); err != nil {
		return fmt.Errorf("writing session to redis: %w", err)
	}
	if err := s.client.Publish(ctx, sessionChannel, data).Err(); err != nil {
		return fmt.Errorf("publishing session update: %w", err)
	}
	return nil
}

func (s *RedisStore) Clear() error {
	ctx := context.Background()
	if err := s.client.Del(ctx, sessionKey).Err(); err != nil {
		return fmt.Errorf("clearing session in redis: %w", err)
	}
	if err := s.client.Publish(ctx, sessionChannel, "null").Err(); err != nil {
		return fmt.Errorf("publishing session update: %w", err)
	}
	return nil
}

// Close stops the pub/sub listener and releases the connection.
func (s *RedisStore) Close() error {
	s.cancel()
	return s.client.Close()
}
