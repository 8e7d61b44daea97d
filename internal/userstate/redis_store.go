package userstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// stateTTL keeps records a comfortable margin past the 24-hour greeting
// window; an expired key simply means the next message greets again.
const stateTTL = 72 * time.Hour

// RedisStore keeps conversation state in Redis, one JSON value per phone.
type RedisStore struct {
	client *redis.Client
	locks  *phoneLocks
}

// NewRedisStore creates a Redis-backed state store.
func NewRedisStore(client *redis.Client) *RedisStore {
	if client == nil {
		panic("userstate: redis client cannot be nil")
	}
	return &RedisStore{client: client, locks: newPhoneLocks()}
}

func stateKey(phone string) string {
	return fmt.Sprintf("user_state:%s", phone)
}

// Get returns the stored state, or the default state for unknown phones.
func (s *RedisStore) Get(ctx context.Context, phone string) (State, error) {
	if err := validatePhone(phone); err != nil {
		return State{}, err
	}

	data, err := s.client.Get(ctx, stateKey(phone)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return DefaultState(), nil
		}
		return State{}, fmt.Errorf("userstate: load state: %w", err)
	}

	var state State
	if err := json.Unmarshal(data, &state); err != nil {
		return State{}, fmt.Errorf("userstate: decode state: %w", err)
	}
	if state.Conversation == "" {
		state.Conversation = StateNew
	}
	return state, nil
}

// Save merges the update into the stored state. The per-phone lock makes the
// read-merge-write cycle atomic from this process's perspective; the final
// SET is a single write, so a concurrent reader sees either the old or the
// new state, never a partial merge.
func (s *RedisStore) Save(ctx context.Context, phone string, update Update) error {
	if err := validatePhone(phone); err != nil {
		return err
	}

	lock := s.locks.get(phone)
	lock.Lock()
	defer lock.Unlock()

	current, err := s.Get(ctx, phone)
	if err != nil {
		return err
	}

	merged := update.apply(current)
	data, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("userstate: encode state: %w", err)
	}

	if err := s.client.Set(ctx, stateKey(phone), data, stateTTL).Err(); err != nil {
		return fmt.Errorf("userstate: persist state: %w", err)
	}
	return nil
}

// Clear resets the phone back to the default state.
func (s *RedisStore) Clear(ctx context.Context, phone string) error {
	if err := validatePhone(phone); err != nil {
		return err
	}

	lock := s.locks.get(phone)
	lock.Lock()
	defer lock.Unlock()

	if err := s.client.Del(ctx, stateKey(phone)).Err(); err != nil {
		return fmt.Errorf("userstate: clear state: %w", err)
	}
	return nil
}
