package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/yourusername/telegram-image-bot/internal/domain/entity"
	"github.com/yourusername/telegram-image-bot/internal/domain/repository"
)

const selectionKeyPrefix = "imagebot:selection:"

type redisSelectionRepository struct {
	client *redis.Client
	now    func() time.Time
}

type redisSelection struct {
	UserID      int64     `json:"user_id"`
	ChatID      int64     `json:"chat_id"`
	Username    string    `json:"username,omitempty"`
	Prompt      string    `json:"prompt"`
	RequestID   string    `json:"request_id"`
	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at,omitempty"`
}

// NewRedisSelectionRepository Redis backed selection store.
// Expiry uses native key TTLs; Take uses GETDEL.
func NewRedisSelectionRepository(ctx context.Context, addr, password string, db int) (repository.SelectionRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}

	return newRedisSelectionRepository(client), nil
}

func newRedisSelectionRepository(client *redis.Client) *redisSelectionRepository {
	return &redisSelectionRepository{client: client, now: time.Now}
}

func selectionKey(userID int64) string {
	return selectionKeyPrefix + strconv.FormatInt(userID, 10)
}

// Put stores the selection with the remaining lifetime as key TTL
func (r *redisSelectionRepository) Put(ctx context.Context, selection entity.PendingSelection) error {
	var ttl time.Duration
	if !selection.ExpiresAt.IsZero() {
		ttl = selection.ExpiresAt.Sub(r.now())
		if ttl <= 0 {
			return r.client.Del(ctx, selectionKey(selection.UserID)).Err()
		}
	}

	payload, err := json.Marshal(redisSelection{
		UserID:      selection.UserID,
		ChatID:      selection.ChatID,
		Username:    selection.Username,
		Prompt:      selection.Prompt.Text,
		RequestID:   selection.Prompt.RequestID,
		SubmittedAt: selection.Prompt.SubmittedAt,
		CreatedAt:   selection.CreatedAt,
		ExpiresAt:   selection.ExpiresAt,
	})
	if err != nil {
		return fmt.Errorf("encode selection: %w", err)
	}

	return r.client.Set(ctx, selectionKey(selection.UserID), payload, ttl).Err()
}

// Take atomically fetches and deletes the selection
func (r *redisSelectionRepository) Take(ctx context.Context, userID int64) (*entity.PendingSelection, error) {
	raw, err := r.client.GetDel(ctx, selectionKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, entity.ErrSelectionNotFound
	}
	if err != nil {
		return nil, err
	}

	var rs redisSelection
	if err := json.Unmarshal(raw, &rs); err != nil {
		return nil, fmt.Errorf("decode selection: %w", err)
	}

	p := entity.PendingSelection{
		UserID:   rs.UserID,
		ChatID:   rs.ChatID,
		Username: rs.Username,
		Prompt: entity.Prompt{
			Text:        rs.Prompt,
			UserID:      rs.UserID,
			RequestID:   rs.RequestID,
			SubmittedAt: rs.SubmittedAt,
		},
		CreatedAt: rs.CreatedAt,
		ExpiresAt: rs.ExpiresAt,
	}
	if p.Expired(r.now()) {
		return nil, entity.ErrSelectionNotFound
	}
	return &p, nil
}

// Close closes the redis client
func (r *redisSelectionRepository) Close() error {
	return r.client.Close()
}
