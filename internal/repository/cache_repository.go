package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/examdesk/examdesk-api/internal/models"
)

// SeatStatusCache stores short-lived seat status payloads in Redis so the
// student polling endpoint does not hit the database every minute.
type SeatStatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewSeatStatusCache constructs a SeatStatusCache. A non-positive TTL
// falls back to 30 seconds, half the polling interval.
func NewSeatStatusCache(client *redis.Client, ttl time.Duration) *SeatStatusCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &SeatStatusCache{client: client, ttl: ttl}
}

func seatStatusKey(studentID, examID string) string {
	return fmt.Sprintf("seatstatus:%s:%s", examID, studentID)
}

// GetSeatStatus returns the cached status and whether the cache was hit.
// Any Redis or decode failure counts as a miss. A nil receiver never hits;
// that is how the server runs when Redis is down at startup.
func (c *SeatStatusCache) GetSeatStatus(ctx context.Context, studentID, examID string) (*models.SeatStatus, bool) {
	if c == nil || c.client == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, seatStatusKey(studentID, examID)).Bytes()
	if err != nil {
		return nil, false
	}
	var status models.SeatStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, false
	}
	return &status, true
}

// SetSeatStatus stores the status best-effort; failures are ignored since
// the source of truth is the database.
func (c *SeatStatusCache) SetSeatStatus(ctx context.Context, studentID, examID string, status *models.SeatStatus) {
	if c == nil || c.client == nil {
		return
	}
	payload, err := json.Marshal(status)
	if err != nil {
		return
	}
	c.client.Set(ctx, seatStatusKey(studentID, examID), payload, c.ttl)
}

// InvalidateExam drops every cached status for the exam, called after a
// reveal flips visibility.
func (c *SeatStatusCache) InvalidateExam(ctx context.Context, examID string) {
	if c == nil || c.client == nil {
		return
	}
	pattern := fmt.Sprintf("seatstatus:%s:*", examID)
	iter := c.client.Scan(ctx, 0, pattern, 100).Iterator()
	for iter.Next(ctx) {
		c.client.Del(ctx, iter.Val())
	}
}
