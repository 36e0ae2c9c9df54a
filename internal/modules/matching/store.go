// README: Dispatch records for broadcast requests, kept in Redis.
package matching

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"lifelink/internal/types"
)

const (
	dispatchKeyPattern = "matching:request:%s:dispatched_at"
	notifiedKeyPattern = "matching:request:%s:notified"
)

type Store struct {
	redis *redis.Client
	now   func() time.Time
}

func NewStore(client *redis.Client) *Store {
	return &Store{redis: client, now: time.Now}
}

// RecordDispatch stores when a request went out and which donors it reached.
// Repeated dispatches move the timestamp and grow the donor set.
func (s *Store) RecordDispatch(ctx context.Context, requestID types.ID, donorIDs []types.ID) error {
	pipe := s.redis.Pipeline()
	pipe.Set(ctx, dispatchedAtKey(requestID), s.now().UTC().Format(time.RFC3339), dispatchTTL)
	if len(donorIDs) > 0 {
		members := make([]interface{}, len(donorIDs))
		for i, d := range donorIDs {
			members[i] = string(d)
		}
		key := notifiedKey(requestID)
		pipe.SAdd(ctx, key, members...)
		pipe.Expire(ctx, key, dispatchTTL)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// DispatchedAt returns when the request was last dispatched, and whether it was.
func (s *Store) DispatchedAt(ctx context.Context, requestID types.ID) (time.Time, bool, error) {
	val, err := s.redis.Get(ctx, dispatchedAtKey(requestID)).Result()
	if errors.Is(err, redis.Nil) {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, err
	}
	t, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("parsing dispatch time %q: %w", val, err)
	}
	return t, true, nil
}

// NotifiedDonors lists the donors reached for a request, sorted by id.
func (s *Store) NotifiedDonors(ctx context.Context, requestID types.ID) ([]types.ID, error) {
	members, err := s.redis.SMembers(ctx, notifiedKey(requestID)).Result()
	if err != nil {
		return nil, err
	}
	sort.Strings(members)
	ids := make([]types.ID, len(members))
	for i, m := range members {
		ids[i] = types.ID(m)
	}
	return ids, nil
}

func dispatchedAtKey(requestID types.ID) string {
	return fmt.Sprintf(dispatchKeyPattern, string(requestID))
}

func notifiedKey(requestID types.ID) string {
	return fmt.Sprintf(notifiedKeyPattern, string(requestID))
}
