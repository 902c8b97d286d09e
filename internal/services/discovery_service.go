package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"swisswheels/app/internal/models"
)

// ISeenStore tracks which listings a user has already swiped through. Entries
// expire so the deck eventually refills with listings the user passed on.
type ISeenStore interface {
	MarkSeen(ctx context.Context, userID, listingID string) error
	Seen(ctx context.Context, userID string) (map[string]bool, error)
	Reset(ctx context.Context, userID string) error
}

// redisSeenStore keeps one Redis set per user.
type redisSeenStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedisSeenStore creates a seen-store backed by Redis sets with the given TTL.
func NewRedisSeenStore(rdb *redis.Client, ttl time.Duration) ISeenStore {
	return &redisSeenStore{rdb: rdb, ttl: ttl}
}

func seenKey(userID string) string {
	return "discovery:seen:" + userID
}

func (s *redisSeenStore) MarkSeen(ctx context.Context, userID, listingID string) error {
	key := seenKey(userID)
	pipe := s.rdb.TxPipeline()
	pipe.SAdd(ctx, key, listingID)
	pipe.Expire(ctx, key, s.ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to mark listing %s seen for user %s: %w", listingID, userID, err)
	}
	return nil
}

func (s *redisSeenStore) Seen(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := s.rdb.SMembers(ctx, seenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load seen set for user %s: %w", userID, err)
	}
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		seen[id] = true
	}
	return seen, nil
}

func (s *redisSeenStore) Reset(ctx context.Context, userID string) error {
	if err := s.rdb.Del(ctx, seenKey(userID)).Err(); err != nil {
		return fmt.Errorf("failed to reset seen set for user %s: %w", userID, err)
	}
	return nil
}

// memorySeenStore is an in-process ISeenStore for tests and local runs.
type memorySeenStore struct {
	mu   sync.Mutex
	sets map[string]map[string]bool
}

// NewMemorySeenStore creates an in-memory seen-store. Entries never expire.
func NewMemorySeenStore() ISeenStore {
	return &memorySeenStore{sets: make(map[string]map[string]bool)}
}

func (s *memorySeenStore) MarkSeen(_ context.Context, userID, listingID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sets[userID] == nil {
		s.sets[userID] = make(map[string]bool)
	}
	s.sets[userID][listingID] = true
	return nil
}

func (s *memorySeenStore) Seen(_ context.Context, userID string) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[string]bool, len(s.sets[userID]))
	for id := range s.sets[userID] {
		seen[id] = true
	}
	return seen, nil
}

func (s *memorySeenStore) Reset(_ context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sets, userID)
	return nil
}

// CandidateQueue filters the visible pool down to swipe candidates for a
// viewer: not their own listings, not already favorited, not already seen,
// optionally narrowed by filter criteria. Pure; order of the pool is kept.
func CandidateQueue(pool []models.Listing, viewerID primitive.ObjectID, criteria *models.FilterCriteria, favorites map[primitive.ObjectID]bool, seen map[string]bool) []models.Listing {
	candidates := make([]models.Listing, 0, len(pool))
	for i := range pool {
		l := &pool[i]
		if l.UserID == viewerID {
			continue
		}
		if favorites[l.ID] {
			continue
		}
		if seen[l.ID.Hex()] {
			continue
		}
		if !MatchesCriteria(criteria, l) {
			continue
		}
		candidates = append(candidates, pool[i])
	}
	return candidates
}

// IDiscoveryService defines the interface for the swipe surface.
type IDiscoveryService interface {
	Next(ctx context.Context, userID primitive.ObjectID, criteria *models.FilterCriteria) (*models.Listing, error)
	Pass(ctx context.Context, userID, listingID primitive.ObjectID) error
	Like(ctx context.Context, userID, listingID primitive.ObjectID) error
	Reset(ctx context.Context, userID primitive.ObjectID) error
}

// ErrDeckExhausted means there is no candidate left to show. It is a normal
// terminal state of a swipe session, distinct from infrastructure failures.
var ErrDeckExhausted = fmt.Errorf("no more listings to show")

// discoveryService implements IDiscoveryService on top of the listing pool,
// the favorites ledger and a seen-store.
type discoveryService struct {
	listings  IListingService
	favorites IFavoriteService
	seen      ISeenStore
}

// NewDiscoveryService creates a new DiscoveryService.
func NewDiscoveryService(listings IListingService, favorites IFavoriteService, seen ISeenStore) IDiscoveryService {
	return &discoveryService{listings: listings, favorites: favorites, seen: seen}
}

// Next returns the next swipe candidate, or ErrDeckExhausted when the viewer
// has worked through every eligible listing.
func (s *discoveryService) Next(ctx context.Context, userID primitive.ObjectID, criteria *models.FilterCriteria) (*models.Listing, error) {
	pool, err := s.listings.AllVisibleListings(ctx)
	if err != nil {
		return nil, err
	}
	favorited, err := s.favorites.ListingIDsByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	seen, err := s.seen.Seen(ctx, userID.Hex())
	if err != nil {
		return nil, err
	}

	candidates := CandidateQueue(pool, userID, criteria, favorited, seen)
	if len(candidates) == 0 {
		return nil, ErrDeckExhausted
	}
	return &candidates[0], nil
}

// Pass records a left swipe.
func (s *discoveryService) Pass(ctx context.Context, userID, listingID primitive.ObjectID) error {
	return s.seen.MarkSeen(ctx, userID.Hex(), listingID.Hex())
}

// Like records a right swipe: the listing joins the favorites ledger and is
// marked seen so it leaves the deck.
func (s *discoveryService) Like(ctx context.Context, userID, listingID primitive.ObjectID) error {
	if err := s.favorites.Add(ctx, userID, listingID); err != nil {
		return err
	}
	return s.seen.MarkSeen(ctx, userID.Hex(), listingID.Hex())
}

// Reset clears the seen set so passed listings come back into the deck.
func (s *discoveryService) Reset(ctx context.Context, userID primitive.ObjectID) error {
	return s.seen.Reset(ctx, userID.Hex())
}
