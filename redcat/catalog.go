package redcat

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Catalog publishes and discovers plugin descriptor records in Redis.
// Records are durable (no TTL): a publisher removes its records
// explicitly when they stop being offered.
type Catalog struct {
	opts   *Options
	client redis.Cmdable // Use Cmdable for compatibility with ClusterClient, SentinelClient, etc.
}

// NewCatalog creates a catalog on a pre-configured redis.Cmdable
// (e.g., redis.Client or redis.ClusterClient).
func NewCatalog(client redis.Cmdable, opts ...Option) *Catalog {
	options := newOptions(opts...)
	return &Catalog{
		opts:   options,
		client: client,
	}
}

// recordKey generates the Redis key for a specific record.
func (c *Catalog) recordKey(rec *Record) string {
	// Format: prefix:namespace:name:recordID
	return fmt.Sprintf("%s:%s:%s:%s", c.opts.KeyPrefix, rec.Namespace, rec.Name, rec.ID)
}

// namespacePattern generates the SCAN pattern covering a namespace.
func (c *Catalog) namespacePattern(namespace string) string {
	// Format: prefix:namespace:*
	return fmt.Sprintf("%s:%s:*", c.opts.KeyPrefix, namespace)
}

// Publish stores a record under its namespace. A blank ID is filled with
// a fresh UUID, so the same name may be published more than once;
// consumers see the duplicates and report ambiguity where it matters.
func (c *Catalog) Publish(ctx context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
		log.Debug().Str("namespace", rec.Namespace).Str("plugin", rec.Name).Str("generated_id", rec.ID).Msg("generated record id")
	}
	if rec.Meta == nil {
		rec.Meta = make(map[string]string) // Ensure not nil for JSON
	}
	rec.PublishedAt = time.Now().UTC()

	key := c.recordKey(rec)
	valueBytes, err := json.Marshal(rec)
	if err != nil {
		log.Error().Err(err).Stringer("record", rec).Msg("failed to marshal record data")
		return fmt.Errorf("failed to marshal record data: %w", err)
	}

	if err := c.client.Set(ctx, key, valueBytes, 0).Err(); err != nil {
		log.Error().Err(err).Str("key", key).Msg("failed to set record key in redis")
		return fmt.Errorf("failed to publish record to redis: %w", err)
	}

	log.Info().Stringer("record", rec).Str("key", key).Msg("record published")
	return nil
}

// Remove deletes a record's key from Redis.
func (c *Catalog) Remove(ctx context.Context, rec *Record) error {
	key := c.recordKey(rec)

	deletedCount, err := c.client.Del(ctx, key).Result()
	// Ignore redis.Nil if Remove is called twice for the same record
	if err != nil && !errors.Is(err, redis.Nil) {
		log.Error().Err(err).Stringer("record", rec).Msg("failed to delete record key from redis")
		return fmt.Errorf("failed to remove record from redis: %w", err)
	}

	if deletedCount > 0 {
		log.Info().Stringer("record", rec).Msg("record removed")
	} else {
		log.Info().Stringer("record", rec).Msg("record already gone or never published")
	}
	return nil
}

// Records finds the records published under a namespace using SCAN and MGET.
func (c *Catalog) Records(ctx context.Context, namespace string) ([]*Record, error) {
	pattern := c.namespacePattern(namespace)

	keys, err := c.scanKeys(ctx, pattern)
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Str("pattern", pattern).Msg("failed to scan keys for namespace")
		return nil, fmt.Errorf("failed to scan keys for namespace %s: %w", namespace, err)
	}

	if len(keys) == 0 {
		log.Debug().Str("namespace", namespace).Msg("catalog has no records for namespace")
		return []*Record{}, nil // Return empty slice, not nil
	}

	// MGET fetches values for multiple keys efficiently
	valuesAny, err := c.client.MGet(ctx, keys...).Result()
	if err != nil {
		log.Error().Err(err).Str("namespace", namespace).Int("key_count", len(keys)).Msg("failed to mget record data")
		return nil, fmt.Errorf("failed to MGET record data for namespace %s: %w", namespace, err)
	}

	records := decodeRecords(namespace, keys, valuesAny)

	log.Debug().Str("namespace", namespace).Int("count", len(records)).Msg("catalog discovery successful")
	return records, nil
}

// decodeRecords turns MGET results into validated records for the
// namespace. Missing, malformed, and incomplete entries are logged and
// skipped, and so are records whose namespace merely extends the
// requested one: the SCAN pattern is a key prefix, so a scan of
// "payments" also returns keys published under "payments:internal".
func decodeRecords(namespace string, keys []string, values []any) []*Record {
	records := make([]*Record, 0, len(values))
	for i, valAny := range values {
		// MGET returns nil interface for keys removed between SCAN and MGET
		if valAny == nil {
			log.Warn().Str("key", keys[i]).Msg("mget returned nil for key, likely removed concurrently")
			continue
		}

		valueStr, ok := valAny.(string)
		if !ok {
			log.Warn().Str("key", keys[i]).Interface("type", fmt.Sprintf("%T", valAny)).Msg("unexpected type from mget, expected string")
			continue
		}

		var rec Record
		if err := json.Unmarshal([]byte(valueStr), &rec); err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Str("value", valueStr).Msg("failed to unmarshal record data, skipping")
			continue // Skip malformed entries
		}
		if err := rec.Validate(); err != nil {
			log.Warn().Err(err).Str("key", keys[i]).Msg("skipping incomplete record")
			continue
		}
		if rec.Namespace != namespace {
			log.Warn().Str("key", keys[i]).Str("record_namespace", rec.Namespace).Str("namespace", namespace).Msg("skipping record from another namespace")
			continue
		}
		records = append(records, &rec)
	}
	return records
}

// Watch provides a channel for observing catalog changes in a namespace
// via polling. The full record list is emitted once at start and again
// whenever the set changes; the watcher runs until ctx is canceled.
func (c *Catalog) Watch(ctx context.Context, namespace string) (<-chan []*Record, error) {
	ch := make(chan []*Record, 1)

	go func() {
		defer close(ch)
		ticker := time.NewTicker(c.opts.WatchInterval)
		defer ticker.Stop()

		var lastHash string

		// Perform initial discovery and send immediately
		initialRecords, err := c.Records(ctx, namespace)
		if err != nil {
			// Log error but continue watching; send empty list initially on error
			log.Error().Err(err).Str("namespace", namespace).Msg("watcher failed initial discovery")
			initialRecords = []*Record{}
		}
		lastHash = hashRecords(initialRecords)
		select {
		case ch <- initialRecords:
			log.Debug().Str("namespace", namespace).Int("count", len(initialRecords)).Msg("watcher sent initial state")
		case <-ctx.Done():
			log.Warn().Str("namespace", namespace).Msg("watcher context canceled before sending initial state")
			return
		}

		for {
			select {
			case <-ctx.Done():
				log.Info().Str("namespace", namespace).Msg("watcher stopping due to context cancellation")
				return
			case <-ticker.C:
				currentRecords, err := c.Records(ctx, namespace)
				if err != nil {
					log.Warn().Err(err).Str("namespace", namespace).Msg("watcher failed discovery during poll")
					continue // Skip update on error
				}

				newHash := hashRecords(currentRecords)
				if newHash == lastHash {
					log.Trace().Str("namespace", namespace).Msg("watcher poll found no changes")
					continue
				}
				log.Debug().Str("namespace", namespace).Int("count", len(currentRecords)).Msg("watcher detected change")
				// Non-blocking send: if the receiver isn't ready, drop the
				// older update but remember the hash so the same state isn't
				// re-sent on the next tick.
				select {
				case ch <- currentRecords:
					lastHash = newHash
				default:
					log.Warn().Str("namespace", namespace).Msg("watcher channel full, dropping update")
					lastHash = newHash
				}
			}
		}
	}()

	log.Info().Str("namespace", namespace).Dur("interval", c.opts.WatchInterval).Msg("watcher started")
	return ch, nil
}

// scanKeys uses SCAN to find keys matching a pattern without blocking Redis.
func (c *Catalog) scanKeys(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	var cursor uint64
	var err error
	scanCmd := c.client.Scan(ctx, cursor, pattern, c.opts.ScanCount)

	for {
		var batch []string
		batch, cursor, err = scanCmd.Result()
		if err != nil {
			return nil, err
		}
		keys = append(keys, batch...)
		if cursor == 0 { // Iteration complete
			break
		}
		// Prepare command for the next iteration
		scanCmd = c.client.Scan(ctx, cursor, pattern, c.opts.ScanCount)
	}
	return keys, nil
}
