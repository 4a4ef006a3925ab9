package redis

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"whatsapp-ai-assistant/internal/config"
	"whatsapp-ai-assistant/internal/domain/model"
	"whatsapp-ai-assistant/internal/domain/ports/repository"
	"whatsapp-ai-assistant/internal/infra/metrics"

	"github.com/go-redis/redis/v8"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
)

const (
	streamKeyPrefix = "stream:conv:"
	payloadField    = "payload"
)

var _ repository.ConversationLog = (*ConversationLog)(nil)

// ConversationLog implements the per-conversation log on Redis streams.
// One stream per conversation, a single consumer group shared by every
// worker instance, and a unique consumer name per process. Strict per-
// conversation ordering comes from running one claim/ack loop per
// conversation; the group's pending-entry list gives at-least-once
// redelivery after a crash.
type ConversationLog struct {
	client         RedisClient
	group          string
	consumer       string
	maxLen         int64
	reclaimMinIdle time.Duration
	log            *zerolog.Logger
}

func NewConversationLog(client RedisClient, cfg config.QueueConfig, logger *zerolog.Logger) *ConversationLog {
	l := logger.With().Str("component", "ConversationLog").Logger()
	return &ConversationLog{
		client:         client,
		group:          cfg.Group,
		consumer:       "worker-" + ulid.Make().String(),
		maxLen:         cfg.StreamMaxLen,
		reclaimMinIdle: cfg.ReclaimMinIdle,
		log:            &l,
	}
}

func streamKey(conversationID string) string {
	return streamKeyPrefix + conversationID
}

func (c *ConversationLog) Append(ctx context.Context, conversationID string, d *model.JobDescriptor) (string, error) {
	payload, err := model.EncodeDescriptor(d)
	if err != nil {
		return "", err
	}
	id, err := c.client.XAdd(ctx, &redis.XAddArgs{
		Stream:       streamKey(conversationID),
		MaxLenApprox: c.maxLen,
		Values:       map[string]interface{}{payloadField: string(payload)},
	})
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}
	c.log.Debug().Str("conversation_id", conversationID).Str("job_id", d.JobID).Str("sequence_id", id).Msg("entry appended")
	return id, nil
}

func (c *ConversationLog) ensureGroup(ctx context.Context, conversationID string) error {
	err := c.client.XGroupCreateMkStream(ctx, streamKey(conversationID), c.group, "0")
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("xgroup create: %w", err)
	}
	return nil
}

func (c *ConversationLog) ClaimNext(ctx context.Context, conversationID string, block time.Duration) (*model.LogEntry, error) {
	if err := c.ensureGroup(ctx, conversationID); err != nil {
		return nil, err
	}
	for {
		entry, err := c.claimOnce(ctx, conversationID, block)
		if err != nil {
			return nil, err
		}
		if entry == nil {
			return nil, nil
		}
		if entry.Descriptor == nil {
			// Trimmed or undecodable body. Ack so the conversation is not
			// blocked and take the next entry.
			if err := c.Acknowledge(ctx, conversationID, entry.SequenceID); err != nil {
				return nil, err
			}
			continue
		}
		return entry, nil
	}
}

// claimOnce returns the next entry, reclaiming abandoned ones first. An
// entry with a nil Descriptor could not be decoded and must be acked by the
// caller. (nil, nil) means the conversation is idle.
func (c *ConversationLog) claimOnce(ctx context.Context, conversationID string, block time.Duration) (*model.LogEntry, error) {
	key := streamKey(conversationID)

	msgs, _, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
		Stream:   key,
		Group:    c.group,
		Consumer: c.consumer,
		MinIdle:  c.reclaimMinIdle,
		Start:    "0-0",
		Count:    1,
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("xautoclaim: %w", err)
	}
	if len(msgs) > 0 {
		metrics.IncRedelivery()
		entry := c.toEntry(conversationID, msgs[0])
		entry.DeliveryCount = c.deliveryCount(ctx, key, entry.SequenceID)
		c.log.Warn().Str("conversation_id", conversationID).Str("sequence_id", entry.SequenceID).
			Int64("delivery_count", entry.DeliveryCount).Msg("reclaimed abandoned entry")
		return entry, nil
	}

	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{key, ">"},
		Count:    1,
		Block:    block,
	})
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // timeout, conversation is idle
		}
		return nil, fmt.Errorf("xreadgroup: %w", err)
	}
	if len(streams) == 0 || len(streams[0].Messages) == 0 {
		return nil, nil
	}
	entry := c.toEntry(conversationID, streams[0].Messages[0])
	entry.DeliveryCount = 1
	return entry, nil
}

func (c *ConversationLog) toEntry(conversationID string, msg redis.XMessage) *model.LogEntry {
	entry := &model.LogEntry{SequenceID: msg.ID}
	raw, ok := msg.Values[payloadField].(string)
	if !ok {
		c.log.Warn().Str("conversation_id", conversationID).Str("sequence_id", msg.ID).
			Msg("entry body missing, likely trimmed")
		return entry
	}
	d, err := model.DecodeDescriptor([]byte(raw))
	if err != nil {
		c.log.Error().Err(err).Str("conversation_id", conversationID).Str("sequence_id", msg.ID).
			Msg("undecodable entry dropped")
		return entry
	}
	entry.Descriptor = d
	return entry
}

func (c *ConversationLog) deliveryCount(ctx context.Context, key, id string) int64 {
	pending, err := c.client.XPendingExt(ctx, &redis.XPendingExtArgs{
		Stream: key,
		Group:  c.group,
		Start:  id,
		End:    id,
		Count:  1,
	})
	if err != nil || len(pending) == 0 {
		return 1
	}
	return pending[0].RetryCount
}

func (c *ConversationLog) Acknowledge(ctx context.Context, conversationID, sequenceID string) error {
	if err := c.client.XAck(ctx, streamKey(conversationID), c.group, sequenceID); err != nil {
		return fmt.Errorf("xack: %w", err)
	}
	return nil
}

func (c *ConversationLog) PendingCount(ctx context.Context, conversationID string) (int64, error) {
	p, err := c.client.XPending(ctx, streamKey(conversationID), c.group)
	if err != nil {
		if isNoGroup(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("xpending: %w", err)
	}
	return p.Count, nil
}

// ActiveConversations scans the stream namespace and returns conversations
// with claimed-but-unacked entries or entries not yet delivered to the
// group. Drained conversations may be included (the runner's first claim
// times out and exits); conversations with work are never omitted.
func (c *ConversationLog) ActiveConversations(ctx context.Context) ([]string, error) {
	var (
		active []string
		cursor uint64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, streamKeyPrefix+"*", 100)
		if err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		for _, key := range keys {
			ok, err := c.hasWork(ctx, key)
			if err != nil {
				// One broken key must not hide the rest of the sweep.
				c.log.Warn().Err(err).Str("key", key).Msg("skipping undiscoverable stream key")
				continue
			}
			if ok {
				active = append(active, strings.TrimPrefix(key, streamKeyPrefix))
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return active, nil
}

func (c *ConversationLog) hasWork(ctx context.Context, key string) (bool, error) {
	groups, err := c.client.XInfoGroups(ctx, key)
	if err != nil {
		if isNoGroup(err) {
			// No group yet: anything in the stream is undelivered.
			n, err := c.client.XLen(ctx, key)
			if err != nil {
				return false, fmt.Errorf("xlen: %w", err)
			}
			return n > 0, nil
		}
		return false, fmt.Errorf("xinfo groups: %w", err)
	}

	var group *redis.XInfoGroup
	for i := range groups {
		if groups[i].Name == c.group {
			group = &groups[i]
			break
		}
	}
	if group == nil {
		n, err := c.client.XLen(ctx, key)
		if err != nil {
			return false, fmt.Errorf("xlen: %w", err)
		}
		return n > 0, nil
	}
	if group.Pending > 0 {
		return true, nil
	}

	info, err := c.client.XInfoStream(ctx, key)
	if err != nil {
		return false, fmt.Errorf("xinfo stream: %w", err)
	}
	return streamIDLess(group.LastDeliveredID, info.LastGeneratedID), nil
}

func isNoGroup(err error) bool {
	return err != nil && (errors.Is(err, redis.Nil) || strings.Contains(err.Error(), "NOGROUP"))
}

// streamIDLess compares two stream ids of the form "<ms>-<seq>".
func streamIDLess(a, b string) bool {
	ams, aseq := splitStreamID(a)
	bms, bseq := splitStreamID(b)
	if ams != bms {
		return ams < bms
	}
	return aseq < bseq
}

func splitStreamID(id string) (uint64, uint64) {
	parts := strings.SplitN(id, "-", 2)
	ms, _ := strconv.ParseUint(parts[0], 10, 64)
	var seq uint64
	if len(parts) == 2 {
		seq, _ = strconv.ParseUint(parts[1], 10, 64)
	}
	return ms, seq
}
