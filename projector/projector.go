// Package projector owns every derived view of order state: the kitchen
// queue, the per-customer history, the WhatsApp intake feed and the dish
// statistics. Nothing else writes to these views. All writes are best-effort
// and independently retried; the canonical order record has already
// committed by the time the projector runs.
package projector

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strconv"
	"time"

	"qrdine-api/clock"
	"qrdine-api/models"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	retryAttempts = 3
	retryBackoff  = 200 * time.Millisecond
)

type Projector struct {
	rdb       *redis.Client
	db        *gorm.DB
	clk       clock.Clock
	publisher EventPublisher // optional, nil disables events
}

func New(rdb *redis.Client, db *gorm.DB, clk clock.Clock, publisher EventPublisher) *Projector {
	return &Projector{rdb: rdb, db: db, clk: clk, publisher: publisher}
}

// ── Key paths ────────────────────────────────────────────────────────────────

func kitchenKey(restaurantID uint) string {
	return "kitchen:" + strconv.FormatUint(uint64(restaurantID), 10)
}

func userOrdersKey(customerID uint) string {
	return "userorders:" + strconv.FormatUint(uint64(customerID), 10)
}

func whatsappKey(restaurantID uint) string {
	return "whatsapp:" + strconv.FormatUint(uint64(restaurantID), 10)
}

func dailyStatsKey(t time.Time) string {
	return "dishstats:daily:" + t.Format("2006-01-02")
}

func weekStatsKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("dishstats:week:%d-W%02d", year, week)
}

func monthStatsKey(t time.Time) string {
	return "dishstats:month:" + t.Format("2006-01")
}

const allTimeStatsKey = "dishstats:alltime"

// ── Lifecycle hooks ──────────────────────────────────────────────────────────

func (p *Projector) OrderCreated(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	p.upsertViews(ctx, order)
	p.bumpStats(ctx, order)
	p.publish(ctx, "order_created", order)
}

func (p *Projector) OrderUpdated(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	p.upsertViews(ctx, order)
	p.publish(ctx, "order_updated", order)
}

// OrderDeleted cascade-invalidates every view entry for a hard-deleted order.
// Stats buckets are not decremented — they are rebuild-only aggregates.
func (p *Projector) OrderDeleted(ctx context.Context, order *models.Order) {
	ctx = context.WithoutCancel(ctx)
	p.withRetry("kitchen-delete", func() error {
		return p.rdb.HDel(ctx, kitchenKey(order.RestaurantID), order.ID).Err()
	})
	p.withRetry("userorders-delete", func() error {
		return p.rdb.HDel(ctx, userOrdersKey(order.CustomerID), order.ID).Err()
	})
	if order.Source == models.SourceWhatsApp {
		p.withRetry("whatsapp-delete", func() error {
			return p.rdb.HDel(ctx, whatsappKey(order.RestaurantID), order.ID).Err()
		})
	}
	p.publish(ctx, "order_deleted", order)
}

// ── View writes ──────────────────────────────────────────────────────────────

func (p *Projector) upsertViews(ctx context.Context, order *models.Order) {
	entry := models.KitchenQueueEntry{
		OrderID:       order.ID,
		CustomerID:    order.CustomerID,
		Source:        order.Source,
		Status:        order.Status,
		TotalAmount:   order.TotalAmount,
		PaymentStatus: order.PaymentStatus,
		ItemCount:     len(order.Items),
		CreatedAt:     order.CreatedAt,
		PrepEndsAt:    order.PrepEndsAt,
	}
	payload, err := json.Marshal(entry)
	if err != nil {
		log.Printf("projector: failed to encode order %s: %v", order.ID, err)
		return
	}

	p.withRetry("kitchen-upsert", func() error {
		return p.rdb.HSet(ctx, kitchenKey(order.RestaurantID), order.ID, payload).Err()
	})
	p.withRetry("userorders-upsert", func() error {
		return p.rdb.HSet(ctx, userOrdersKey(order.CustomerID), order.ID, payload).Err()
	})
	if order.Source == models.SourceWhatsApp {
		p.withRetry("whatsapp-upsert", func() error {
			return p.rdb.HSet(ctx, whatsappKey(order.RestaurantID), order.ID, payload).Err()
		})
	}
}

func (p *Projector) bumpStats(ctx context.Context, order *models.Order) {
	at := order.CreatedAt
	for _, item := range order.Items {
		member := strconv.FormatUint(uint64(item.DishID), 10)
		qty := float64(item.Quantity)
		p.withRetry("stats-bump", func() error {
			pipe := p.rdb.Pipeline()
			pipe.ZIncrBy(ctx, dailyStatsKey(at), qty, member)
			pipe.Expire(ctx, dailyStatsKey(at), 7*24*time.Hour)
			pipe.ZIncrBy(ctx, weekStatsKey(at), qty, member)
			pipe.ZIncrBy(ctx, monthStatsKey(at), qty, member)
			pipe.ZIncrBy(ctx, allTimeStatsKey, qty, member)
			_, err := pipe.Exec(ctx)
			return err
		})
	}
}

// withRetry runs the first attempt inline; failures are logged and retried
// in the background with backoff. A view write never fails the caller.
// Callers must hand the closure a context that outlives the triggering
// request, or the background retries die with it.
func (p *Projector) withRetry(name string, fn func() error) {
	err := fn()
	if err == nil {
		return
	}
	log.Printf("projector: %s failed, retrying in background: %v", name, err)
	go func() {
		backoff := retryBackoff
		for attempt := 1; attempt <= retryAttempts; attempt++ {
			time.Sleep(backoff)
			if err := fn(); err == nil {
				return
			}
			backoff *= 2
		}
		log.Printf("projector: %s gave up after %d retries; view is stale until rebuild", name, retryAttempts)
	}()
}

func (p *Projector) publish(ctx context.Context, eventType string, order *models.Order) {
	if p.publisher == nil {
		return
	}
	err := p.publisher.Publish(ctx, OrderEvent{
		Type:         eventType,
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		CustomerID:   order.CustomerID,
		Status:       order.Status,
		Timestamp:    p.clk.Now(),
	})
	if err != nil {
		log.Printf("projector: failed to publish %s for order %s: %v", eventType, order.ID, err)
	}
}

// ── Reads ────────────────────────────────────────────────────────────────────

// KitchenQueue returns the projected kitchen feed for one restaurant.
func (p *Projector) KitchenQueue(ctx context.Context, restaurantID uint) ([]models.KitchenQueueEntry, error) {
	return p.readHash(ctx, kitchenKey(restaurantID))
}

// CustomerHistory returns the projected order feed for one customer.
func (p *Projector) CustomerHistory(ctx context.Context, customerID uint) ([]models.KitchenQueueEntry, error) {
	return p.readHash(ctx, userOrdersKey(customerID))
}

// WhatsAppQueue returns the projected WhatsApp intake feed for one restaurant.
func (p *Projector) WhatsAppQueue(ctx context.Context, restaurantID uint) ([]models.KitchenQueueEntry, error) {
	return p.readHash(ctx, whatsappKey(restaurantID))
}

func (p *Projector) readHash(ctx context.Context, key string) ([]models.KitchenQueueEntry, error) {
	raw, err := p.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read view %s: %w", key, err)
	}
	entries := make([]models.KitchenQueueEntry, 0, len(raw))
	for _, v := range raw {
		var e models.KitchenQueueEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			log.Printf("projector: skipping corrupt entry in %s: %v", key, err)
			continue
		}
		entries = append(entries, e)
	}
	return entries, nil
}

// DishStats reads the projected counters for one dish.
func (p *Projector) DishStats(ctx context.Context, dishID uint) (models.DishStatistic, error) {
	now := p.clk.Now()
	member := strconv.FormatUint(uint64(dishID), 10)

	stats := models.DishStatistic{DishID: dishID}
	reads := []struct {
		key  string
		dest *int64
	}{
		{dailyStatsKey(now), &stats.Today},
		{dailyStatsKey(now.AddDate(0, 0, -1)), &stats.Yesterday},
		{weekStatsKey(now), &stats.Week},
		{monthStatsKey(now), &stats.Month},
		{allTimeStatsKey, &stats.AllTime},
	}
	for _, r := range reads {
		score, err := p.rdb.ZScore(ctx, r.key, member).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return stats, fmt.Errorf("failed to read %s: %w", r.key, err)
		}
		*r.dest = int64(score)
	}
	return stats, nil
}

// ── Repair ───────────────────────────────────────────────────────────────────

// Rebuild drops every derived view and reconstructs it by rescanning the
// canonical orders. Idempotent: running it twice yields the same state.
func (p *Projector) Rebuild(ctx context.Context) error {
	for _, pattern := range []string{"kitchen:*", "userorders:*", "whatsapp:*", "dishstats:*"} {
		keys, err := p.rdb.Keys(ctx, pattern).Result()
		if err != nil {
			return fmt.Errorf("failed to list %s keys: %w", pattern, err)
		}
		if len(keys) > 0 {
			if err := p.rdb.Del(ctx, keys...).Err(); err != nil {
				return fmt.Errorf("failed to clear %s keys: %w", pattern, err)
			}
		}
	}

	var orders []models.Order
	if err := p.db.WithContext(ctx).Preload("Items").Find(&orders).Error; err != nil {
		return fmt.Errorf("failed to rescan orders: %w", err)
	}

	for i := range orders {
		p.upsertViews(ctx, &orders[i])
		p.bumpStats(ctx, &orders[i])
	}
	log.Printf("projector: rebuilt views from %d orders", len(orders))
	return nil
}
