package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/paperbuilder/paper-builder/backend/go-services/internal/paper/store"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/logger"
	"github.com/paperbuilder/paper-builder/backend/go-services/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

const DefaultChannel = "paperbuilder:changes"

// Message is the JSON payload published for every store change.
type Message struct {
	Op        store.Op  `json:"op"`
	PaperID   string    `json:"paperId,omitempty"`
	SectionID string    `json:"sectionId,omitempty"`
	Version   uint64    `json:"version"`
	Papers    int       `json:"papers"`
	At        time.Time `json:"at"`
}

// RedisPublisher forwards store changes to a Redis pub/sub channel so that
// sibling front-ends can refresh. Notify never blocks: messages are queued
// for a single background sender and dropped when the queue is full.
type RedisPublisher struct {
	client  *redis.Client
	channel string
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Message
	done   chan struct{}
}

// NewRedisPublisher starts the sender goroutine. Channel may be empty.
func NewRedisPublisher(client *redis.Client, channel string, buffer int) *RedisPublisher {
	if channel == "" {
		channel = DefaultChannel
	}
	if buffer <= 0 {
		buffer = 64
	}
	p := &RedisPublisher{
		client:  client,
		channel: channel,
		timeout: 2 * time.Second,
		queue:   make(chan Message, buffer),
		done:    make(chan struct{}),
	}
	go p.run()
	return p
}

// Notify is a store.Listener.
func (p *RedisPublisher) Notify(ch store.Change, st store.State) {
	msg := Message{
		Op:        ch.Op,
		PaperID:   ch.PaperID,
		SectionID: ch.SectionID,
		Version:   ch.Version,
		Papers:    len(st.Papers),
		At:        ch.At,
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return
	}
	select {
	case p.queue <- msg:
	default:
		metrics.ChangesDropped.Inc()
		logger.Warnf("change publisher queue full, dropping %s v%d", msg.Op, msg.Version)
	}
}

// Close stops accepting changes, sends what is queued and waits for the
// sender to exit.
func (p *RedisPublisher) Close() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.queue)
	}
	p.mu.Unlock()
	<-p.done
}

func (p *RedisPublisher) run() {
	defer close(p.done)
	for msg := range p.queue {
		if err := p.publish(msg); err != nil {
			logger.Warnf("%v", err)
		}
	}
}

func (p *RedisPublisher) publish(msg Message) error {
	b, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encode change: %w", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.client.Publish(ctx, p.channel, b).Err(); err != nil {
		return fmt.Errorf("publish change to %s: %w", p.channel, err)
	}
	return nil
}
