package worker

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"time"

	"redesocial/internal/queue"
)

const (
	DefaultWorkerCount  = 2
	DefaultBatchSize    = 10
	DefaultBlockTimeout = 5 * time.Second
)

// EventHandler is the part of Handler the manager depends on.
type EventHandler interface {
	HandleEvent(ctx context.Context, event queue.Event) error
}

// Manager runs worker goroutines that consume the social stream.
type Manager struct {
	consumer    queue.Consumer
	handler     EventHandler
	workerCount int
	batchSize   int64
	blockTime   time.Duration
	stream      string
	group       string

	wg     sync.WaitGroup
	ctx    context.Context
	cancel context.CancelFunc
}

type ManagerConfig struct {
	WorkerCount  int
	BatchSize    int64
	BlockTimeout time.Duration
}

func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		WorkerCount:  DefaultWorkerCount,
		BatchSize:    DefaultBatchSize,
		BlockTimeout: DefaultBlockTimeout,
	}
}

func NewManager(consumer queue.Consumer, handler EventHandler, cfg ManagerConfig) *Manager {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = DefaultWorkerCount
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BlockTimeout <= 0 {
		cfg.BlockTimeout = DefaultBlockTimeout
	}

	return &Manager{
		consumer:    consumer,
		handler:     handler,
		workerCount: cfg.WorkerCount,
		batchSize:   cfg.BatchSize,
		blockTime:   cfg.BlockTimeout,
		stream:      queue.StreamSocial,
		group:       queue.ConsumerGroupSocial,
	}
}

// Start creates the consumer group and launches the workers. Stop cancels
// them and waits.
func (m *Manager) Start(ctx context.Context) error {
	m.ctx, m.cancel = context.WithCancel(ctx)

	if err := m.consumer.EnsureGroup(m.ctx, m.stream, m.group); err != nil {
		m.cancel()
		return err
	}

	for i := 1; i <= m.workerCount; i++ {
		m.wg.Add(1)
		go m.runWorker(i, consumerName(i))
	}

	log.Printf("[Manager] Started %d workers for stream=%s group=%s", m.workerCount, m.stream, m.group)
	return nil
}

func (m *Manager) Stop() {
	if m.cancel == nil {
		return
	}
	m.cancel()
	m.wg.Wait()
	log.Printf("[Manager] All workers stopped")
}

func (m *Manager) runWorker(workerID int, consumer string) {
	defer m.wg.Done()

	// Replay whatever this consumer left unacked before a restart.
	m.processPending(workerID, consumer)

	for {
		select {
		case <-m.ctx.Done():
			return
		default:
			m.processMessages(workerID, consumer)
		}
	}
}

func (m *Manager) processPending(workerID int, consumer string) {
	for {
		messages, err := m.consumer.ReadPending(m.ctx, m.stream, m.group, consumer, m.batchSize)
		if err != nil {
			log.Printf("[Worker-%d] Error reading pending: %v", workerID, err)
			return
		}
		if len(messages) == 0 {
			return
		}
		m.handleMessages(workerID, messages)
	}
}

func (m *Manager) processMessages(workerID int, consumer string) {
	messages, err := m.consumer.Read(m.ctx, m.stream, m.group, consumer, m.batchSize, m.blockTime)
	if err != nil {
		if m.ctx.Err() != nil {
			return
		}
		log.Printf("[Worker-%d] Error reading: %v", workerID, err)
		select {
		case <-time.After(time.Second):
		case <-m.ctx.Done():
		}
		return
	}
	m.handleMessages(workerID, messages)
}

// handleMessages acks every message, failed or not; a poisoned event must
// not block the group.
func (m *Manager) handleMessages(workerID int, messages []queue.Message) {
	for _, msg := range messages {
		if err := m.handler.HandleEvent(m.ctx, msg.Event); err != nil {
			log.Printf("[Worker-%d] Handler error msgID=%s type=%s: %v", workerID, msg.ID, msg.Event.Type, err)
		}
		if err := m.consumer.Ack(m.ctx, m.stream, m.group, msg.ID); err != nil {
			log.Printf("[Worker-%d] ACK error msgID=%s: %v", workerID, msg.ID, err)
		}
	}
}

// consumerName is stable across restarts of the same host so pending
// messages are picked up again.
func consumerName(workerID int) string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "local"
	}
	return fmt.Sprintf("%s-worker-%d", host, workerID)
}
