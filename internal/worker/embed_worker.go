package worker

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"docuchat/internal/app"
	"docuchat/internal/platform/rabbitmq"
	"docuchat/internal/repository"
)

// EmbedWorker populates chunk embeddings in the background. It talks to
// the chat path only through the chunks table: a chunk without an
// embedding is vector-ineligible, and becomes eligible the moment this
// worker writes the vector back. Jobs that fail are dropped (nack
// without requeue); the chunk just stays lexical-only.
type EmbedWorker struct {
	conn      *amqp.Connection
	chunkRepo *repository.ChunkRepository
	gateway   *app.EmbeddingGateway
	queueName string

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewEmbedWorker(conn *amqp.Connection, chunkRepo *repository.ChunkRepository, gateway *app.EmbeddingGateway, queueName string) *EmbedWorker {
	return &EmbedWorker{
		conn:      conn,
		chunkRepo: chunkRepo,
		gateway:   gateway,
		queueName: queueName,
	}
}

func (w *EmbedWorker) Start(ctx context.Context) error {
	if w.cancel != nil {
		return nil
	}

	workerCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel

	deliveries, ch, err := consumeQueue(w.conn, w.queueName)
	if err != nil {
		cancel()
		return err
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer ch.Close()

		for {
			select {
			case <-workerCtx.Done():
				return
			case d, ok := <-deliveries:
				if !ok {
					return
				}
				if err := w.handle(workerCtx, d.Body); err != nil {
					log.Printf("embed worker job failed: %v", err)
					_ = d.Nack(false, false)
					continue
				}
				_ = d.Ack(false)
			}
		}
	}()

	return nil
}

func (w *EmbedWorker) handle(ctx context.Context, body []byte) error {
	var job rabbitmq.EmbedJob
	if err := json.Unmarshal(body, &job); err != nil {
		return err
	}

	chunk, err := w.chunkRepo.GetByID(job.ChunkID)
	if err != nil {
		return err
	}
	if chunk == nil {
		// Parent document deleted before the job ran; nothing to do.
		return nil
	}
	if chunk.HasEmbedding() {
		return nil
	}

	vec, err := w.gateway.Embed(ctx, chunk.Content)
	if err != nil {
		return err
	}

	chunk.SetEmbedding(vec)
	return w.chunkRepo.UpdateEmbedding(chunk.ID, chunk.Embedding)
}

func (w *EmbedWorker) Close() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}
