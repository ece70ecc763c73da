package kafka

import "context"

func (p *Publisher) ProcessBatch(ctx context.Context) error {
	return p.processBatch(ctx)
}
