package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/hibiken/asynq"

	"github.com/dharsanguruparan/RelayDrop/internal/provider"
	"github.com/dharsanguruparan/RelayDrop/internal/queue"
)

// Processor is plugged into the asynq worker loop. It resolves each cleanup
// task to the host that stored the file and asks it to delete the remote
// copy.
type Processor struct {
	deleters map[string]provider.Deleter
}

// NewProcessor constructs a worker processor over the hosts that support
// deletion.
func NewProcessor(deleters map[string]provider.Deleter) *Processor {
	return &Processor{deleters: deleters}
}

// Handler registers the cleanup job handler.
func (p *Processor) Handler() *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.HandleFunc(queue.RemoteCleanupTask, p.handleCleanup)
	return mux
}

func (p *Processor) handleCleanup(ctx context.Context, task *asynq.Task) error {
	var payload queue.CleanupPayload
	if err := json.Unmarshal(task.Payload(), &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	deleter, ok := p.deleters[payload.Service]
	if !ok {
		// Most disposable hosts expose no delete API; their copies simply age
		// out on the remote side.
		log.Printf("no remote cleanup for service %s, skipping %s", payload.Service, payload.FileID)
		return nil
	}
	if payload.ProviderFileID == "" {
		log.Printf("no provider file id recorded for %s, skipping cleanup", payload.FileID)
		return nil
	}
	if err := deleter.Delete(ctx, payload.ProviderFileID); err != nil {
		log.Printf("remote cleanup failed for %s on %s: %v", payload.FileID, payload.Service, err)
		return err
	}
	log.Printf("removed remote copy of %s from %s", payload.FileID, payload.Service)
	return nil
}
