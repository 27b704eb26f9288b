// Package upload drives the ordered-fallback strategy across the configured
// provider chain.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/dharsanguruparan/RelayDrop/internal/provider"
)

// ErrNoFile is returned when an orchestration is requested for an empty
// payload.
var ErrNoFile = errors.New("no file uploaded")

// SizeLimitError rejects a payload before any provider is contacted.
type SizeLimitError struct {
	Size  int64
	Limit int64
}

func (e *SizeLimitError) Error() string {
	return fmt.Sprintf("file too large: %d bytes exceeds the %d byte limit", e.Size, e.Limit)
}

// Attempt records one provider failure during a chain run.
type Attempt struct {
	Provider string `json:"provider"`
	Message  string `json:"message"`
}

// ChainError reports that every provider in the chain failed, carrying the
// ordered per-provider diagnostics.
type ChainError struct {
	Attempts []Attempt
}

func (e *ChainError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %s", a.Provider, a.Message))
	}
	return "all providers failed: " + strings.Join(parts, "; ")
}

// Result is the normalized outcome of a successful chain run.
type Result struct {
	Service string
	Outcome provider.Outcome
}

// Orchestrator tries providers strictly in the configured order, stopping at
// the first success. Providers are never raced against each other: the upload
// would otherwise land on multiple hosts.
type Orchestrator struct {
	chain   []provider.Adapter
	maxSize int64
}

// New builds an Orchestrator over the given chain.
func New(maxSize int64, chain ...provider.Adapter) *Orchestrator {
	return &Orchestrator{chain: chain, maxSize: maxSize}
}

// Chain exposes the configured provider names, in order.
func (o *Orchestrator) Chain() []string {
	names := make([]string, 0, len(o.chain))
	for _, a := range o.chain {
		names = append(names, a.Name())
	}
	return names
}

// Upload runs the fallback chain. The size check happens before any network
// call. On success the remaining providers are not contacted; on total
// failure the returned ChainError holds one attempt per provider tried.
func (o *Orchestrator) Upload(ctx context.Context, payload []byte, fileName, mimeType string) (*Result, error) {
	if len(payload) == 0 {
		return nil, ErrNoFile
	}
	if o.maxSize > 0 && int64(len(payload)) > o.maxSize {
		return nil, &SizeLimitError{Size: int64(len(payload)), Limit: o.maxSize}
	}
	var attempts []Attempt
	for _, adapter := range o.chain {
		log.Printf("trying upload of %s via %s", fileName, adapter.Name())
		outcome, err := adapter.Upload(ctx, payload, fileName, mimeType)
		if err != nil {
			log.Printf("%s failed: %v", adapter.Name(), err)
			attempts = append(attempts, Attempt{Provider: adapter.Name(), Message: err.Error()})
			continue
		}
		if outcome.DirectURL == "" {
			outcome.DirectURL = outcome.URL
		}
		log.Printf("upload of %s succeeded via %s", fileName, adapter.Name())
		return &Result{Service: adapter.Name(), Outcome: *outcome}, nil
	}
	return nil, &ChainError{Attempts: attempts}
}
