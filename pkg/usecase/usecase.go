package usecase

import (
	"time"

	"github.com/m-mizutani/gollem"
	"github.com/stenolab/steno/pkg/domain/interfaces"
	"github.com/stenolab/steno/pkg/service/retrieval"
	"github.com/stenolab/steno/pkg/service/summary"
	"github.com/stenolab/steno/pkg/utils/async"
)

// UseCases bundles the application operations behind the controllers.
// Background pipelines spawned here are tracked so shutdown can drain
// them; there is no durable job queue behind the tracker.
type UseCases struct {
	repo      interfaces.Repository
	blobs     interfaces.BlobStore
	notifier  interfaces.Notifier
	llm       gollem.LLMClient
	retrieval *retrieval.Service
	summary   *summary.Service
	tracker   *async.Tracker

	pipelineAttempts int
	pipelineBackoff  time.Duration
}

type Option func(*UseCases)

// WithNotifier enables email notifications. Without it, notification
// stages are skipped.
func WithNotifier(n interfaces.Notifier) Option {
	return func(uc *UseCases) {
		uc.notifier = n
	}
}

// WithPipelineRetry overrides the background pipeline retry policy
func WithPipelineRetry(attempts int, initialBackoff time.Duration) Option {
	return func(uc *UseCases) {
		uc.pipelineAttempts = attempts
		uc.pipelineBackoff = initialBackoff
	}
}

func New(
	repo interfaces.Repository,
	blobs interfaces.BlobStore,
	llm gollem.LLMClient,
	retrievalSvc *retrieval.Service,
	summarySvc *summary.Service,
	opts ...Option,
) *UseCases {
	uc := &UseCases{
		repo:             repo,
		blobs:            blobs,
		llm:              llm,
		retrieval:        retrievalSvc,
		summary:          summarySvc,
		tracker:          async.NewTracker(),
		pipelineAttempts: 3,
		pipelineBackoff:  time.Second,
	}

	for _, opt := range opts {
		opt(uc)
	}

	return uc
}

// Tracker exposes the background job tracker for shutdown draining
func (uc *UseCases) Tracker() *async.Tracker {
	return uc.tracker
}
