package api

import (
	"github.com/google/uuid"

	"github.com/JaimeStill/racksmith/internal/analysis"
	"github.com/JaimeStill/racksmith/internal/batches"
	"github.com/JaimeStill/racksmith/internal/racks"
	"github.com/JaimeStill/racksmith/internal/workflow"
	"github.com/JaimeStill/racksmith/pkg/locks"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Racks    racks.System
	Source   *racks.Source
	Analysis analysis.System
	Batches  batches.System
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(runtime *Runtime) *Domain {
	db := runtime.Database.Connection()

	racksSystem := racks.New(db, runtime.Logger, runtime.Pagination)
	source := racks.NewSource(racksSystem, runtime.Storage)

	analysisSystem := analysis.New(analysis.Deps{
		Store: analysis.NewStore(db, runtime.Pagination),
		Runtime: &workflow.Runtime{
			Source: source,
			Limits: runtime.Analysis.Limits(),
			Chains: runtime.Analysis.ChainOptions(),
			Logger: runtime.Logger.With("system", "workflow"),
		},
		Policies:   runtime.Policies,
		Locks:      locks.New[uuid.UUID](runtime.Analysis.LockTTLDuration()),
		Metrics:    runtime.Metrics,
		Logger:     runtime.Logger,
		Pagination: runtime.Pagination,
	})

	batchesSystem := batches.New(batches.Deps{
		Store:      batches.NewStore(db, runtime.Pagination),
		Analyzer:   analysisSystem,
		Authorizer: racksSystem,
		Notifier:   notifier(runtime),
		Metrics:    runtime.Metrics,
		Logger:     runtime.Logger,
		Pagination: runtime.Pagination,
		Limits: batches.Limits{
			Workers:          runtime.Scheduler.Workers,
			QueueCapacity:    runtime.Scheduler.QueueCapacity,
			MaxBatchSize:     runtime.Scheduler.MaxBatchSize,
			ActiveLimit:      runtime.Scheduler.ActiveLimit,
			AdminActiveLimit: runtime.Scheduler.AdminActiveLimit,
			RetryBackoff:     runtime.Scheduler.RetryBackoffDuration(),
		},
	})

	return &Domain{
		Racks:    racksSystem,
		Source:   source,
		Analysis: analysisSystem,
		Batches:  batchesSystem,
	}
}

func notifier(runtime *Runtime) batches.Notifier {
	if url := runtime.Scheduler.WebhookURL; url != "" {
		return batches.NewWebhookNotifier(url, runtime.Scheduler.WebhookTimeoutDuration())
	}
	return batches.NewLogNotifier(runtime.Logger.With("notifier", "log"))
}
