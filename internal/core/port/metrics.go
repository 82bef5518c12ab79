package port

import (
	"tiffsrv/internal/core/domain"
	"time"
)

type Metrics interface {
	ObserveConversion(outcome domain.Outcome, skipped bool, elapsed time.Duration)
	ObserveDeletion(outcome domain.Outcome)
	ObserveFetch(bytes int64, err error)
}
