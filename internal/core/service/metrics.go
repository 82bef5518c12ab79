package service

import (
	"tiffsrv/internal/core/domain"
	"time"
)

type nopMetrics struct{}

func (nopMetrics) ObserveConversion(domain.Outcome, bool, time.Duration) {}

func (nopMetrics) ObserveDeletion(domain.Outcome) {}

func (nopMetrics) ObserveFetch(int64, error) {}
