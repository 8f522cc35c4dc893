package boombot

import "time"

// Observer receives pipeline events, typically to record metrics.
type Observer interface {
	ObserveSectorCheck(layer MatchLayer, matched bool)
	ObserveGeneration(provider string, code ErrorCode, elapsed time.Duration)
	ObserveParse(records int, fallback bool)
}

type nopObserver struct{}

func (nopObserver) ObserveSectorCheck(MatchLayer, bool) {}
func (nopObserver) ObserveGeneration(string, ErrorCode, time.Duration) {}
func (nopObserver) ObserveParse(int, bool) {}
