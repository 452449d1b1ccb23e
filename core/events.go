package core

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"trading_journal/models"
)

// AnalysisEvent published after an analysis completes.
type AnalysisEvent struct {
	ID          string                `json:"id,omitempty"`
	UserID      string                `json:"userId"`
	Symbols     []string              `json:"symbols"`
	Period      models.AnalysisPeriod `json:"period"`
	Metrics     models.TradeMetrics   `json:"metrics"`
	Status      string                `json:"status"`
	Model       string                `json:"model,omitempty"`
	TextSummary string                `json:"textSummary"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// Listener receives completed analyses; errors are logged and dropped.
type Listener interface {
	OnAnalysis(ctx context.Context, event AnalysisEvent) error
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc func(ctx context.Context, event AnalysisEvent) error

func (f ListenerFunc) OnAnalysis(ctx context.Context, event AnalysisEvent) error {
	return f(ctx, event)
}

func (a *PeriodAnalyzer) notify(ctx context.Context, event AnalysisEvent) {
	a.mu.RLock()
	listeners := append([]Listener(nil), a.listeners...)
	a.mu.RUnlock()

	for _, l := range listeners {
		go func(l Listener) {
			if err := l.OnAnalysis(ctx, event); err != nil {
				logrus.WithFields(logrus.Fields{
					"analysisId": event.ID,
					"userId":     event.UserID,
				}).WithError(err).Warn("analysis listener failed")
			}
		}(l)
	}
}
