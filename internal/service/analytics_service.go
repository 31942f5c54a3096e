package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"threadcraft/internal/analytics"
	"threadcraft/internal/core/ports"
	"threadcraft/internal/domain"
	"threadcraft/internal/engine"
)

const (
	ReportPerformance     = "performance"
	ReportPatterns        = "patterns"
	ReportPredictive      = "predictive"
	ReportRecommendations = "recommendations"
)

// Reports lists every report the analytics service can build.
var Reports = []string{ReportPerformance, ReportPatterns, ReportPredictive, ReportRecommendations}

type AnalyticsService interface {
	Performance(ctx context.Context, workflowType string) (analytics.WorkflowMetrics, error)
	Patterns(ctx context.Context, workflowType string) (analytics.TransitionPatterns, error)
	Predictive(ctx context.Context, workflowType string) (analytics.PredictiveAnalytics, error)
	Recommendations(ctx context.Context, workflowType string) ([]analytics.BusinessInsight, error)

	// Refresh recomputes one report, bypassing and then updating the cache.
	Refresh(ctx context.Context, report, workflowType string) error
}

// ReportObserver is told how long each computation took.
type ReportObserver interface {
	ObserveReport(report, workflowType string, took time.Duration)
}

type analyticsService struct {
	analyzer *analytics.Analyzer
	source   ports.SnapshotSource
	cache    ports.ReportCache
	observer ReportObserver
	logger   *slog.Logger

	ttl    time.Duration
	window time.Duration
	now    func() time.Time
}

type AnalyticsConfig struct {
	// CacheTTL is how long cached reports are served. Zero disables caching.
	CacheTTL time.Duration
	// Window limits snapshots to workflows created in the trailing window plus every
	// workflow still open. Zero loads all.
	Window time.Duration
}

// NewAnalyticsService builds the service. cache and observer may be nil.
func NewAnalyticsService(analyzer *analytics.Analyzer, source ports.SnapshotSource, cache ports.ReportCache, observer ReportObserver, cfg AnalyticsConfig, logger *slog.Logger) AnalyticsService {
	return &analyticsService{
		analyzer: analyzer,
		source:   source,
		cache:    cache,
		observer: observer,
		logger:   logger,
		ttl:      cfg.CacheTTL,
		window:   cfg.Window,
		now:      time.Now,
	}
}

func (s *analyticsService) Performance(ctx context.Context, workflowType string) (analytics.WorkflowMetrics, error) {
	return cachedReport(ctx, s, ReportPerformance, workflowType, false, s.analyzer.AnalyzeWorkflowPerformance)
}

func (s *analyticsService) Patterns(ctx context.Context, workflowType string) (analytics.TransitionPatterns, error) {
	return cachedReport(ctx, s, ReportPatterns, workflowType, false, s.analyzer.AnalyzeTransitionPatterns)
}

func (s *analyticsService) Predictive(ctx context.Context, workflowType string) (analytics.PredictiveAnalytics, error) {
	return cachedReport(ctx, s, ReportPredictive, workflowType, false, s.analyzer.GeneratePredictiveAnalytics)
}

func (s *analyticsService) Recommendations(ctx context.Context, workflowType string) ([]analytics.BusinessInsight, error) {
	return cachedReport(ctx, s, ReportRecommendations, workflowType, false, s.analyzer.GenerateOptimizationRecommendations)
}

func (s *analyticsService) Refresh(ctx context.Context, report, workflowType string) error {
	var err error
	switch report {
	case ReportPerformance:
		_, err = cachedReport(ctx, s, report, workflowType, true, s.analyzer.AnalyzeWorkflowPerformance)
	case ReportPatterns:
		_, err = cachedReport(ctx, s, report, workflowType, true, s.analyzer.AnalyzeTransitionPatterns)
	case ReportPredictive:
		_, err = cachedReport(ctx, s, report, workflowType, true, s.analyzer.GeneratePredictiveAnalytics)
	case ReportRecommendations:
		_, err = cachedReport(ctx, s, report, workflowType, true, s.analyzer.GenerateOptimizationRecommendations)
	default:
		err = fmt.Errorf("unknown report %q", report)
	}
	return err
}

func (s *analyticsService) snapshots(ctx context.Context, workflowType string) ([]domain.WorkflowState, error) {
	var rng domain.DateRange
	if s.window > 0 {
		def, err := s.analyzer.Definition(workflowType)
		if err != nil {
			return nil, err
		}
		rng.From = s.now().Add(-s.window)
		rng.OpenSteps = def.OpenSteps()
	}
	states, err := s.source.ListSnapshots(ctx, workflowType, rng)
	if err != nil {
		return nil, fmt.Errorf("load %s snapshots: %w", workflowType, err)
	}
	return states, nil
}

// cachedReport serves report from the cache unless refresh is set, otherwise computes it
// from fresh snapshots and stores the result. Cache failures degrade to computing.
func cachedReport[T any](
	ctx context.Context,
	s *analyticsService,
	report, workflowType string,
	refresh bool,
	compute func([]domain.WorkflowState, string) (T, error),
) (T, error) {
	var zero T
	useCache := s.cache != nil && s.ttl > 0

	if useCache && !refresh {
		payload, ok, err := s.cache.Get(ctx, report, workflowType)
		switch {
		case err != nil:
			s.logger.WarnContext(ctx, "report cache read failed", "report", report, "workflow_type", workflowType, "error", err)
		case ok:
			var out T
			if err := json.Unmarshal(payload, &out); err == nil {
				return out, nil
			}
			s.logger.WarnContext(ctx, "discarding undecodable cached report", "report", report, "workflow_type", workflowType)
		}
	}

	states, err := s.snapshots(ctx, workflowType)
	if err != nil {
		return zero, err
	}

	start := time.Now()
	out, err := compute(states, workflowType)
	if err != nil {
		return zero, err
	}
	if s.observer != nil {
		s.observer.ObserveReport(report, workflowType, time.Since(start))
	}

	if useCache {
		payload, err := json.Marshal(out)
		if err == nil {
			err = s.cache.Set(ctx, report, workflowType, payload, s.ttl)
		}
		if err != nil {
			s.logger.WarnContext(ctx, "report cache write failed", "report", report, "workflow_type", workflowType, "error", err)
		}
	}
	return out, nil
}

// engineSnapshotSource serves analytics straight from the engine when no durable
// store is configured.
type engineSnapshotSource struct {
	engine *engine.Engine
}

func NewEngineSnapshotSource(e *engine.Engine) ports.SnapshotSource {
	return &engineSnapshotSource{engine: e}
}

func (s *engineSnapshotSource) ListSnapshots(ctx context.Context, workflowType string, rng domain.DateRange) ([]domain.WorkflowState, error) {
	all := s.engine.Snapshots(workflowType)
	out := make([]domain.WorkflowState, 0, len(all))
	for _, state := range all {
		if rng.Includes(state) {
			out = append(out, state)
		}
	}
	return out, nil
}
