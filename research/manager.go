package research

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/storage"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// DefaultReportName is the artifact the markdown report is written to.
const DefaultReportName = "report.md"

var (
	ErrPlanFailed    = errors.New("planning failed")
	ErrWriteFailed   = errors.New("report writing failed")
	ErrPersistFailed = errors.New("report persistence failed")
)

// Result is everything a research run produced.
type Result struct {
	TraceID        string
	Plan           *SearchPlan
	SearchResults  []string
	Report         *ReportArtifact
	ReportLocation string
}

// Manager sequences plan, search and write for one query.
type Manager struct {
	planner    Planner
	searcher   Searcher
	writer     Writer
	store      storage.ArtifactStore
	reportName string
	logger     logger.Logger
}

// NewManager creates a Manager. An empty reportName selects DefaultReportName.
func NewManager(planner Planner, searcher Searcher, writer Writer, store storage.ArtifactStore, reportName string, log logger.Logger) *Manager {
	if reportName == "" {
		reportName = DefaultReportName
	}
	return &Manager{
		planner:    planner,
		searcher:   searcher,
		writer:     writer,
		store:      store,
		reportName: reportName,
		logger:     log,
	}
}

// Run researches query and persists the markdown report. Nothing is
// written when planning or writing fails. query may be empty.
func (m *Manager) Run(ctx context.Context, query string) (*Result, error) {
	traceID := uuid.New().String()
	ctx, span := telemetry.StartSpan(ctx, "Research trace",
		telemetry.AttrTraceID.String(traceID),
		telemetry.AttrQuery.String(query),
	)
	defer span.End()

	log := m.logger.WithField("research_trace_id", traceID)
	log.Info(ctx, "research started", map[string]interface{}{"query": query})

	res := &Result{TraceID: traceID}

	plan, err := m.planner.Plan(ctx, query)
	if err != nil {
		return nil, m.fail(ctx, log, span, fmt.Errorf("%w: %w", ErrPlanFailed, err))
	}
	if plan == nil {
		plan = &SearchPlan{}
	}
	res.Plan = plan
	log.Info(ctx, "searches planned", map[string]interface{}{
		"count":   len(plan.Searches),
		"queries": plan.Queries(),
	})

	res.SearchResults = FanOut(ctx, m.searcher, plan, log)

	report, err := m.writer.Write(ctx, query, res.SearchResults)
	if err != nil {
		return nil, m.fail(ctx, log, span, fmt.Errorf("%w: %w", ErrWriteFailed, err))
	}
	if report == nil {
		return nil, m.fail(ctx, log, span, fmt.Errorf("%w: writer returned no report", ErrWriteFailed))
	}
	res.Report = report

	if err := m.store.Put(ctx, m.reportName, []byte(report.MarkdownReport)); err != nil {
		return res, m.fail(ctx, log, span, fmt.Errorf("%w: %w", ErrPersistFailed, err))
	}
	if loc, err := m.store.Location(ctx, m.reportName); err == nil {
		res.ReportLocation = loc
	}

	log.Info(ctx, "research finished", map[string]interface{}{
		"report":  m.reportName,
		"results": len(res.SearchResults),
	})
	return res, nil
}

func (m *Manager) fail(ctx context.Context, log logger.Logger, span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	log.Error(ctx, "research failed", map[string]interface{}{"error": err.Error()})
	return err
}
