package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/ohacker/job"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"github.com/hairizuanbinnoorazman/ohacker/pentest"
	"github.com/hairizuanbinnoorazman/ohacker/research"
	"github.com/hairizuanbinnoorazman/ohacker/telemetry"
)

// Researcher runs one research query.
type Researcher interface {
	Run(ctx context.Context, query string) (*research.Result, error)
}

// Pentester runs one pentest.
type Pentester interface {
	Run(ctx context.Context) (*pentest.Report, error)
}

// PentesterFactory builds a Pentester bound to targetURL. Every job gets
// its own, so no two jobs share a browser session.
type PentesterFactory func(targetURL string) Pentester

// Config bounds pipeline runs.
type Config struct {
	TimeLimit time.Duration
}

// Pipeline executes claimed jobs and records their outcome.
type Pipeline struct {
	config       Config
	jobStore     job.Store
	researcher   Researcher
	newPentester PentesterFactory
	logger       logger.Logger
}

// NewPipeline creates a new job pipeline.
func NewPipeline(config Config, jobStore job.Store, researcher Researcher, newPentester PentesterFactory, log logger.Logger) *Pipeline {
	if config.TimeLimit <= 0 {
		config.TimeLimit = 30 * time.Minute
	}
	return &Pipeline{
		config:       config,
		jobStore:     jobStore,
		researcher:   researcher,
		newPentester: newPentester,
		logger:       log,
	}
}

// Run starts the job and executes it.
func (p *Pipeline) Run(ctx context.Context, jobID uuid.UUID) {
	if err := p.jobStore.Start(ctx, jobID); err != nil {
		p.failJob(ctx, jobID, fmt.Sprintf("failed to start job: %v", err))
		return
	}
	j, err := p.jobStore.GetByID(ctx, jobID)
	if err != nil {
		p.failJob(ctx, jobID, fmt.Sprintf("failed to fetch job: %v", err))
		return
	}
	p.RunAfterClaim(ctx, j)
}

// RunAfterClaim executes a job that is already running.
func (p *Pipeline) RunAfterClaim(ctx context.Context, j *job.Job) {
	ctx, span := telemetry.StartSpan(ctx, "job "+string(j.Type), telemetry.AttrJobID.String(j.ID.String()))
	defer span.End()

	log := p.logger.WithFields(map[string]interface{}{
		"job_id": j.ID.String(),
		"type":   string(j.Type),
	})
	log.Info(ctx, "starting job pipeline", nil)

	ctx, cancel := context.WithTimeout(ctx, p.config.TimeLimit)
	defer cancel()

	var (
		result job.JSONMap
		err    error
	)
	switch j.Type {
	case job.JobTypeResearch:
		result, err = p.runResearch(ctx, j.Config.String("query"))
	case job.JobTypePentest:
		result, err = p.runPentest(ctx, j.Config)
	default:
		err = fmt.Errorf("%w: %s", job.ErrInvalidJobType, j.Type)
	}
	if err != nil {
		telemetry.RecordError(ctx, err)
		p.failJob(ctx, j.ID, err.Error())
		return
	}

	if err := p.jobStore.Complete(context.WithoutCancel(ctx), j.ID, job.StatusSuccess, result, ""); err != nil {
		log.Error(ctx, "failed to mark job as success", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}
	log.Info(ctx, "job pipeline completed successfully", nil)
}

func (p *Pipeline) runResearch(ctx context.Context, query string) (job.JSONMap, error) {
	res, err := p.researcher.Run(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("research failed: %w", err)
	}
	return researchResult(res), nil
}

func (p *Pipeline) runPentest(ctx context.Context, cfg job.JSONMap) (job.JSONMap, error) {
	report, err := p.newPentester(cfg.String("target_url")).Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("pentest failed: %w", err)
	}

	result := job.JSONMap{
		"summary":         report.SummaryText(),
		"has_summary":     report.Summary != nil,
		"final_url":       report.FinalURL,
		"turns":           report.Turns,
		"turns_exhausted": report.TurnsExhausted,
	}
	if !cfg.Bool("research") {
		return result, nil
	}

	// a missing summary is researched as an empty query
	res, err := p.researcher.Run(ctx, report.SummaryText())
	if err != nil {
		return nil, fmt.Errorf("research after pentest failed: %w", err)
	}
	for k, v := range researchResult(res) {
		result[k] = v
	}
	return result, nil
}

func researchResult(res *research.Result) job.JSONMap {
	out := job.JSONMap{
		"trace_id":        res.TraceID,
		"searches":        len(res.Plan.Queries()),
		"search_results":  len(res.SearchResults),
		"report_location": res.ReportLocation,
	}
	if res.Report != nil {
		out["short_summary"] = res.Report.ShortSummary
		out["markdown_report"] = res.Report.MarkdownReport
	}
	return out
}

// failJob marks a job as failed with the given reason.
func (p *Pipeline) failJob(ctx context.Context, jobID uuid.UUID, reason string) {
	ctx = context.WithoutCancel(ctx)
	p.logger.Error(ctx, "job pipeline failed", map[string]interface{}{
		"job_id": jobID.String(),
		"reason": reason,
	})

	if err := p.jobStore.Complete(ctx, jobID, job.StatusFailed, nil, reason); err != nil {
		// the job never reached running
		if err2 := p.jobStore.Update(ctx, jobID, job.SetStatus(job.StatusFailed), job.SetError(reason)); err2 != nil {
			p.logger.Error(ctx, "failed to mark job as failed", map[string]interface{}{
				"error":  err2.Error(),
				"job_id": jobID.String(),
			})
		}
	}
}
