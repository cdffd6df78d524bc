package job

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/hairizuanbinnoorazman/ohacker/logger"
	"gorm.io/gorm"
)

// GormStore implements Store on top of GORM (MySQL or SQLite).
type GormStore struct {
	db     *gorm.DB
	logger logger.Logger
}

// NewGormStore creates a new GORM-backed job store.
func NewGormStore(db *gorm.DB, log logger.Logger) *GormStore {
	return &GormStore{
		db:     db,
		logger: log,
	}
}

// Create creates a new job in the database.
func (s *GormStore) Create(ctx context.Context, j *Job) error {
	if err := j.Validate(); err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Create(j).Error; err != nil {
		s.logger.Error(ctx, "failed to create job", map[string]interface{}{
			"error": err.Error(),
			"type":  string(j.Type),
		})
		return err
	}

	s.logger.Info(ctx, "job created", map[string]interface{}{
		"job_id": j.ID.String(),
		"type":   string(j.Type),
	})
	return nil
}

// GetByID retrieves a job by its ID.
func (s *GormStore) GetByID(ctx context.Context, id uuid.UUID) (*Job, error) {
	var j Job
	err := s.db.WithContext(ctx).
		Where("id = ?", id).
		First(&j).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrJobNotFound
		}
		s.logger.Error(ctx, "failed to get job by ID", map[string]interface{}{
			"error":  err.Error(),
			"job_id": id.String(),
		})
		return nil, err
	}
	return &j, nil
}

// Update applies setters to a job and saves it.
func (s *GormStore) Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error {
	j, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	for _, setter := range setters {
		if err := setter(j); err != nil {
			return err
		}
	}

	if err := s.db.WithContext(ctx).Save(j).Error; err != nil {
		s.logger.Error(ctx, "failed to update job", map[string]interface{}{
			"error":  err.Error(),
			"job_id": id.String(),
		})
		return err
	}
	return nil
}

// List returns jobs newest first.
func (s *GormStore) List(ctx context.Context, limit, offset int) ([]*Job, error) {
	return s.page(ctx, nil, limit, offset)
}

// Count returns the total number of jobs.
func (s *GormStore) Count(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&Job{}).Count(&count).Error; err != nil {
		s.logger.Error(ctx, "failed to count jobs", map[string]interface{}{
			"error": err.Error(),
		})
		return 0, err
	}
	return int(count), nil
}

// ListByType returns jobs of one type, newest first.
func (s *GormStore) ListByType(ctx context.Context, jobType JobType, limit, offset int) ([]*Job, error) {
	return s.page(ctx, map[string]interface{}{"type": jobType}, limit, offset)
}

func (s *GormStore) page(ctx context.Context, where map[string]interface{}, limit, offset int) ([]*Job, error) {
	q := s.db.WithContext(ctx)
	if len(where) > 0 {
		q = q.Where(where)
	}
	var jobs []*Job
	if err := q.Order("created_at DESC").Limit(limit).Offset(offset).Find(&jobs).Error; err != nil {
		fields := map[string]interface{}{
			"error":  err.Error(),
			"limit":  limit,
			"offset": offset,
		}
		for k, v := range where {
			fields[k] = v
		}
		s.logger.Error(ctx, "failed to list jobs", fields)
		return nil, err
	}
	return jobs, nil
}

// Start marks a job as running.
func (s *GormStore) Start(ctx context.Context, id uuid.UUID) error {
	err := s.transition(ctx, id, (*Job).Start)
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) && !errors.Is(err, ErrJobAlreadyStarted) {
			s.logger.Error(ctx, "failed to start job", map[string]interface{}{
				"error":  err.Error(),
				"job_id": id.String(),
			})
		}
		return err
	}

	s.logger.Info(ctx, "job started", map[string]interface{}{
		"job_id": id.String(),
	})
	return nil
}

// Complete marks a job as finished with the given status and result.
func (s *GormStore) Complete(ctx context.Context, id uuid.UUID, status Status, result JSONMap, errMsg string) error {
	err := s.transition(ctx, id, func(j *Job) error {
		return j.Complete(status, result, errMsg)
	})
	if err != nil {
		if !errors.Is(err, ErrJobNotFound) && !errors.Is(err, ErrJobNotRunning) {
			s.logger.Error(ctx, "failed to complete job", map[string]interface{}{
				"error":  err.Error(),
				"job_id": id.String(),
				"status": string(status),
			})
		}
		return err
	}

	s.logger.Info(ctx, "job completed", map[string]interface{}{
		"job_id": id.String(),
		"status": string(status),
	})
	return nil
}

// transition loads, mutates and saves a job inside one transaction.
func (s *GormStore) transition(ctx context.Context, id uuid.UUID, apply func(*Job) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var j Job
		if err := tx.First(&j, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrJobNotFound
			}
			return err
		}
		if err := apply(&j); err != nil {
			return err
		}
		return tx.Save(&j).Error
	})
}

// ClaimNextCreated moves the oldest created job to running. The status
// guard on the update keeps two workers from claiming the same job.
func (s *GormStore) ClaimNextCreated(ctx context.Context) (*Job, error) {
	for {
		var j Job
		err := s.db.WithContext(ctx).
			Where("status = ?", StatusCreated).
			Order("created_at ASC").
			First(&j).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoPendingJobs
			}
			s.logger.Error(ctx, "failed to find pending job", map[string]interface{}{
				"error": err.Error(),
			})
			return nil, err
		}

		now := time.Now()
		res := s.db.WithContext(ctx).
			Model(&Job{}).
			Where("id = ? AND status = ?", j.ID, StatusCreated).
			Updates(map[string]interface{}{
				"status":     StatusRunning,
				"start_time": now,
			})
		if res.Error != nil {
			s.logger.Error(ctx, "failed to claim job", map[string]interface{}{
				"error":  res.Error.Error(),
				"job_id": j.ID.String(),
			})
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			continue
		}

		j.Status = StatusRunning
		j.StartTime = &now
		s.logger.Info(ctx, "job claimed", map[string]interface{}{
			"job_id": j.ID.String(),
			"type":   string(j.Type),
		})
		return &j, nil
	}
}
