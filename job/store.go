package job

import (
	"context"

	"github.com/google/uuid"
)

type Store interface {
	Create(ctx context.Context, job *Job) error
	GetByID(ctx context.Context, id uuid.UUID) (*Job, error)
	Update(ctx context.Context, id uuid.UUID, setters ...UpdateSetter) error
	List(ctx context.Context, limit, offset int) ([]*Job, error)
	Count(ctx context.Context) (int, error)
	ListByType(ctx context.Context, jobType JobType, limit, offset int) ([]*Job, error)
	Start(ctx context.Context, id uuid.UUID) error
	Complete(ctx context.Context, id uuid.UUID, status Status, result JSONMap, errMsg string) error
	// ClaimNextCreated atomically moves the oldest created job to running
	// and returns it. ErrNoPendingJobs is returned when the queue is empty.
	ClaimNextCreated(ctx context.Context) (*Job, error)
}

type UpdateSetter func(*Job) error
