package job

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrJobNotFound       = errors.New("job not found")
	ErrNoPendingJobs     = errors.New("no pending jobs")
	ErrInvalidJobType    = errors.New("invalid job type")
	ErrInvalidStatus     = errors.New("invalid job status")
	ErrJobAlreadyStarted = errors.New("job already started")
	ErrJobNotRunning     = errors.New("job is not running")
)

type Status string

const (
	StatusCreated Status = "created"
	StatusRunning Status = "running"
	StatusFailed  Status = "failed"
	StatusSuccess Status = "success"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusCreated, StatusRunning, StatusFailed, StatusSuccess:
		return true
	}
	return false
}

// IsTerminal reports whether the job has finished.
func (s Status) IsTerminal() bool {
	return s == StatusFailed || s == StatusSuccess
}

type JobType string

const (
	JobTypeResearch JobType = "research"
	JobTypePentest  JobType = "pentest"
)

func (jt JobType) IsValid() bool {
	switch jt {
	case JobTypeResearch, JobTypePentest:
		return true
	}
	return false
}

// JSONMap is a JSON column.
type JSONMap map[string]interface{}

func (j JSONMap) Value() (driver.Value, error) {
	if j == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(j)
}

func (j *JSONMap) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*j = make(JSONMap)
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("failed to scan JSONMap: unsupported type %T", value)
	}
	var m map[string]interface{}
	if err := json.Unmarshal(raw, &m); err != nil {
		return err
	}
	*j = m
	return nil
}

// String returns the string stored under key, or "".
func (j JSONMap) String(key string) string {
	s, _ := j[key].(string)
	return s
}

// Bool returns the bool stored under key, or false.
func (j JSONMap) Bool(key string) bool {
	b, _ := j[key].(bool)
	return b
}

// Job is one queued research or pentest run.
type Job struct {
	ID        uuid.UUID  `json:"id" gorm:"type:char(36);primaryKey"`
	Type      JobType    `json:"type" gorm:"column:type;type:varchar(20);not null;index:idx_jobs_type"`
	Status    Status     `json:"status" gorm:"type:varchar(20);not null;default:'created';index:idx_jobs_status"`
	Config    JSONMap    `json:"config" gorm:"type:json"`
	Result    JSONMap    `json:"result" gorm:"type:json"`
	Error     string     `json:"error,omitempty" gorm:"type:text"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Duration  *int64     `json:"duration,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

func (j *Job) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusCreated
	}
	return nil
}

func (j *Job) Validate() error {
	if !j.Type.IsValid() {
		return ErrInvalidJobType
	}
	return nil
}

// Start marks the job as running.
func (j *Job) Start() error {
	if j.Status != StatusCreated {
		return ErrJobAlreadyStarted
	}
	now := time.Now()
	j.Status = StatusRunning
	j.StartTime = &now
	return nil
}

// Complete marks the job as finished. Only failed and success are accepted.
func (j *Job) Complete(status Status, result JSONMap, errMsg string) error {
	if !status.IsTerminal() {
		return ErrInvalidStatus
	}
	if j.Status != StatusRunning {
		return ErrJobNotRunning
	}
	now := time.Now()
	j.Status = status
	j.EndTime = &now
	j.Result = result
	j.Error = errMsg
	if j.StartTime != nil {
		duration := now.Sub(*j.StartTime).Milliseconds()
		j.Duration = &duration
	}
	return nil
}
