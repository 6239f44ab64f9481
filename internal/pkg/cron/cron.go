package cron

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	robfig "github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// JobStatus is the outcome of the last run of a job.
type JobStatus string

const (
	StatusIdle    JobStatus = "idle"
	StatusRunning JobStatus = "running"
	StatusOK      JobStatus = "ok"
	StatusFailed  JobStatus = "failed"
)

// Job is a named task run on a cron spec ("@daily", "0 3 * * *").
type Job struct {
	Name        string
	Description string
	Spec        string
	Fn          func(ctx context.Context) error
}

type jobState struct {
	Job
	entry     robfig.EntryID
	mu        sync.Mutex
	status    JobStatus
	message   string
	lastRunAt *time.Time
}

// ListItem describes a registered job.
type ListItem struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	Spec        string     `json:"spec"`
	Status      JobStatus  `json:"status"`
	Message     string     `json:"message,omitempty"`
	NextRunAt   *time.Time `json:"nextRunAt,omitempty"`
	LastRunAt   *time.Time `json:"lastRunAt,omitempty"`
}

// Scheduler runs registered jobs on their specs. A job never overlaps
// itself; a tick that finds it running is skipped.
type Scheduler struct {
	cron *robfig.Cron
	log  *zap.Logger
	ctx  context.Context

	mu   sync.RWMutex
	jobs map[string]*jobState
}

func New(loc *time.Location, logger *zap.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		cron: robfig.New(robfig.WithLocation(loc)),
		log:  logger.Named("cron"),
		ctx:  context.Background(),
		jobs: make(map[string]*jobState),
	}
}

// Register adds job after validating its cron expression.
func (s *Scheduler) Register(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.jobs[job.Name]; ok {
		return fmt.Errorf("job %q already registered", job.Name)
	}
	js := &jobState{Job: job, status: StatusIdle}
	id, err := s.cron.AddFunc(job.Spec, func() { s.execute(js) })
	if err != nil {
		return fmt.Errorf("job %q: %w", job.Name, err)
	}
	js.entry = id
	s.jobs[job.Name] = js
	return nil
}

// Start runs the scheduler until ctx is done.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()
	s.cron.Start()
	go func() {
		<-ctx.Done()
		<-s.cron.Stop().Done()
	}()
}

func (s *Scheduler) execute(js *jobState) {
	js.mu.Lock()
	if js.status == StatusRunning {
		js.mu.Unlock()
		s.log.Warn("job still running, tick skipped", zap.String("job", js.Name))
		return
	}
	js.status = StatusRunning
	js.mu.Unlock()

	s.mu.RLock()
	ctx := s.ctx
	s.mu.RUnlock()

	started := time.Now()
	err := js.Fn(ctx)

	js.mu.Lock()
	js.lastRunAt = &started
	if err != nil {
		js.status = StatusFailed
		js.message = err.Error()
	} else {
		js.status = StatusOK
		js.message = ""
	}
	js.mu.Unlock()

	if err != nil {
		s.log.Warn("job failed", zap.String("job", js.Name), zap.Error(err))
		return
	}
	s.log.Info("job finished", zap.String("job", js.Name), zap.Duration("duration", time.Since(started)))
}

// Run triggers a job by name and waits for it.
func (s *Scheduler) Run(name string) error {
	s.mu.RLock()
	js, ok := s.jobs[name]
	s.mu.RUnlock()
	if !ok {
		return fmt.Errorf("job %q not found", name)
	}
	s.execute(js)
	js.mu.Lock()
	defer js.mu.Unlock()
	if js.status == StatusFailed {
		return fmt.Errorf("job %q: %s", name, js.message)
	}
	return nil
}

// List returns the registered jobs sorted by name.
func (s *Scheduler) List() []ListItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]ListItem, 0, len(s.jobs))
	for _, js := range s.jobs {
		var next *time.Time
		if entry := s.cron.Entry(js.entry); !entry.Next.IsZero() {
			n := entry.Next
			next = &n
		}
		js.mu.Lock()
		items = append(items, ListItem{
			Name:        js.Name,
			Description: js.Description,
			Spec:        js.Spec,
			Status:      js.status,
			Message:     js.message,
			NextRunAt:   next,
			LastRunAt:   js.lastRunAt,
		})
		js.mu.Unlock()
	}
	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items
}
