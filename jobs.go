package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Job statuses
const (
	jobPending    = "pending"
	jobInProgress = "in_progress"
	jobCompleted  = "completed"
	jobFailed     = "failed"
	jobCancelled  = "cancelled"
)

// jobFile is one uploaded page held in memory until the job runs.
type jobFile struct {
	Filename string
	Content  []byte
}

// Job represents a batch OCR job
type Job struct {
	ID         string
	Status     string
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
	PagesDone  int // Number of pages processed
	TotalPages int
	Options    recognizeOptions
	Results    []OCRResponse

	files  []jobFile
	cancel context.CancelFunc
}

// JobStore manages jobs and their statuses
type JobStore struct {
	sync.RWMutex
	jobs map[string]*Job
}

func newJobStore() *JobStore {
	return &JobStore{jobs: make(map[string]*Job)}
}

func generateJobID() string {
	return uuid.New().String()
}

func jobLogger(jobID string) *logrus.Entry {
	return log.WithField("job_id", jobID)
}

func (store *JobStore) addJob(job *Job) {
	store.Lock()
	defer store.Unlock()
	job.PagesDone = 0
	store.jobs[job.ID] = job
	jobLogger(job.ID).WithField("pages", job.TotalPages).Info("Job added")
}

// response snapshots a job for JSON output. Callers must hold the lock.
func (job *Job) response() JobResponse {
	resp := JobResponse{
		JobID:      job.ID,
		Status:     job.Status,
		CreatedAt:  job.CreatedAt,
		UpdatedAt:  job.UpdatedAt,
		PagesDone:  job.PagesDone,
		TotalPages: job.TotalPages,
		Error:      job.Error,
	}
	if job.Status == jobCompleted || job.Status == jobFailed {
		resp.Results = append([]OCRResponse(nil), job.Results...)
	}
	return resp
}

func (store *JobStore) getJob(jobID string) (JobResponse, bool) {
	store.RLock()
	defer store.RUnlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return JobResponse{}, false
	}
	return job.response(), true
}

// GetAllJobs returns every job, newest first
func (store *JobStore) GetAllJobs() []JobResponse {
	store.RLock()
	defer store.RUnlock()

	jobs := make([]JobResponse, 0, len(store.jobs))
	for _, job := range store.jobs {
		jobs = append(jobs, job.response())
	}

	sort.Slice(jobs, func(i, j int) bool {
		return jobs[i].CreatedAt.After(jobs[j].CreatedAt)
	})

	return jobs
}

func (store *JobStore) updateJobStatus(jobID, status, errMsg string) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.Status = status
		if errMsg != "" {
			job.Error = errMsg
		}
		job.UpdatedAt = time.Now()
		jobLogger(jobID).WithField("status", status).Info("Job status updated")
	}
}

func (store *JobStore) incrementPagesDone(jobID string) {
	store.Lock()
	defer store.Unlock()
	if job, exists := store.jobs[jobID]; exists {
		job.PagesDone++
		job.UpdatedAt = time.Now()
		jobLogger(jobID).Debugf("Pages done: %d/%d", job.PagesDone, job.TotalPages)
	}
}

// start moves a pending job to in_progress and registers its cancel func. It reports
// false when the job was stopped before a worker picked it up.
func (store *JobStore) start(jobID string, cancel context.CancelFunc) bool {
	store.Lock()
	defer store.Unlock()
	job, exists := store.jobs[jobID]
	if !exists || job.Status != jobPending {
		return false
	}
	job.Status = jobInProgress
	job.UpdatedAt = time.Now()
	job.cancel = cancel
	return true
}

// finish records the outcome and releases the uploaded content.
func (store *JobStore) finish(jobID, status string, results []OCRResponse, err error) {
	store.Lock()
	defer store.Unlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return
	}
	job.Status = status
	job.Results = results
	if err != nil {
		job.Error = err.Error()
	}
	job.files = nil
	job.cancel = nil
	job.UpdatedAt = time.Now()
}

var (
	errJobNotFound = errors.New("job not found")
	errJobFinished = errors.New("job already finished")
)

// stop cancels a running job or marks a queued one as cancelled.
func (store *JobStore) stop(jobID string) error {
	store.Lock()
	defer store.Unlock()
	job, exists := store.jobs[jobID]
	if !exists {
		return errJobNotFound
	}
	switch job.Status {
	case jobPending:
		job.Status = jobCancelled
		job.Error = "Job cancelled by user"
		job.files = nil
		job.UpdatedAt = time.Now()
	case jobInProgress:
		if job.cancel != nil {
			job.cancel()
		}
	default:
		return errJobFinished
	}
	return nil
}

// pages hands the uploaded files to the worker.
func (store *JobStore) pages(jobID string) []jobFile {
	store.RLock()
	defer store.RUnlock()
	if job, exists := store.jobs[jobID]; exists {
		return job.files
	}
	return nil
}

func (app *App) startWorkerPool(numWorkers int) {
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			log.Infof("Worker %d started", workerID)
			for job := range app.jobQueue {
				log.Infof("Worker %d processing job: %s", workerID, job.ID)
				app.processJob(job)
			}
		}(i)
	}
}

func (app *App) processJob(job *Job) {
	jobCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger := jobLogger(job.ID)
	if !app.jobs.start(job.ID, cancel) {
		logger.Info("Job no longer pending, skipping")
		return
	}

	results, err := app.processPages(jobCtx, job.ID, app.jobs.pages(job.ID), job.Options)
	switch {
	case jobCtx.Err() == context.Canceled:
		app.jobs.finish(job.ID, jobCancelled, results, errors.New("Job cancelled by user"))
		logger.Info("Job cancelled")
	case err != nil:
		app.jobs.finish(job.ID, jobFailed, results, err)
		logger.WithError(err).Error("Job failed")
	default:
		app.jobs.finish(job.ID, jobCompleted, results, nil)
		logger.Info("Job completed")
	}
}

// processPages recognizes every page with bounded concurrency. A failing page does not stop
// the others; all page errors are joined.
func (app *App) processPages(ctx context.Context, jobID string, files []jobFile, opts recognizeOptions) ([]OCRResponse, error) {
	results := make([]OCRResponse, len(files))
	pageErrs := make([]error, len(files))

	var g errgroup.Group
	g.SetLimit(max(app.pageConcurrency, 1))

	for i, file := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				pageErrs[i] = err
				results[i] = OCRResponse{Filename: file.Filename, Error: err.Error()}
				return nil
			}
			pageOpts := opts
			pageOpts.JobID = jobID
			pageOpts.PageNumber = i + 1

			resp, err := app.recognize(ctx, file.Content, file.Filename, pageOpts)
			if err != nil {
				pageErrs[i] = fmt.Errorf("page %d (%s): %w", i+1, file.Filename, err)
				results[i] = OCRResponse{Filename: file.Filename, Error: err.Error()}
				return nil
			}
			results[i] = *resp
			app.jobs.incrementPagesDone(jobID)
			return nil
		})
	}
	_ = g.Wait()

	return results, errors.Join(pageErrs...)
}
