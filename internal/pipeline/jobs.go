package pipeline

import (
	"sync"
	"time"

	"github.com/dgallion1/docfill/internal/fill"
	"github.com/google/uuid"
)

// JobStatus represents the state of a batch fill job.
type JobStatus string

const (
	StatusQueued     JobStatus = "queued"
	StatusParsing    JobStatus = "parsing"
	StatusFilling    JobStatus = "filling"
	StatusConverting JobStatus = "converting"
	StatusPackaging  JobStatus = "packaging"
	StatusCompleted  JobStatus = "completed"
	StatusFailed     JobStatus = "failed"
	StatusPartial    JobStatus = "partial"
)

// Done reports whether the status is terminal.
func (s JobStatus) Done() bool {
	return s == StatusCompleted || s == StatusFailed || s == StatusPartial
}

// PackageMode selects what a finished job hands back.
type PackageMode string

const (
	// PackageNone leaves the per-record files in the job directory.
	PackageNone PackageMode = "none"
	// PackageZip bundles the per-record files into documents.zip.
	PackageZip PackageMode = "zip"
	// PackageMerge concatenates the per-record PDFs into merged.pdf.
	PackageMerge PackageMode = "merge"
)

// Job tracks the state of one template + data file run.
type Job struct {
	mu sync.Mutex

	ID string `json:"job_id"`

	Status JobStatus `json:"status"`
	Phase  string    `json:"phase"`

	TemplateName string      `json:"template"`
	DataName     string      `json:"data"`
	Compact      bool        `json:"compact"`
	PDF          bool        `json:"pdf"`
	Package      PackageMode `json:"package"`

	Progress Progress `json:"progress"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Internal: not serialized.
	dir          string
	templateData []byte
	data         []byte
	results      []RecordResult
	resultPath   string
	errors       []string
}

// Progress tracks processing progress.
type Progress struct {
	TotalRecords int      `json:"total_records"`
	Filled       int      `json:"filled"`
	Converted    int      `json:"converted"`
	Errors       []string `json:"errors"`
}

// RecordResult is the outcome for one data record.
type RecordResult struct {
	Index  int          `json:"index"`
	Name   string       `json:"name"`
	Docx   string       `json:"docx,omitempty"`
	PDF    string       `json:"pdf,omitempty"`
	Report *fill.Report `json:"report,omitempty"`
	Error  string       `json:"error,omitempty"`
}

// NewJob creates a queued job writing into dir.
func NewJob(templateName, dataName, dir string) *Job {
	now := time.Now()
	return &Job{
		ID:           uuid.NewString(),
		Status:       StatusQueued,
		Phase:        "queued",
		TemplateName: templateName,
		DataName:     dataName,
		Package:      PackageZip,
		CreatedAt:    now,
		UpdatedAt:    now,
		dir:          dir,
	}
}

// JobStore is a thread-safe in-memory job registry with TTL eviction.
type JobStore struct {
	mu   sync.Mutex
	jobs map[string]*Job
	ttl  time.Duration
}

func NewJobStore(ttl time.Duration) *JobStore {
	return &JobStore{
		jobs: make(map[string]*Job),
		ttl:  ttl,
	}
}

func (s *JobStore) Put(job *Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = job
}

func (s *JobStore) Get(id string) *Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.jobs[id]
}

func (s *JobStore) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.jobs, id)
}

// Len returns the number of tracked jobs.
func (s *JobStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.jobs)
}

// Cleanup removes finished jobs that have not changed within the TTL and
// returns them so their files can be released.
func (s *JobStore) Cleanup() []*Job {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	var evicted []*Job
	for id, job := range s.jobs {
		job.mu.Lock()
		expired := now.Sub(job.UpdatedAt) > s.ttl && job.Status.Done()
		job.mu.Unlock()
		if expired {
			delete(s.jobs, id)
			evicted = append(evicted, job)
		}
	}
	return evicted
}

// SetStatus updates job status atomically.
func (j *Job) SetStatus(status JobStatus, phase string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Status = status
	j.Phase = phase
	j.UpdatedAt = time.Now()
}

// AddError records an error.
func (j *Job) AddError(err string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.errors = append(j.errors, err)
	j.Progress.Errors = j.errors
	j.UpdatedAt = time.Now()
}

// SetTotalRecords records the number of records to fill.
func (j *Job) SetTotalRecords(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.TotalRecords = n
	j.UpdatedAt = time.Now()
}

// IncrFilled atomically increments the filled count.
func (j *Job) IncrFilled() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Filled++
	j.UpdatedAt = time.Now()
}

// IncrConverted atomically increments the converted count.
func (j *Job) IncrConverted() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Progress.Converted++
	j.UpdatedAt = time.Now()
}

// SetInputs sets the uploaded template and data bytes.
func (j *Job) SetInputs(template, data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.templateData = template
	j.data = data
}

// Inputs returns the uploaded template and data bytes.
func (j *Job) Inputs() (template, data []byte) {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.templateData, j.data
}

// releaseInputs drops the upload bytes once they are on disk.
func (j *Job) releaseInputs() {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.templateData = nil
	j.data = nil
}

// Dir returns the job's working directory.
func (j *Job) Dir() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.dir
}

func (j *Job) setDir(dir string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.dir = dir
}

func (j *Job) setResults(results []RecordResult) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.results = append([]RecordResult(nil), results...)
	j.UpdatedAt = time.Now()
}

// Results returns a copy of the per-record outcomes.
func (j *Job) Results() []RecordResult {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]RecordResult(nil), j.results...)
}

func (j *Job) setResultPath(path string) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.resultPath = path
	j.UpdatedAt = time.Now()
}

// ResultPath returns the packaged output, or "" when there is none.
func (j *Job) ResultPath() string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.resultPath
}

// JobSnapshot is a read-only, JSON-safe copy of job state.
type JobSnapshot struct {
	ID           string      `json:"job_id"`
	Status       JobStatus   `json:"status"`
	Phase        string      `json:"phase"`
	TemplateName string      `json:"template"`
	DataName     string      `json:"data"`
	Compact      bool        `json:"compact"`
	PDF          bool        `json:"pdf"`
	Package      PackageMode `json:"package"`
	Progress     Progress    `json:"progress"`
	Downloadable bool        `json:"downloadable"`
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}

// Snapshot returns a JSON-safe copy of the job state.
func (j *Job) Snapshot() JobSnapshot {
	j.mu.Lock()
	defer j.mu.Unlock()
	errs := append([]string{}, j.Progress.Errors...)
	return JobSnapshot{
		ID:           j.ID,
		Status:       j.Status,
		Phase:        j.Phase,
		TemplateName: j.TemplateName,
		DataName:     j.DataName,
		Compact:      j.Compact,
		PDF:          j.PDF,
		Package:      j.Package,
		Progress: Progress{
			TotalRecords: j.Progress.TotalRecords,
			Filled:       j.Progress.Filled,
			Converted:    j.Progress.Converted,
			Errors:       errs,
		},
		Downloadable: j.resultPath != "",
		CreatedAt:    j.CreatedAt,
		UpdatedAt:    j.UpdatedAt,
	}
}
