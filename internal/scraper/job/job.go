package job

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

// DefaultThrottle is the fixed inter-page delay. It keeps the loop from
// overwhelming the remote service and is also the only point where
// cancellation is observed.
const DefaultThrottle = 400 * time.Millisecond

// Fetcher requests one page of purchase history.
type Fetcher interface {
	FetchPage(ctx context.Context, cred appstore.Credential, cursor *string) (*appstore.Page, error)
}

// Results is the postprocessed output of a run. Populated on both
// FINISHED and ABORTED: partial results are surfaced exactly like a
// successful-but-incomplete run, distinguished only by state.
type Results struct {
	Purchases   []appstore.Purchase
	TotalAmount appstore.AggregateTotal
}

// Job is one run-to-completion fetch of a context's purchase ledger.
// Strictly sequential: no two page requests are ever in flight at once.
type Job struct {
	ID        uuid.UUID
	ContextID string

	client   Fetcher
	cred     appstore.Credential
	throttle time.Duration

	// called after every successful page beyond the first
	onProgress func(percent int)

	mu         sync.Mutex
	state      State
	history    *appstore.History
	results    *Results
	cancel     context.CancelFunc
	abortEarly bool
}

type Option func(*Job)

func WithThrottle(d time.Duration) Option {
	return func(j *Job) { j.throttle = d }
}

func WithProgress(fn func(percent int)) Option {
	return func(j *Job) { j.onProgress = fn }
}

// New allocates a NOT_STARTED job holding its own copy of the
// credential.
func New(contextID string, cred appstore.Credential, client Fetcher, opts ...Option) *Job {
	j := &Job{
		ID:        uuid.New(),
		ContextID: contextID,
		client:    client,
		cred:      cred.Clone(),
		throttle:  DefaultThrottle,
		state:     StateNotStarted,
		history:   appstore.NewHistory(),
	}
	for _, opt := range opts {
		opt(j)
	}
	return j
}

func (j *Job) State() State {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.state
}

// Results returns the postprocessed output, nil until the job reaches a
// terminal state.
func (j *Job) Results() *Results {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.results
}

// Abort requests cooperative cancellation. The loop observes it only
// between pages; an in-flight request is not preempted and its result,
// if it arrives, is discarded. A no-op unless the job is RUNNING.
func (j *Job) Abort() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateRunning {
		return
	}
	if j.cancel == nil {
		// Acquired but execute has not installed its cancel yet.
		j.abortEarly = true
		return
	}
	j.cancel()
}

// Start runs the retrieval loop to completion. Blocking; callers
// wanting concurrency run it in a goroutine. Natural completion (nil
// next cursor) finishes, any network/parse/continuity error or
// cancellation aborts. No retries either way, and whatever partial
// ledger was accumulated is postprocessed into Results.
func (j *Job) Start(ctx context.Context) error {
	if err := j.acquire(); err != nil {
		return err
	}
	return j.execute(ctx)
}

// acquire claims the job by moving it to RUNNING. Callers holding a
// lock that serializes job creation can acquire before releasing it,
// so a racing Start can never see the job still unstarted.
func (j *Job) acquire() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.state != StateNotStarted {
		return &appstore.ScrapeError{
			ContextID: j.ContextID,
			Operation: "Start",
			Cause:     appstore.ErrConcurrentJob,
			Details:   "job is " + j.state.String(),
		}
	}
	j.state = StateRunning
	return nil
}

// execute runs an acquired job to its terminal state.
func (j *Job) execute(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	j.mu.Lock()
	j.cancel = cancel
	if j.abortEarly {
		cancel()
	}
	j.mu.Unlock()

	err := j.run(ctx)

	j.mu.Lock()
	if err != nil {
		j.state = StateAborted
	} else {
		j.state = StateFinished
	}
	purchases, totals := appstore.Postprocess(j.history.Days())
	j.results = &Results{Purchases: purchases, TotalAmount: totals}
	j.mu.Unlock()

	if err != nil {
		log.Printf("ERROR: job %s: %v", j.ID, err)
		return err
	}
	return nil
}

func (j *Job) run(ctx context.Context) error {
	page, err := j.fetch(ctx, nil)
	if err != nil {
		return err
	}
	if err := j.history.Visit(page); err != nil {
		return j.wrap("Accumulate", err)
	}

	for j.history.NextCursor() != nil {
		// The throttle doubles as the cancellation point between pages.
		select {
		case <-time.After(j.throttle):
		case <-ctx.Done():
			return j.wrap("Fetch", ctx.Err())
		}

		cursor := j.history.NextCursor()
		page, err := j.fetch(ctx, cursor)
		if err != nil {
			return err
		}
		if err := j.history.Visit(page); err != nil {
			return j.wrap("Accumulate", err)
		}

		j.notifyProgress(page)
	}

	return nil
}

// fetch issues one page request and discards its result when
// cancellation was requested while it was in flight. The request
// itself runs on a detached context so an abort never tears down a
// half-served response.
func (j *Job) fetch(ctx context.Context, cursor *string) (*appstore.Page, error) {
	page, err := j.client.FetchPage(context.WithoutCancel(ctx), j.cred, cursor)
	if ctx.Err() != nil {
		return nil, j.wrap("Fetch", ctx.Err())
	}
	if err != nil {
		return nil, j.wrap("Fetch", err)
	}
	return page, nil
}

func (j *Job) notifyProgress(page *appstore.Page) {
	if j.onProgress == nil || len(page.Batches) == 0 {
		return
	}
	newest := page.Batches[0].Date
	j.onProgress(appstore.ProgressPercent(newest, time.Now()))
}

func (j *Job) wrap(op string, cause error) error {
	return &appstore.ScrapeError{
		ContextID: j.ContextID,
		Operation: op,
		Cause:     cause,
		Details:   "job " + j.ID.String(),
	}
}
