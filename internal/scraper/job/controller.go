package job

import (
	"context"
	"errors"
	"log"
	"sync"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
	"github.com/asurada/appstore-spending/internal/scraper/msgport"
	"github.com/asurada/appstore-spending/internal/scraper/observer"
)

// Controller derives the single externally visible status per context
// and handles the UI message contract. It owns the registry; the
// observer and hub are shared collaborators.
type Controller struct {
	mu  sync.Mutex
	obs *observer.Observer
	reg *Registry
	hub *msgport.Hub

	client  Fetcher
	jobOpts []Option
}

func NewController(obs *observer.Observer, hub *msgport.Hub, client Fetcher, jobOpts ...Option) *Controller {
	c := &Controller{
		obs:     obs,
		reg:     NewRegistry(),
		hub:     hub,
		client:  client,
		jobOpts: jobOpts,
	}

	// A completed credential moves the context from NOT_READY to
	// NOT_STARTED; tell the UI.
	obs.OnCapture(func(contextID string) {
		c.sendLoadState(contextID)
	})

	return c
}

// Status is NOT_READY until a credential exists, NOT_STARTED while a
// credential exists with no started job, then the job's own state.
func (c *Controller) Status(contextID string) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statusLocked(contextID)
}

func (c *Controller) statusLocked(contextID string) State {
	if _, ok := c.obs.Credential(contextID); !ok {
		return StateNotReady
	}
	if j := c.reg.Get(contextID); j != nil {
		return j.State()
	}
	return StateNotStarted
}

// Results returns the context's postprocessed output, nil until its job
// reaches a terminal state.
func (c *Controller) Results(contextID string) *Results {
	c.mu.Lock()
	defer c.mu.Unlock()
	if j := c.reg.Get(contextID); j != nil {
		return j.Results()
	}
	return nil
}

// Start creates and runs a job for the context using the most recent
// captured credential. Blocking until the job terminates; the LOAD_STATE
// notification goes out either way.
func (c *Controller) Start(ctx context.Context, contextID string) error {
	c.mu.Lock()
	cred, ok := c.obs.Credential(contextID)
	if !ok {
		c.mu.Unlock()
		return &appstore.ScrapeError{
			ContextID: contextID,
			Operation: "Start",
			Cause:     appstore.ErrCredentialUnavailable,
			Details:   "reload the purchase history page",
		}
	}

	opts := append([]Option{WithProgress(func(percent int) {
		c.hub.Send(contextID, msgport.Outbound{
			Type:    msgport.MsgUpdate,
			Payload: msgport.Update{Progress: percent},
		})
	})}, c.jobOpts...)

	j, err := c.reg.Create(contextID, cred, c.client, opts...)
	if err != nil {
		c.mu.Unlock()
		return err
	}

	// Claim the job before releasing the lock: a racing Start must see
	// it RUNNING, not a replaceable NOT_STARTED shell.
	if err := j.acquire(); err != nil {
		c.mu.Unlock()
		return err
	}

	// Suspend observation so the job's own authenticated requests cannot
	// corrupt the captured credential.
	c.obs.Suspend(contextID)
	c.mu.Unlock()

	runErr := j.execute(ctx)
	c.sendLoadState(contextID)
	return runErr
}

// Abort requests cooperative cancellation of the context's running job.
func (c *Controller) Abort(contextID string) {
	c.mu.Lock()
	j := c.reg.Get(contextID)
	c.mu.Unlock()

	if j == nil {
		return
	}
	j.Abort()
}

// Reset discards the context's job and re-registers observation so a
// fresh credential can be captured. Terminal jobs are never restarted;
// this is how a new one becomes possible.
func (c *Controller) Reset(contextID string) {
	c.mu.Lock()
	c.reg.Drop(contextID)
	c.obs.Resume(contextID)
	c.mu.Unlock()

	c.sendLoadState(contextID)
}

// HandleMessage dispatches one inbound UI command. START runs the job
// on a fresh goroutine; everything else is immediate.
func (c *Controller) HandleMessage(ctx context.Context, msg msgport.Inbound) {
	switch msg.Type {
	case msgport.MsgStart:
		go func() {
			if err := c.Start(ctx, msg.ContextID); err != nil {
				log.Printf("ERROR: start for context %s: %v", msg.ContextID, err)
				if errors.Is(err, appstore.ErrCredentialUnavailable) {
					// State stays NOT_READY; the UI prompts for a reload.
					c.sendLoadState(msg.ContextID)
				}
			}
		}()
	case msgport.MsgAbort:
		c.Abort(msg.ContextID)
	case msgport.MsgReset:
		c.Reset(msg.ContextID)
	case msgport.MsgGetState:
		c.sendLoadState(msg.ContextID)
	default:
		log.Printf("WARN: unrecognized message type %q for context %s", msg.Type, msg.ContextID)
	}
}

// Serve consumes inbound messages until the channel closes or the
// context is cancelled.
func (c *Controller) Serve(ctx context.Context, inbound <-chan msgport.Inbound) {
	for {
		select {
		case msg, ok := <-inbound:
			if !ok {
				return
			}
			c.HandleMessage(ctx, msg)
		case <-ctx.Done():
			return
		}
	}
}

func (c *Controller) sendLoadState(contextID string) {
	c.mu.Lock()
	state := c.statusLocked(contextID)
	var results *Results
	if j := c.reg.Get(contextID); j != nil {
		results = j.Results()
	}
	c.mu.Unlock()

	payload := msgport.LoadState{State: int(state)}
	if results != nil {
		payload.Results = msgport.Results{
			Purchases:   results.Purchases,
			TotalAmount: results.TotalAmount,
		}
	}

	c.hub.Send(contextID, msgport.Outbound{Type: msgport.MsgLoadState, Payload: payload})
}
