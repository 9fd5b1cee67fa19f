// Package observer passively reconstructs a purchase-search credential
// from two asynchronous observations of the same outbound request: its
// JSON body, available before the request is sent, and its header set,
// available when the request is actually transmitted. It never
// intercepts or modifies traffic.
package observer

import (
	"encoding/json"
	"fmt"
	"log"
	"sync"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
)

// Observer tracks pending observations keyed by context then request,
// and retains only the most recent completed credential per context.
// Older credentials are superseded, never queued.
type Observer struct {
	mu sync.Mutex

	// context ID -> request ID -> dsid from the request body
	pending map[string]map[string]string

	// context ID -> latest completed credential
	captured map[string]appstore.Credential

	// contexts with a running job; their observations are ignored so the
	// job's own authenticated requests cannot corrupt captured state
	suspended map[string]bool

	// invoked outside the lock when a credential completes for a context
	// that had none; drives the NOT_READY -> NOT_STARTED transition
	onCapture func(contextID string)
}

func New() *Observer {
	return &Observer{
		pending:   make(map[string]map[string]string),
		captured:  make(map[string]appstore.Credential),
		suspended: make(map[string]bool),
	}
}

// OnCapture registers a callback fired the first time a credential
// completes for a context.
func (o *Observer) OnCapture(fn func(contextID string)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.onCapture = fn
}

type requestBody struct {
	DSID *string `json:"dsid"`
}

// OnRequestInitiated records the session identifier from an outbound
// request body. A malformed body is logged and leaves no pending entry;
// a later header observation for the same request is then an error.
func (o *Observer) OnRequestInitiated(contextID, requestID string, rawBody []byte) {
	var body requestBody
	if err := json.Unmarshal(rawBody, &body); err != nil {
		log.Printf("WARN: observer: unparseable request body for %s/%s: %v", contextID, requestID, err)
		return
	}
	if body.DSID == nil || *body.DSID == "" {
		log.Printf("WARN: observer: request body for %s/%s carries no dsid", contextID, requestID)
		return
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.suspended[contextID] {
		return
	}

	if o.pending[contextID] == nil {
		o.pending[contextID] = make(map[string]string)
	}
	o.pending[contextID][requestID] = *body.DSID
}

// OnRequestHeadersSent pairs the transmitted header set with the
// pending body observation and completes the credential. An observation
// with no pending entry is a protocol violation
// (appstore.ErrUnmatchedRequest): the two callbacks arrived out of
// order or for an unknown request.
func (o *Observer) OnRequestHeadersSent(contextID, requestID string, headers map[string]string) error {
	o.mu.Lock()
	if o.suspended[contextID] {
		o.mu.Unlock()
		return nil
	}

	dsid, ok := o.pending[contextID][requestID]
	if !ok {
		o.mu.Unlock()
		return fmt.Errorf("%w: %s/%s", appstore.ErrUnmatchedRequest, contextID, requestID)
	}
	delete(o.pending[contextID], requestID)

	cred := appstore.Credential{DSID: dsid, Headers: headers}

	_, had := o.captured[contextID]
	o.captured[contextID] = cred.Clone()
	fn := o.onCapture
	o.mu.Unlock()

	// Fire outside the lock so the callback can call back in.
	if !had && fn != nil {
		fn(contextID)
	}

	return nil
}

// Credential returns a copy of the most recent completed credential for
// the context, if any.
func (o *Observer) Credential(contextID string) (appstore.Credential, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()

	cred, ok := o.captured[contextID]
	if !ok {
		return appstore.Credential{}, false
	}
	return cred.Clone(), true
}

// Suspend stops observation for the context while its job runs.
func (o *Observer) Suspend(contextID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.suspended[contextID] = true
}

// Resume re-enables observation after a reset.
func (o *Observer) Resume(contextID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.suspended, contextID)
}

// Forget drops all state for a context.
func (o *Observer) Forget(contextID string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	delete(o.pending, contextID)
	delete(o.captured, contextID)
	delete(o.suspended, contextID)
}
