package observer

import (
	"context"
	"log"
	"strings"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// Attach wires the observer to a page's CDP network events. The page's
// target ID becomes the observing context.
//
// RequestWillBeSent carries the URL and POST body and fires before the
// request leaves; its ExtraInfo counterpart carries the headers the
// browser actually transmitted (cookies included) and fires around
// transmission time. ExtraInfo has no URL, so the adapter forwards only
// request IDs it already matched against the endpoint.
//
// The returned stop function detaches the listeners.
func (o *Observer) Attach(page *rod.Page, endpoint string) func() {
	contextID := string(page.TargetID)

	var mu sync.Mutex
	matched := make(map[proto.NetworkRequestID]bool)

	ctx, cancel := context.WithCancel(context.Background())
	wait := page.Context(ctx).EachEvent(
		func(e *proto.NetworkRequestWillBeSent) {
			if !strings.HasPrefix(e.Request.URL, endpoint) {
				return
			}

			mu.Lock()
			matched[e.RequestID] = true
			mu.Unlock()

			o.OnRequestInitiated(contextID, string(e.RequestID), []byte(e.Request.PostData))
		},
		func(e *proto.NetworkRequestWillBeSentExtraInfo) {
			mu.Lock()
			ok := matched[e.RequestID]
			delete(matched, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}

			headers := make(map[string]string, len(e.Headers))
			for k, v := range e.Headers {
				headers[k] = v.Str()
			}

			if err := o.OnRequestHeadersSent(contextID, string(e.RequestID), headers); err != nil {
				log.Printf("ERROR: observer: %v", err)
			}
		},
	)

	go wait()

	var once sync.Once
	return func() {
		once.Do(cancel)
	}
}
