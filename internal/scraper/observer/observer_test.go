package observer

import (
	"testing"

	"github.com/asurada/appstore-spending/internal/scraper/appstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	ctxA = "tab-a"
	ctxB = "tab-b"
)

func sampleHeaders() map[string]string {
	return map[string]string{"Cookie": "myacinfo=abc", "X-Apple-Xsrf": "t1"}
}

func TestObserver_CompletesCredential(t *testing.T) {
	o := New()

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"111222333"}`))
	err := o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders())
	require.NoError(t, err)

	cred, ok := o.Credential(ctxA)
	require.True(t, ok)
	assert.Equal(t, "111222333", cred.DSID)
	assert.Equal(t, sampleHeaders(), cred.Headers)
}

func TestObserver_HeadersWithoutBodyIsProtocolViolation(t *testing.T) {
	o := New()

	err := o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders())

	assert.ErrorIs(t, err, appstore.ErrUnmatchedRequest)
	_, ok := o.Credential(ctxA)
	assert.False(t, ok)
}

func TestObserver_MalformedBodyFailsSilentlyThenHeadersError(t *testing.T) {
	o := New()

	// Malformed body logs and leaves no pending entry...
	o.OnRequestInitiated(ctxA, "req-1", []byte(`{not json`))
	// ...so the paired header observation is unmatched.
	err := o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders())

	assert.ErrorIs(t, err, appstore.ErrUnmatchedRequest)
}

func TestObserver_BodyWithoutDSIDLeavesNoEntry(t *testing.T) {
	o := New()

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"other":"x"}`))
	err := o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders())

	assert.ErrorIs(t, err, appstore.ErrUnmatchedRequest)
}

func TestObserver_LatestCredentialSupersedes(t *testing.T) {
	o := New()

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"first"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders()))
	o.OnRequestInitiated(ctxA, "req-2", []byte(`{"dsid":"second"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-2", sampleHeaders()))

	cred, ok := o.Credential(ctxA)
	require.True(t, ok)
	assert.Equal(t, "second", cred.DSID)
}

func TestObserver_ContextsAreIndependent(t *testing.T) {
	o := New()

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"aaa"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders()))

	_, ok := o.Credential(ctxB)
	assert.False(t, ok)

	// Same request ID in another context must not collide.
	o.OnRequestInitiated(ctxB, "req-1", []byte(`{"dsid":"bbb"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxB, "req-1", sampleHeaders()))

	credA, _ := o.Credential(ctxA)
	credB, _ := o.Credential(ctxB)
	assert.Equal(t, "aaa", credA.DSID)
	assert.Equal(t, "bbb", credB.DSID)
}

func TestObserver_OnCaptureFiresOnceOnFirstCredential(t *testing.T) {
	o := New()

	var captures []string
	o.OnCapture(func(contextID string) { captures = append(captures, contextID) })

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"one"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders()))
	o.OnRequestInitiated(ctxA, "req-2", []byte(`{"dsid":"two"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-2", sampleHeaders()))

	assert.Equal(t, []string{ctxA}, captures, "superseding must not re-fire the transition")
}

func TestObserver_SuspendIgnoresObservations(t *testing.T) {
	o := New()

	o.Suspend(ctxA)
	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"hidden"}`))
	assert.NoError(t, o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders()))

	_, ok := o.Credential(ctxA)
	assert.False(t, ok)

	o.Resume(ctxA)
	o.OnRequestInitiated(ctxA, "req-2", []byte(`{"dsid":"visible"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-2", sampleHeaders()))

	cred, ok := o.Credential(ctxA)
	require.True(t, ok)
	assert.Equal(t, "visible", cred.DSID)
}

func TestObserver_CredentialReturnsCopy(t *testing.T) {
	o := New()

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"111"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders()))

	cred, _ := o.Credential(ctxA)
	cred.Headers["Cookie"] = "tampered"

	again, _ := o.Credential(ctxA)
	assert.Equal(t, "myacinfo=abc", again.Headers["Cookie"])
}

func TestObserver_Forget(t *testing.T) {
	o := New()

	o.OnRequestInitiated(ctxA, "req-1", []byte(`{"dsid":"111"}`))
	require.NoError(t, o.OnRequestHeadersSent(ctxA, "req-1", sampleHeaders()))
	o.Forget(ctxA)

	_, ok := o.Credential(ctxA)
	assert.False(t, ok)
}
