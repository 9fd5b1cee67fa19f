package observer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanPageDSID_FromBootstrapScript(t *testing.T) {
	html := `<html><head>
		<script>window.__BOOTSTRAP__ = {"user": {"dsid": "987654321", "locale": "en_US"}};</script>
	</head><body></body></html>`

	dsid, err := ScanPageDSID(html)

	require.NoError(t, err)
	assert.Equal(t, "987654321", dsid)
}

func TestScanPageDSID_UnquotedNumber(t *testing.T) {
	html := `<html><head><script>var cfg = {"dsid": 12345};</script></head></html>`

	dsid, err := ScanPageDSID(html)

	require.NoError(t, err)
	assert.Equal(t, "12345", dsid)
}

func TestScanPageDSID_FromMetaTag(t *testing.T) {
	html := `<html><head><meta name="dsid" content="555000111"></head><body></body></html>`

	dsid, err := ScanPageDSID(html)

	require.NoError(t, err)
	assert.Equal(t, "555000111", dsid)
}

func TestScanPageDSID_NotSignedIn(t *testing.T) {
	html := `<html><body><p>Sign in to view your purchase history</p></body></html>`

	_, err := ScanPageDSID(html)

	assert.ErrorIs(t, err, ErrNoDSID)
}
