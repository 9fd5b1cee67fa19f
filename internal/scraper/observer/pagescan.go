package observer

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ErrNoDSID means the page HTML carries no recognizable dsid.
var ErrNoDSID = errors.New("no dsid found in page")

var dsidPattern = regexp.MustCompile(`"dsid"\s*:\s*"?(\d+)"?`)

// ScanPageDSID extracts the account dsid from the purchase page's
// embedded bootstrap JSON. This is a diagnostic fallback for when no
// outbound request was observed: the header set cannot be recovered
// from static HTML, so the result never forms a full credential, but it
// confirms the user is signed in on the right page.
func ScanPageDSID(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	var dsid string
	doc.Find("script").EachWithBreak(func(i int, s *goquery.Selection) bool {
		if m := dsidPattern.FindStringSubmatch(s.Text()); m != nil {
			dsid = m[1]
			return false
		}
		return true
	})

	// Some page revisions carry it as a meta attribute instead.
	if dsid == "" {
		dsid = doc.Find(`meta[name="dsid"]`).AttrOr("content", "")
	}

	if dsid == "" {
		return "", ErrNoDSID
	}
	return dsid, nil
}
