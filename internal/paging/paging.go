// Package paging builds the sequence of listing-page URLs for a crawl run.
package paging

import (
	"errors"
	"fmt"
	"iter"
	"net/url"
	"strconv"
)

// DefaultParam is the query parameter used for the page index when the
// configuration does not name one.
const DefaultParam = "page"

// Pages yields count listing URLs formed by setting the page-index query
// parameter on baseURL to 1..count. The sequence is lazy and can be ranged
// over more than once. No network access happens here; a count below one or
// an unparsable base URL yields nothing.
func Pages(baseURL, param string, count int) iter.Seq[string] {
	return func(yield func(string) bool) {
		u, err := url.Parse(baseURL)
		if err != nil {
			return
		}
		if param == "" {
			param = DefaultParam
		}
		for i := 1; i <= count; i++ {
			q := u.Query()
			q.Set(param, strconv.Itoa(i))
			page := *u
			page.RawQuery = q.Encode()
			if !yield(page.String()) {
				return
			}
		}
	}
}

// Validate checks that baseURL is an absolute URL usable for pagination.
func Validate(baseURL string) error {
	u, err := url.Parse(baseURL)
	if err != nil {
		return fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return errors.New("base url must be absolute")
	}
	return nil
}
