package crawl

// LinkSet is a deduplicating set of URLs that preserves insertion order, so
// the article phase visits links in the order they were discovered.
type LinkSet struct {
	seen  map[string]bool
	order []string
}

// NewLinkSet returns an empty LinkSet.
func NewLinkSet() *LinkSet {
	return &LinkSet{seen: make(map[string]bool)}
}

// Add inserts a URL and reports whether it was new.
func (s *LinkSet) Add(url string) bool {
	if s.seen[url] {
		return false
	}
	s.seen[url] = true
	s.order = append(s.order, url)
	return true
}

// Contains reports whether the URL has been added.
func (s *LinkSet) Contains(url string) bool {
	return s.seen[url]
}

// Len returns the number of distinct URLs.
func (s *LinkSet) Len() int {
	return len(s.order)
}

// URLs returns the URLs in discovery order. The returned slice is shared;
// callers must not mutate it.
func (s *LinkSet) URLs() []string {
	return s.order
}
