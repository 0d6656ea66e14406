// Package browsertest provides an in-memory browser.Driver that serves
// scripted pages, plus a catalog builder that mimics the real site's
// search, login and season/episode behavior.
package browsertest

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"episodic/internal/browser"
)

// Node is one element on a fake page.
type Node struct {
	Text   string
	Attrs  map[string]string
	Hidden bool
	// Value accumulates text sent with SendKeys.
	Value   string
	OnClick func()
	// ClickErr, when set, fails Click without running OnClick.
	ClickErr error
}

// Page maps selectors to the nodes they match.
type Page struct {
	URL      string
	Elements map[string][]*Node
}

// Set replaces the nodes matched by selector.
func (p *Page) Set(selector string, nodes ...*Node) {
	p.Elements[selector] = nodes
}

// Site is a fake browser over a set of pages keyed by URL.
type Site struct {
	mu        sync.Mutex
	pages     map[string]*Page
	redirects map[string]string
	history   []string
	current   string
	cookies   []*http.Cookie

	navigations int
	backs       int
	quits       int

	// NavigateErr, when set, fails every Navigate call.
	NavigateErr error
	// QuitErr is returned from Quit.
	QuitErr error
}

var _ browser.Driver = (*Site)(nil)
var _ browser.CookieSource = (*Site)(nil)

// NewSite returns an empty site positioned at "about:blank".
func NewSite() *Site {
	return &Site{
		pages:     make(map[string]*Page),
		redirects: make(map[string]string),
		current:   "about:blank",
	}
}

// Page returns the page at url, creating it when missing.
func (s *Site) Page(url string) *Page {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pageLocked(url)
}

func (s *Site) pageLocked(url string) *Page {
	page, ok := s.pages[url]
	if !ok {
		page = &Page{URL: url, Elements: make(map[string][]*Node)}
		s.pages[url] = page
	}
	return page
}

// Redirect makes navigation to from land on to without an extra history entry.
func (s *Site) Redirect(from, to string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.redirects[from] = to
}

// SetCookies installs cookies returned by Cookies.
func (s *Site) SetCookies(cookies ...*http.Cookie) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cookies = cookies
}

// Open follows a link from the current page, as a click on an anchor would.
func (s *Site) Open(url string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.openLocked(url)
}

func (s *Site) openLocked(url string) {
	if to, ok := s.redirects[url]; ok {
		url = to
	}
	s.history = append(s.history, s.current)
	s.current = url
}

func (s *Site) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NavigateErr != nil {
		return s.NavigateErr
	}
	s.navigations++
	s.openLocked(url)
	return nil
}

func (s *Site) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backs++
	if len(s.history) == 0 {
		return errors.New("no history")
	}
	s.current = s.history[len(s.history)-1]
	s.history = s.history[:len(s.history)-1]
	return nil
}

func (s *Site) CurrentURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

func (s *Site) FindVisible(ctx context.Context, selector string) (browser.Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[s.current]
	if !ok {
		return nil, false, nil
	}
	for _, node := range page.Elements[selector] {
		if !node.Hidden {
			return &element{site: s, node: node}, true, nil
		}
	}
	return nil, false, nil
}

func (s *Site) FindAll(ctx context.Context, selector string) ([]browser.Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	page, ok := s.pages[s.current]
	if !ok {
		return nil, nil
	}
	var out []browser.Element
	for _, node := range page.Elements[selector] {
		if !node.Hidden {
			out = append(out, &element{site: s, node: node})
		}
	}
	return out, nil
}

func (s *Site) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*http.Cookie(nil), s.cookies...), nil
}

func (s *Site) Quit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quits++
	return s.QuitErr
}

// Navigations counts Navigate calls.
func (s *Site) Navigations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.navigations
}

// Backs counts Back calls.
func (s *Site) Backs() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.backs
}

// Quits counts Quit calls.
func (s *Site) Quits() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.quits
}

type element struct {
	site *Site
	node *Node
}

func (e *element) Text() (string, error) {
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	return e.node.Text, nil
}

func (e *element) Attribute(name string) (string, error) {
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	return e.node.Attrs[name], nil
}

func (e *element) Click() error {
	e.site.mu.Lock()
	handler, err := e.node.OnClick, e.node.ClickErr
	e.site.mu.Unlock()
	if err != nil {
		return err
	}
	if handler != nil {
		handler()
	}
	return nil
}

func (e *element) SendKeys(text string) error {
	e.site.mu.Lock()
	defer e.site.mu.Unlock()
	e.node.Value += text
	return nil
}

// Update runs fn while holding the site lock. Click handlers use it to
// mutate page state.
func (s *Site) Update(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn()
}
