package browser

import (
	"context"
	"net/http"
)

// Element is one rendered node on the current page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, error)
	Click() error
	SendKeys(text string) error
}

// Driver is the automation backend. FindVisible is an instant probe; polling
// is the Session's job.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Back(ctx context.Context) error
	CurrentURL() string
	FindVisible(ctx context.Context, selector string) (Element, bool, error)
	FindAll(ctx context.Context, selector string) ([]Element, error)
	Quit() error
}

// CookieSource is implemented by drivers that can export the page's cookies
// for out-of-browser requests.
type CookieSource interface {
	Cookies(ctx context.Context) ([]*http.Cookie, error)
}
