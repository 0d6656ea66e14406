package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/playwright-community/playwright-go"
)

// PlaywrightOptions configures the Chromium instance.
type PlaywrightOptions struct {
	Headless          bool
	NavigationTimeout time.Duration
}

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	page    playwright.Page
	timeout float64
}

// LaunchPlaywright starts Chromium and opens the single shared page. The
// driver and browser must already be installed (`playwright install chromium`).
func LaunchPlaywright(opts PlaywrightOptions) (Driver, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(opts.Headless),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}
	page, err := browser.NewPage()
	if err != nil {
		_ = browser.Close()
		_ = pw.Stop()
		return nil, fmt.Errorf("open page: %w", err)
	}
	timeout := opts.NavigationTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &playwrightDriver{
		pw:      pw,
		browser: browser,
		page:    page,
		timeout: float64(timeout.Milliseconds()),
	}, nil
}

func (d *playwrightDriver) Navigate(ctx context.Context, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.Goto(url, playwright.PageGotoOptions{
		Timeout:   playwright.Float(d.timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (d *playwrightDriver) Back(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	_, err := d.page.GoBack(playwright.PageGoBackOptions{
		Timeout:   playwright.Float(d.timeout),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	})
	return err
}

func (d *playwrightDriver) CurrentURL() string {
	return d.page.URL()
}

func (d *playwrightDriver) FindVisible(ctx context.Context, selector string) (Element, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	loc := d.page.Locator(selector).First()
	visible, err := loc.IsVisible()
	if err != nil || !visible {
		return nil, false, err
	}
	return &playwrightElement{loc: loc, timeout: d.timeout}, true, nil
}

func (d *playwrightDriver) FindAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	all, err := d.page.Locator(selector).All()
	if err != nil {
		return nil, err
	}
	out := make([]Element, 0, len(all))
	for _, loc := range all {
		out = append(out, &playwrightElement{loc: loc, timeout: d.timeout})
	}
	return out, nil
}

func (d *playwrightDriver) Cookies(ctx context.Context) ([]*http.Cookie, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cookies, err := d.page.Context().Cookies()
	if err != nil {
		return nil, err
	}
	out := make([]*http.Cookie, 0, len(cookies))
	for _, c := range cookies {
		out = append(out, &http.Cookie{
			Name:     c.Name,
			Value:    c.Value,
			Domain:   c.Domain,
			Path:     c.Path,
			Secure:   c.Secure,
			HttpOnly: c.HttpOnly,
		})
	}
	return out, nil
}

func (d *playwrightDriver) Quit() error {
	var errs []error
	if d.browser != nil {
		if err := d.browser.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close browser: %w", err))
		}
	}
	if d.pw != nil {
		if err := d.pw.Stop(); err != nil {
			errs = append(errs, fmt.Errorf("stop playwright: %w", err))
		}
	}
	return errors.Join(errs...)
}

type playwrightElement struct {
	loc     playwright.Locator
	timeout float64
}

func (e *playwrightElement) Text() (string, error) {
	return e.loc.InnerText(playwright.LocatorInnerTextOptions{Timeout: playwright.Float(e.timeout)})
}

func (e *playwrightElement) Attribute(name string) (string, error) {
	return e.loc.GetAttribute(name, playwright.LocatorGetAttributeOptions{Timeout: playwright.Float(e.timeout)})
}

func (e *playwrightElement) Click() error {
	return e.loc.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(e.timeout)})
}

func (e *playwrightElement) SendKeys(text string) error {
	return e.loc.PressSequentially(text, playwright.LocatorPressSequentiallyOptions{Timeout: playwright.Float(e.timeout)})
}
