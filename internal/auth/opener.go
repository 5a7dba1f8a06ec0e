package auth

import (
	"io"

	"github.com/pkg/browser"
)

// URLOpener presents a URL to the user, typically by launching a browser.
type URLOpener interface {
	OpenURL(url string) error
}

// BrowserOpener opens URLs with the platform's default handler.
type BrowserOpener struct {
	// Disabled skips launching anything; the URL is still printed by the coordinator.
	Disabled bool
}

// Compile-time check to ensure BrowserOpener implements URLOpener
var _ URLOpener = BrowserOpener{}

// OpenURL launches the default browser. Output of the launcher is discarded so it does
// not interleave with the CLI's own output.
func (b BrowserOpener) OpenURL(url string) error {
	if b.Disabled {
		return nil
	}
	browser.Stdout = io.Discard
	browser.Stderr = io.Discard
	return browser.OpenURL(url)
}

// URLOpenerFunc adapts a function to URLOpener.
type URLOpenerFunc func(url string) error

// OpenURL calls f(url).
func (f URLOpenerFunc) OpenURL(url string) error {
	return f(url)
}
