package browser

import (
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

type Page struct {
	rod *rod.Page
}

// WaitFor blocks until an element matching selector exists or timeout passes.
func (p *Page) WaitFor(selector string, timeout time.Duration) error {
	_, err := p.rod.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %q: %w", selector, err)
	}
	return nil
}

// HTML returns the rendered document.
func (p *Page) HTML() (string, error) {
	return p.rod.HTML()
}

// ClickText clicks the first element matching selector whose text matches
// the javascript regex pattern.
func (p *Page) ClickText(selector, pattern string, timeout time.Duration) error {
	el, err := p.rod.Timeout(timeout).ElementR(selector, pattern)
	if err != nil {
		return fmt.Errorf("find %s /%s/: %w", selector, pattern, err)
	}
	return el.Click(proto.InputMouseButtonLeft, 1)
}

// Hide sets display: none on every element matching selector.
func (p *Page) Hide(selector string) error {
	elements, err := p.rod.Elements(selector)
	if err != nil {
		return fmt.Errorf("query %q: %w", selector, err)
	}
	if elements.Empty() {
		return fmt.Errorf("hide %q: no such element", selector)
	}
	for _, el := range elements {
		_, err := el.Eval(`() => { this.style.display = 'none' }`)
		if err != nil {
			return fmt.Errorf("hide %q: %w", selector, err)
		}
	}
	return nil
}

// ScrollIntoView scrolls to the first element matching selector, failing when
// none shows up within timeout.
func (p *Page) ScrollIntoView(selector string, timeout time.Duration) error {
	el, err := p.rod.Timeout(timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("find %q: %w", selector, err)
	}
	return el.ScrollIntoView()
}

// Screenshot captures the viewport as PNG.
func (p *Page) Screenshot() ([]byte, error) {
	return p.rod.Screenshot(false, &proto.PageCaptureScreenshot{
		Format: proto.PageCaptureScreenshotFormatPng,
	})
}

func (p *Page) Close() error {
	return p.rod.Close()
}
