package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// A4 in inches, the unit the DevTools print call expects.
const (
	a4WidthInches  = 8.27
	a4HeightInches = 11.69
)

// ChromeConfig selects the browser used for printing. ControlURL attaches to
// an already running Chrome; otherwise Bin (or rod's managed download) is
// launched headless on first use.
type ChromeConfig struct {
	Bin        string `yaml:"bin"`
	ControlURL string `yaml:"control_url"`
}

// ChromePrinter prints HTML to PDF through a shared headless Chrome.
type ChromePrinter struct {
	cfg     ChromeConfig
	mu      sync.Mutex
	browser *rod.Browser
}

// NewChromePrinter returns a printer that connects lazily.
func NewChromePrinter(cfg ChromeConfig) *ChromePrinter {
	return &ChromePrinter{cfg: cfg}
}

func (p *ChromePrinter) connect() (*rod.Browser, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		if _, err := p.browser.Version(); err == nil {
			return p.browser, nil
		}
		_ = p.browser.Close()
		p.browser = nil
	}
	controlURL := p.cfg.ControlURL
	if controlURL == "" {
		l := launcher.New().Headless(true)
		if p.cfg.Bin != "" {
			l = l.Bin(p.cfg.Bin)
		}
		url, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}
	// The browser outlives any single request, so it is not bound to one.
	browser := rod.New().ControlURL(controlURL).Context(context.Background())
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}
	p.browser = browser
	return browser, nil
}

// PrintPDF loads html into a fresh incognito page and prints it at A4.
func (p *ChromePrinter) PrintPDF(ctx context.Context, html []byte) ([]byte, error) {
	browser, err := p.connect()
	if err != nil {
		return nil, err
	}
	incognito, err := browser.Incognito()
	if err != nil {
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	defer func() { _ = incognito.Close() }()

	page, err := incognito.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	page = page.Context(ctx)
	if err := page.SetDocumentContent(string(html)); err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("wait load: %w", err)
	}
	width, height, zero := a4WidthInches, a4HeightInches, 0.0
	stream, err := page.PDF(&proto.PagePrintToPDF{
		PaperWidth:      &width,
		PaperHeight:     &height,
		MarginTop:       &zero,
		MarginBottom:    &zero,
		MarginLeft:      &zero,
		MarginRight:     &zero,
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print pdf: %w", err)
	}
	data, err := io.ReadAll(stream)
	if err != nil {
		return nil, fmt.Errorf("read pdf stream: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("print pdf: empty document")
	}
	return data, nil
}

// Close shuts the browser down if one was started.
func (p *ChromePrinter) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser == nil {
		return nil
	}
	err := p.browser.Close()
	p.browser = nil
	return err
}
