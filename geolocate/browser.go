package geolocate

import (
	"context"
	"fmt"
	"os"
	"os/exec"

	"github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/emulation"
	cdpruntime "github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"

	"allrentr/models"
	"allrentr/services"
	"allrentr/utils"
)

// W3C GeolocationPositionError codes.
const (
	codePermissionDenied    = 1
	codePositionUnavailable = 2
	codeTimeout             = 3
)

// BrowserLocator asks a headless Chrome for navigator.geolocation's current
// position. Chrome answers from the platform location service, or from
// Override when set.
type BrowserLocator struct {
	chromeBin string
	page      string
	logger    *utils.Logger

	// Override pins the emulated position, e.g. for demos on machines
	// without a location service.
	Override *models.Position
}

// NewBrowserLocator creates a BrowserLocator. page must be an origin the
// geolocation permission can be granted to; an empty chromeBin is looked up
// on PATH.
func NewBrowserLocator(chromeBin, page string, logger *utils.Logger) *BrowserLocator {
	if chromeBin == "" {
		chromeBin = findChromeBinary()
	}
	if page == "" {
		page = "about:blank"
	}
	return &BrowserLocator{chromeBin: chromeBin, page: page, logger: logger}
}

// jsPosition is the settled value of positionScript.
type jsPosition struct {
	Code     int     `json:"code"`
	Message  string  `json:"message"`
	Lat      float64 `json:"lat"`
	Lng      float64 `json:"lng"`
	Accuracy float64 `json:"accuracy"`
}

// positionScript never rejects; failures resolve with a non-zero code.
func positionScript(opts services.PositionOptions) string {
	return fmt.Sprintf(`new Promise((resolve) => {
	if (!navigator.geolocation) {
		resolve({code: %d, message: "geolocation is not supported"});
		return;
	}
	navigator.geolocation.getCurrentPosition(
		(p) => resolve({code: 0, lat: p.coords.latitude, lng: p.coords.longitude, accuracy: p.coords.accuracy}),
		(e) => resolve({code: e.code, message: e.message}),
		{enableHighAccuracy: %t, timeout: %d, maximumAge: %d}
	);
})`, codePositionUnavailable, opts.HighAccuracy, opts.Timeout.Milliseconds(), opts.MaximumAge.Milliseconds())
}

// CurrentPosition launches Chrome, grants the geolocation permission and
// evaluates getCurrentPosition. The browser is torn down when ctx ends.
func (b *BrowserLocator) CurrentPosition(ctx context.Context, opts services.PositionOptions) (models.Position, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
	)
	if b.chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(b.chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocOpts...)
	defer cancelAlloc()

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))
	defer cancelTab()

	actions := []chromedp.Action{
		chromedp.Navigate(b.page),
		browser.GrantPermissions([]browser.PermissionType{browser.PermissionTypeGeolocation}),
	}
	if b.Override != nil {
		actions = append(actions, emulation.SetGeolocationOverride().
			WithLatitude(b.Override.Lat).
			WithLongitude(b.Override.Lng).
			WithAccuracy(b.Override.Accuracy))
	}

	var res jsPosition
	actions = append(actions, chromedp.Evaluate(positionScript(opts), &res,
		func(p *cdpruntime.EvaluateParams) *cdpruntime.EvaluateParams {
			return p.WithAwaitPromise(true)
		}))

	b.logger.Debug("[geolocate] Using browser binary: %s", b.chromeBin)
	if err := chromedp.Run(tabCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return models.Position{}, ctx.Err()
		}
		return models.Position{}, fmt.Errorf("%w: browser: %v", services.ErrPositionUnavailable, err)
	}

	return res.toPosition()
}

func (r jsPosition) toPosition() (models.Position, error) {
	switch r.Code {
	case 0:
		return models.Position{Lat: r.Lat, Lng: r.Lng, Accuracy: r.Accuracy}, nil
	case codePermissionDenied:
		return models.Position{}, fmt.Errorf("%w: %s", services.ErrPermissionDenied, r.Message)
	case codeTimeout:
		return models.Position{}, fmt.Errorf("%w: %s", services.ErrPositionTimeout, r.Message)
	default:
		return models.Position{}, fmt.Errorf("%w: %s", services.ErrPositionUnavailable, r.Message)
	}
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary() string {
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
