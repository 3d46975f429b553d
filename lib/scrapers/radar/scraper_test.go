package radar

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"radarbot-backend/internal/chrono"
	"radarbot-backend/internal/telemetry"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakePage struct {
	html       string
	shot       []byte
	missing    map[string]bool
	noCookies  bool
	hidden     []string
	scrolled   []string
	clicked    bool
	closed     bool
	screenshot bool
}

func (p *fakePage) WaitFor(selector string, timeout time.Duration) error {
	if p.missing[selector] {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	return nil
}

func (p *fakePage) HTML() (string, error) { return p.html, nil }

func (p *fakePage) ClickText(selector, pattern string, timeout time.Duration) error {
	if p.noCookies {
		return errors.New("not found")
	}
	p.clicked = true
	return nil
}

func (p *fakePage) Hide(selector string) error {
	if p.missing[selector] {
		return errors.New("no such element")
	}
	p.hidden = append(p.hidden, selector)
	return nil
}

func (p *fakePage) ScrollIntoView(selector string, timeout time.Duration) error {
	if p.missing[selector] {
		return fmt.Errorf("timeout waiting for %s", selector)
	}
	p.scrolled = append(p.scrolled, selector)
	return nil
}

func (p *fakePage) Screenshot() ([]byte, error) {
	p.screenshot = true
	return p.shot, nil
}

func (p *fakePage) Close() error {
	p.closed = true
	return nil
}

type fakeOpener struct {
	page  *fakePage
	err   error
	opens int
}

func (o *fakeOpener) Open(ctx context.Context, url string) (Page, error) {
	o.opens++
	if o.err != nil {
		return nil, o.err
	}
	return o.page, nil
}

func testScreenshot(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 200, 100))
	for x := 0; x < 200; x++ {
		for y := 0; y < 100; y++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 0, A: 255})
		}
	}
	buf := bytes.NewBuffer(nil)
	require.NoError(t, png.Encode(buf, img))
	return buf.Bytes()
}

func newTestScraper(t *testing.T, page *fakePage) (*PageScraper, *fakeOpener, *telemetry.Recorder) {
	opener := &fakeOpener{page: page}
	tel := &telemetry.Recorder{}
	s := NewPageScraper(opener, "https://example.com/radar", chrono.FixedTime{At: testDay}, tel)
	s.Settle = 0
	return s, opener, tel
}

func readFixture(t *testing.T, name string) string {
	b, err := os.ReadFile("testdata/" + name)
	require.NoError(t, err)
	return string(b)
}

func TestInspectCapturesWhenWanted(t *testing.T) {
	page := &fakePage{html: readFixture(t, "present.html"), shot: testScreenshot(t)}
	s, opener, _ := newTestScraper(t, page)

	status, img, err := s.Inspect(context.Background(), Status.HasRadar)
	require.NoError(t, err)
	require.Equal(t, StatePresent, status.State)
	require.Equal(t, 1, opener.opens)
	require.True(t, page.closed)
	require.True(t, page.clicked)
	require.Equal(t, overlaySelectors, page.hidden)
	require.Equal(t, []string{canvasSelector}, page.scrolled)

	decoded, err := png.Decode(bytes.NewReader(img))
	require.NoError(t, err)
	require.Equal(t, 200-31-48, decoded.Bounds().Dx())
	require.Equal(t, 100-1-52, decoded.Bounds().Dy())
}

func TestInspectSkipsCapture(t *testing.T) {
	page := &fakePage{html: readFixture(t, "absent.html"), shot: testScreenshot(t)}
	s, _, _ := newTestScraper(t, page)

	status, img, err := s.Inspect(context.Background(), Status.HasRadar)
	require.NoError(t, err)
	require.Equal(t, StateAbsent, status.State)
	require.Nil(t, img)
	require.False(t, page.screenshot)
}

func TestInspectCaptureFailureKeepsStatus(t *testing.T) {
	page := &fakePage{
		html:    readFixture(t, "present.html"),
		shot:    testScreenshot(t),
		missing: map[string]bool{".ol-attribution": true},
	}
	s, _, tel := newTestScraper(t, page)

	status, img, err := s.Inspect(context.Background(), Status.HasRadar)
	require.NoError(t, err)
	require.True(t, status.HasRadar())
	require.Nil(t, img)
	require.Len(t, tel.Reports("broken", report_inspect_capture), 1)
}

func TestInspectWithoutMapCanvas(t *testing.T) {
	page := &fakePage{
		html:    readFixture(t, "present.html"),
		shot:    testScreenshot(t),
		missing: map[string]bool{canvasSelector: true},
	}
	s, _, tel := newTestScraper(t, page)

	status, img, err := s.Inspect(context.Background(), Status.HasRadar)
	require.NoError(t, err)
	require.True(t, status.HasRadar())
	require.Nil(t, img)
	require.False(t, page.screenshot)
	require.True(t, page.closed)
	require.Len(t, tel.Reports("broken", report_inspect_capture), 1)
}

func TestCaptureMapWithoutCookieBanner(t *testing.T) {
	page := &fakePage{html: readFixture(t, "absent.html"), shot: testScreenshot(t), noCookies: true}
	s, _, tel := newTestScraper(t, page)

	img, err := s.CaptureMap(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, img)
	require.Len(t, tel.Reports("warning", report_capture_cookies), 1)
}

func TestCheckWithoutContent(t *testing.T) {
	page := &fakePage{
		html:    "<html><body>cargando</body></html>",
		missing: map[string]bool{contentSelector: true},
	}
	s, _, tel := newTestScraper(t, page)

	status, err := s.Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, StateUnknown, status.State)
	require.Len(t, tel.Reports("warning", report_check_wait_content), 1)
}

func TestCheckOpenFailure(t *testing.T) {
	s, opener, _ := newTestScraper(t, nil)
	opener.err = errors.New("net::ERR_NAME_NOT_RESOLVED")

	_, err := s.Check(context.Background())
	require.ErrorContains(t, err, "ERR_NAME_NOT_RESOLVED")
}

func TestStaticScraper(t *testing.T) {
	html := readFixture(t, "present.html")
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("content-type", "text/html; charset=utf-8")
		fmt.Fprint(w, html)
	}))
	defer server.Close()

	tel := &telemetry.Recorder{}
	s := NewStaticScraper(server.URL, chrono.FixedTime{At: testDay}, tel, nil)

	status, img, err := s.Inspect(context.Background(), func(Status) bool { return true })
	require.NoError(t, err)
	require.Nil(t, img)
	require.Equal(t, []string{"Avenida de Tolosa", "Paseo de Colón"}, status.Locations)
	require.Len(t, tel.Reports("warning", report_inspect_no_capturing), 1)
}

func TestStaticScraperHttpError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer server.Close()

	s := NewStaticScraper(server.URL, chrono.FixedTime{At: testDay}, &telemetry.Recorder{}, nil)
	_, err := s.Check(context.Background())
	require.Error(t, err)
}
