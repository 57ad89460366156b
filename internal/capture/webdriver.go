package capture

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultSentinelXPath is the XPath polled by wait-for-element before a
// screenshot is taken. Component galleries mount the rendered story under
// a fixed wrapper depth; this marker is framework-specific, not a generic
// "wait for body" heuristic, so it's named rather than inlined.
const DefaultSentinelXPath = "/html/body/div[5]/*"

// DefaultScreenshotXPath is the element screenshotted once the sentinel is
// present: the whole document, so the capture includes any chrome the
// gallery renders around the story itself.
const DefaultScreenshotXPath = "/html"

const (
	waitForElementTimeout = 5 * time.Second
	waitForElementPoll    = 500 * time.Millisecond
)

// WebDriverClient is a minimal client for the Selenium/WebDriver JSON wire
// protocol: no example repo in the retrieval pack ships one (chromedp
// packages in the pack speak the unrelated Chrome DevTools Protocol), so
// this talks raw JSON-over-HTTP to a configured Selenium endpoint instead of
// reaching for a third-party client.
type WebDriverClient struct {
	baseURL    string
	httpClient *http.Client
}

// NewWebDriverClient builds a client against a Selenium-compatible endpoint
// at http://host:port.
func NewWebDriverClient(host, port string, httpClient *http.Client) *WebDriverClient {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &WebDriverClient{
		baseURL:    fmt.Sprintf("http://%s:%s", host, port),
		httpClient: httpClient,
	}
}

// Session is one opened WebDriver session, scoped to a single Capture Pool
// worker and closed via Close (usually deferred) once its chunk is done.
type Session struct {
	client    *WebDriverClient
	sessionID string
}

type wireEnvelope struct {
	Value json.RawMessage `json:"value"`
}

func (w *WebDriverClient) do(ctx context.Context, method, path string, body any) (json.RawMessage, error) {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal webdriver request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, w.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build webdriver request %s %s: %w", method, path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("webdriver request %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("webdriver request %s %s: unexpected status %d", method, path, resp.StatusCode)
	}

	var env wireEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decode webdriver response %s %s: %w", method, path, err)
	}
	return env.Value, nil
}

// NewSession opens a new WebDriver session (new-session), requesting a
// headless Chrome matching the original capture tool's capabilities.
func (w *WebDriverClient) NewSession(ctx context.Context) (*Session, error) {
	caps := map[string]any{
		"capabilities": map[string]any{
			"alwaysMatch": map[string]any{
				"goog:chromeOptions": map[string]any{
					"args": []string{"--headless", "--disable-gpu", "--no-sandbox", "--disable-dev-shm-usage"},
				},
			},
		},
	}

	value, err := w.do(ctx, http.MethodPost, "/session", caps)
	if err != nil {
		return nil, fmt.Errorf("new-session: %w", err)
	}

	var decoded struct {
		SessionID string `json:"sessionId"`
	}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return nil, fmt.Errorf("new-session: decode session id: %w", err)
	}

	return &Session{client: w, sessionID: decoded.SessionID}, nil
}

// Navigate loads url in the session (navigate).
func (s *Session) Navigate(ctx context.Context, url string) error {
	_, err := s.client.do(ctx, http.MethodPost, "/session/"+s.sessionID+"/url", map[string]string{"url": url})
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

type elementRef struct {
	ID string `json:"element-6066-11e4-a52e-4f735466cecf"`
}

// WaitForElement polls for xpath's presence every 500ms up to a 5s ceiling
// (wait-for-element), matching the original capture tool's wait/interval.
func (s *Session) WaitForElement(ctx context.Context, xpath string) error {
	deadline := time.Now().Add(waitForElementTimeout)
	var lastErr error

	for {
		if _, err := s.findElement(ctx, xpath); err == nil {
			return nil
		} else {
			lastErr = err
		}

		if time.Now().After(deadline) {
			return fmt.Errorf("wait-for-element %s: timed out: %w", xpath, lastErr)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(waitForElementPoll):
		}
	}
}

func (s *Session) findElement(ctx context.Context, xpath string) (elementRef, error) {
	value, err := s.client.do(ctx, http.MethodPost, "/session/"+s.sessionID+"/element", map[string]string{
		"using": "xpath",
		"value": xpath,
	})
	if err != nil {
		return elementRef{}, err
	}
	var ref elementRef
	if err := json.Unmarshal(value, &ref); err != nil {
		return elementRef{}, fmt.Errorf("decode element reference: %w", err)
	}
	return ref, nil
}

// Rect locates xpath and returns its bounding rectangle's width/height as
// reported by the browser (get-element-rect) — the DOM/CSS dimensions, which
// can differ from the screenshot's raster pixel dimensions under device
// pixel ratio scaling.
func (s *Session) Rect(ctx context.Context, xpath string) (width, height float64, err error) {
	ref, err := s.findElement(ctx, xpath)
	if err != nil {
		return 0, 0, fmt.Errorf("locate rect element %s: %w", xpath, err)
	}

	value, err := s.client.do(ctx, http.MethodGet, "/session/"+s.sessionID+"/element/"+ref.ID+"/rect", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("get-element-rect %s: %w", xpath, err)
	}

	var decoded struct {
		Width  float64 `json:"width"`
		Height float64 `json:"height"`
	}
	if err := json.Unmarshal(value, &decoded); err != nil {
		return 0, 0, fmt.Errorf("decode get-element-rect payload: %w", err)
	}
	return decoded.Width, decoded.Height, nil
}

// Screenshot locates xpath and returns its decoded PNG bytes
// (element-screenshot).
func (s *Session) Screenshot(ctx context.Context, xpath string) ([]byte, error) {
	ref, err := s.findElement(ctx, xpath)
	if err != nil {
		return nil, fmt.Errorf("locate screenshot element %s: %w", xpath, err)
	}

	value, err := s.client.do(ctx, http.MethodGet, "/session/"+s.sessionID+"/element/"+ref.ID+"/screenshot", nil)
	if err != nil {
		return nil, fmt.Errorf("element-screenshot %s: %w", xpath, err)
	}

	var encoded string
	if err := json.Unmarshal(value, &encoded); err != nil {
		return nil, fmt.Errorf("decode element-screenshot payload: %w", err)
	}

	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("base64-decode element-screenshot payload: %w", err)
	}
	return raw, nil
}

// Close deletes the session (close). Safe to defer unconditionally.
func (s *Session) Close(ctx context.Context) error {
	_, err := s.client.do(ctx, http.MethodDelete, "/session/"+s.sessionID, nil)
	if err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return nil
}
