package managebac

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"mbnotifier/internal/domain"
	"mbnotifier/internal/ports"
)

const userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
	"AppleWebKit/537.36 (KHTML, like Gecko) " +
	"Chrome/131.0.0.0 Safari/537.36"

var (
	// ErrLogin marks credential/redirect login failures, fatal to a run.
	ErrLogin = errors.New("managebac: login failed")
	// ErrFetch marks per-request HTTP failures; callers decide whether to
	// skip the child or abort.
	ErrFetch = errors.New("managebac: request failed")
)

var childLinkExpr = regexp.MustCompile(`/parent/child/(\d+)`)

// Client is a session-holding HTTP client for the ManageBac parent portal.
// It moves from anonymous to authenticated on Login and keeps the session
// cookie in its jar; there is no token refresh beyond that.
type Client struct {
	baseURL  *url.URL
	email    string
	password string
	http     *http.Client
	logger   *slog.Logger
	loggedIn bool
}

var _ ports.AssignmentSource = (*Client)(nil)

// NewClient wires an HTTP client with a cookie jar; a nil client gets a
// default one with a 30s timeout.
func NewClient(baseURL, email, password string, httpClient *http.Client, logger *slog.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base url %s: %w", baseURL, err)
	}

	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if httpClient.Jar == nil {
		jar, err := cookiejar.New(nil)
		if err != nil {
			return nil, fmt.Errorf("cookie jar: %w", err)
		}
		httpClient.Jar = jar
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:  parsed,
		email:    email,
		password: password,
		http:     httpClient,
		logger:   logger,
	}, nil
}

// Login fetches the login page, lifts the anti-forgery token out of the
// hidden form field and posts credentials. Landing back on the login page
// means bad credentials, which is reported as ErrLogin rather than ErrFetch.
func (c *Client) Login(ctx context.Context) error {
	loginURL := c.baseURL.String() + "/login"
	c.logger.Info("fetching login page", "url", loginURL)

	doc, err := c.getDocument(ctx, loginURL)
	if err != nil {
		return err
	}

	token, ok := doc.Find(`input[name="authenticity_token"]`).First().Attr("value")
	if !ok {
		return fmt.Errorf("%w: no authenticity token on login page", ErrLogin)
	}

	form := url.Values{}
	form.Set("authenticity_token", token)
	form.Set("login", c.email)
	form.Set("password", c.password)
	form.Set("remember_me", "1")
	form.Set("commit", "Sign in")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.String()+"/sessions", strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build login request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	c.logger.Info("logging in", "email", c.email)
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: post sessions: %v", ErrFetch, err)
	}
	defer drainBody(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: sessions returned %s", ErrFetch, resp.Status)
	}
	if strings.Contains(resp.Request.URL.Path, "/login") {
		return fmt.Errorf("%w: redirected back to login page, check credentials", ErrLogin)
	}

	c.loggedIn = true
	c.logger.Info("login successful", "redirect", resp.Request.URL.String())
	return nil
}

// Children parses the child-switcher links off the parent dashboard,
// deduplicated by ID in first-seen order. Logs in first when needed.
func (c *Client) Children(ctx context.Context) ([]domain.ChildProfile, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}

	doc, err := c.getDocument(ctx, c.baseURL.String()+"/parent")
	if err != nil {
		return nil, err
	}

	children := parseChildren(doc)
	names := make([]string, 0, len(children))
	for _, child := range children {
		names = append(names, child.Name)
	}
	c.logger.Info("discovered children", "count", len(children), "names", names)
	return children, nil
}

func parseChildren(doc *goquery.Document) []domain.ChildProfile {
	var children []domain.ChildProfile
	seen := map[string]struct{}{}

	doc.Find(`a[href*="/parent/child/"]`).Each(func(_ int, link *goquery.Selection) {
		href, _ := link.Attr("href")
		match := childLinkExpr.FindStringSubmatch(href)
		if match == nil {
			return
		}
		id := match[1]
		if _, ok := seen[id]; ok {
			return
		}
		seen[id] = struct{}{}

		name := strings.TrimSpace(link.Find(".fw-semibold").First().Text())
		if name == "" {
			name = strings.TrimSpace(link.Text())
		}
		children = append(children, domain.ChildProfile{Name: name, ID: id})
	})
	return children
}

// switchChild issues the state-changing PUT that sets the server-side
// "current child"; the listing endpoints are scoped to it implicitly, so this
// must precede every per-child fetch.
func (c *Client) switchChild(ctx context.Context, childID string) error {
	doc, err := c.getDocument(ctx, c.baseURL.String()+"/parent")
	if err != nil {
		return err
	}
	token, _ := doc.Find(`meta[name="csrf-token"]`).First().Attr("content")

	switchURL := fmt.Sprintf("%s/parent/child/%s", c.baseURL.String(), childID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, switchURL, nil)
	if err != nil {
		return fmt.Errorf("build switch request: %w", err)
	}
	req.Header.Set("X-CSRF-Token", token)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")
	req.Header.Set("Accept", "text/javascript, application/javascript")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: switch child %s: %v", ErrFetch, childID, err)
	}
	defer drainBody(resp)

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%w: switch child %s returned %s", ErrFetch, childID, resp.Status)
	}
	c.logger.Info("switched child", "child_id", childID)
	return nil
}

// Assignments fetches the overdue and upcoming listings for one child against
// the caller's reference day, so a whole run classifies consistently. The
// overdue view is included as-is (the endpoint already scopes it); upcoming
// records are filtered to the configured window before merging.
func (c *Client) Assignments(ctx context.Context, child domain.ChildProfile, today time.Time, windowDays int) ([]domain.Assignment, error) {
	if err := c.ensureLogin(ctx); err != nil {
		return nil, err
	}
	if err := c.switchChild(ctx, child.ID); err != nil {
		return nil, err
	}

	overdueDoc, err := c.getDocument(ctx, c.listingURL(viewOverdue))
	if err != nil {
		return nil, err
	}
	assignments := c.parseTasks(overdueDoc, child.Name, viewOverdue, today)
	overdueCount := len(assignments)

	upcomingDoc, err := c.getDocument(ctx, c.listingURL(viewUpcoming))
	if err != nil {
		return nil, err
	}
	upcomingCount := 0
	for _, task := range c.parseTasks(upcomingDoc, child.Name, viewUpcoming, today) {
		if task.IsUpcoming(today, windowDays) {
			assignments = append(assignments, task)
			upcomingCount++
		}
	}

	c.logger.Info("fetched assignments",
		"child", child.Name, "overdue", overdueCount, "upcoming", upcomingCount)
	return assignments, nil
}

func (c *Client) ensureLogin(ctx context.Context) error {
	if c.loggedIn {
		return nil
	}
	return c.Login(ctx)
}

func (c *Client) listingURL(v view) string {
	return fmt.Sprintf("%s/parent/tasks_and_deadlines?view=%s", c.baseURL.String(), v)
}

func (c *Client) getDocument(ctx context.Context, pageURL string) (*goquery.Document, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: get %s: %v", ErrFetch, pageURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("%w: %s returned %s", ErrFetch, pageURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse document %s: %w", pageURL, err)
	}
	return doc, nil
}

func (c *Client) resolveURL(href string) string {
	if href == "" {
		return ""
	}
	ref, err := url.Parse(href)
	if err != nil {
		return href
	}
	return c.baseURL.ResolveReference(ref).String()
}

func drainBody(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))
	resp.Body.Close()
}
