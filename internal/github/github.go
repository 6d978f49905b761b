package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os/exec"
	"regexp"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/dshills/issuelens/internal/issue"
	"github.com/dshills/issuelens/internal/redact"
	"github.com/dshills/issuelens/internal/retry"
)

const (
	defaultAPIURL   = "https://api.github.com"
	perPage         = 100
	DefaultMaxItems = 10000
	// Below this many remaining requests the client waits for the reset.
	lowRemaining = 10
)

// Options configures a Client.
type Options struct {
	Token             string
	APIURL            string
	MaxItems          int
	RequestsPerSecond float64
	Timeout           time.Duration
	Logger            *slog.Logger
}

// Client provides access to the GitHub REST API.
type Client struct {
	token    string
	apiURL   string
	httpCli  *http.Client
	limiter  *rate.Limiter
	maxItems int
	log      *slog.Logger

	sleep func(ctx context.Context, d time.Duration) error
	now   func() time.Time
}

// NewClient creates a client. An empty token sends unauthenticated requests.
func NewClient(opts Options) *Client {
	apiURL := strings.TrimRight(opts.APIURL, "/")
	if apiURL == "" {
		apiURL = defaultAPIURL
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = DefaultMaxItems
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Client{
		token:    opts.Token,
		apiURL:   apiURL,
		httpCli:  &http.Client{Timeout: opts.Timeout},
		limiter:  rate.NewLimiter(limit, 1),
		maxItems: opts.MaxItems,
		log:      opts.Logger,
		sleep:    retry.SleepContext,
		now:      time.Now,
	}
}

type apiIssue struct {
	Number int     `json:"number"`
	Title  string  `json:"title"`
	Body   *string `json:"body"`
	Labels []struct {
		Name string `json:"name"`
	} `json:"labels"`
	Assignees []struct {
		Login string `json:"login"`
	} `json:"assignees"`
	State       string          `json:"state"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	HTMLURL     string          `json:"html_url"`
	PullRequest json.RawMessage `json:"pull_request,omitempty"`
}

func (a apiIssue) toIssue() issue.Issue {
	is := issue.Issue{
		Number:    a.Number,
		Title:     a.Title,
		State:     a.State,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
		HTMLURL:   a.HTMLURL,
		Labels:    []string{},
		Assignees: []string{},
	}
	if a.Body != nil {
		is.Body = *a.Body
	}
	for _, l := range a.Labels {
		is.Labels = append(is.Labels, l.Name)
	}
	for _, u := range a.Assignees {
		is.Assignees = append(is.Assignees, u.Login)
	}
	return is
}

// ListOpenIssues returns the open issues of owner/repo, excluding pull
// requests, in the order GitHub returns them.
func (c *Client) ListOpenIssues(ctx context.Context, owner, repo string) ([]issue.Issue, error) {
	var out []issue.Issue
	for page := 1; len(out) < c.maxItems; page++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		items, hdr, done, err := c.fetchPage(ctx, owner, repo, page)
		if err != nil {
			return nil, err
		}
		if done || len(items) == 0 {
			break
		}
		for _, it := range items {
			if it.PullRequest != nil {
				continue
			}
			out = append(out, it.toIssue())
			if len(out) >= c.maxItems {
				break
			}
		}
		if len(items) < perPage {
			break
		}
		if err := c.waitIfLow(ctx, hdr); err != nil {
			return nil, err
		}
	}
	c.log.Debug("fetched open issues", "repo", owner+"/"+repo, "count", len(out))
	if out == nil {
		out = []issue.Issue{}
	}
	return out, nil
}

func (c *Client) fetchPage(ctx context.Context, owner, repo string, page int) ([]apiIssue, http.Header, bool, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/issues?state=open&sort=updated&direction=desc&per_page=%d&page=%d", c.apiURL, owner, repo, perPage, page)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, nil, false, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpCli.Do(req)
	if err != nil {
		return nil, nil, false, classifyTransportError(ctx, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, false, retry.New(retry.KindTransient, fmt.Errorf("reading response: %w", err))
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusUnprocessableEntity:
		// GitHub refuses pages past its pagination window.
		return nil, resp.Header, true, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil, false, retry.New(retry.KindNotFound, fmt.Errorf("repository %s/%s not found", owner, repo))
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, nil, false, retry.New(retry.KindAuth, fmt.Errorf("GitHub rejected the token: %s", snippet(body)))
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden && isRateLimited(resp.Header):
		return nil, nil, false, retry.RateLimited(
			fmt.Errorf("GitHub rate limit exceeded (status %d)", resp.StatusCode), resetTime(resp.Header, c.now()))
	case resp.StatusCode == http.StatusForbidden:
		return nil, nil, false, retry.New(retry.KindAuth, fmt.Errorf("access to %s/%s forbidden: %s", owner, repo, snippet(body)))
	case resp.StatusCode >= 500:
		return nil, nil, false, retry.New(retry.KindTransient, fmt.Errorf("GitHub API error (status %d)", resp.StatusCode))
	default:
		return nil, nil, false, retry.New(retry.KindAPIError, fmt.Errorf("GitHub API error (status %d): %s", resp.StatusCode, snippet(body)))
	}

	var items []apiIssue
	if err := json.Unmarshal(body, &items); err != nil {
		return nil, nil, false, retry.New(retry.KindAPIError, fmt.Errorf("parsing response: %w", err))
	}
	return items, resp.Header, false, nil
}

// waitIfLow sleeps until the advertised reset when few requests remain.
func (c *Client) waitIfLow(ctx context.Context, hdr http.Header) error {
	remaining, err := strconv.Atoi(hdr.Get("X-RateLimit-Remaining"))
	if err != nil || remaining >= lowRemaining {
		return nil
	}
	reset, err := strconv.ParseInt(hdr.Get("X-RateLimit-Reset"), 10, 64)
	if err != nil || reset <= 0 {
		return nil
	}
	wait := time.Unix(reset, 0).Sub(c.now()) + time.Second
	if wait <= 0 {
		return nil
	}
	c.log.Warn("GitHub rate limit nearly exhausted, waiting for reset",
		"remaining", remaining, "wait", wait.Round(time.Second))
	return c.sleep(ctx, wait)
}

func isRateLimited(h http.Header) bool {
	return h.Get("X-RateLimit-Remaining") == "0" || h.Get("Retry-After") != ""
}

func resetTime(h http.Header, now time.Time) time.Time {
	if v := h.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil {
			return now.Add(time.Duration(secs) * time.Second)
		}
	}
	if v := h.Get("X-RateLimit-Reset"); v != "" {
		if epoch, err := strconv.ParseInt(v, 10, 64); err == nil && epoch > 0 {
			return time.Unix(epoch, 0)
		}
	}
	return time.Time{}
}

func classifyTransportError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return retry.New(retry.KindTimeout, fmt.Errorf("fetching issues: %w", err))
	}
	return retry.New(retry.KindTransient, fmt.Errorf("fetching issues: %w", err))
}

func snippet(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return redact.Secrets(s)
}

var (
	httpsRemoteRe = regexp.MustCompile(`https?://[^/]+/([^/]+)/([^/.\s]+)`)
	sshRemoteRe   = regexp.MustCompile(`[^@]+@[^:]+:([^/]+)/([^/.\s]+)`)
	slugRe        = regexp.MustCompile(`^([A-Za-z0-9_.-]+)/([A-Za-z0-9_.-]+)$`)
)

// ParseRepo accepts "owner/repo" or any GitHub remote URL.
func ParseRepo(s string) (owner, repo string, err error) {
	s = strings.TrimSpace(s)
	if m := slugRe.FindStringSubmatch(s); len(m) == 3 {
		return m[1], strings.TrimSuffix(m[2], ".git"), nil
	}
	return ParseRemoteURL(s)
}

// DetectRepo parses owner/repo from the git remote origin URL.
func DetectRepo() (owner, repo string, err error) {
	out, err := exec.Command("git", "remote", "get-url", "origin").Output()
	if err != nil {
		return "", "", fmt.Errorf("cannot detect repo: git remote get-url origin failed: %w", err)
	}
	return ParseRemoteURL(strings.TrimSpace(string(out)))
}

// ParseRemoteURL extracts owner/repo from a git remote URL.
func ParseRemoteURL(url string) (owner, repo string, err error) {
	url = strings.TrimSuffix(url, ".git")

	if m := httpsRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	if m := sshRemoteRe.FindStringSubmatch(url); len(m) == 3 {
		return m[1], m[2], nil
	}
	return "", "", fmt.Errorf("cannot parse owner/repo from remote URL: %s", url)
}
