// Package github is a thin GitHub REST client for listing a repository's
// open issues.
//
// ListOpenIssues walks the paginated issues endpoint, drops pull requests,
// and stops at an empty page, at GitHub's pagination cap (HTTP 422), or at
// the configured item limit. Requests are paced by a token-bucket limiter,
// and when the X-RateLimit-Remaining header runs low the client waits until
// the advertised reset time before asking for the next page.
//
// Errors are returned as *retry.Failure values so callers can tell fatal
// responses (404, bad credentials) from ones worth retrying (rate limits,
// 5xx, network timeouts).
package github
