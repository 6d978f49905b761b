// Package issue defines the GitHub issue record shared by the fetcher, the
// cache envelope, the triage rules, and the report writers.
package issue
