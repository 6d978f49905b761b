// Package collect fetches a repository's open issues through the cache.
package collect
