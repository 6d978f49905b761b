// Issuelens summarizes the open issues of a GitHub repository.
//
// It fetches open issues, drops the ones that are assigned, already resolved
// or labeled as noise, classifies the rest by type and priority, and asks an
// LLM for a one-line summary of each. Issue lists and summaries are cached in
// sqlite so repeated runs are cheap; when the LLM is unavailable a title
// excerpt stands in for the summary.
//
// Usage:
//
//	issuelens run octo/hello            # summarize and write output/summary.md
//	issuelens run --offline             # repo from the origin remote, no LLM calls
//	issuelens run --format json --no-files
//	issuelens cache show                # cache statistics
//	issuelens models doctor             # check the configured provider
//
// Configuration is read from $XDG_CONFIG_HOME/issuelens/config.json, then the
// environment, then flags.
package main
