// Package triage classifies issues by type and priority and filters out the
// ones nobody needs to look at.
//
// Rules are plain keyword and regex tables. DefaultRules carries the built-in
// tables; a JSON rules file (--rules) or the DONE_KEYWORDS and NOISE_LABELS
// environment variables replace individual tables. Compile turns a Rules
// value into a Classifier, which is what the pipeline uses.
//
// An issue is kept when it is open, unassigned, mentions none of the done
// keywords in its title or body, and carries none of the noise labels.
package triage
