// Package conversation assembles bounded conversation contexts for AI
// completion requests.
//
// Two modes are provided: Fixed returns the N most recent messages verbatim;
// TokenBudget bounds the context by an approximate token budget, summarizing
// older history into a single system entry when a summarizer is available and
// silently dropping it otherwise. The assembled context is a transient view:
// it is rebuilt from the store on every pipeline invocation and is never
// persisted as such.
package conversation
