// Package agent implements the two-node research/synthesis pipeline shared by
// the advisory and negotiation flows.
//
// A Pipeline runs a Research node and then a Synthesis node over a State.
// Research fills State.ResearchText from an injected Searcher unless research
// is already present; Synthesis builds one prompt and calls an injected
// Completer exactly once. Neither node returns an error: lookup failures
// degrade to Placeholder and generation failures to Fallback, so Invoke
// always yields a non-empty ResultText.
package agent
