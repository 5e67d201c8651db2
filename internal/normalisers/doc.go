// Package normalisers turns transcript files into plain transcript text.
// Each subpackage handles one family of formats: plain text, Markdown
// notes, Word documents and caption exports (WebVTT, SRT).
//
// Normalisers are registered with a Registry at startup; Default returns
// one holding every built-in normaliser.
package normalisers
