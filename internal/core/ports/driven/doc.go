// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
// These must be provided for the pipeline to function:
//
//   - EmbeddingService: Turns text into fixed-length vectors
//   - VectorStore: Stores chunks and answers meeting-scoped similarity queries
//   - LLMService: Generates text from a prompt
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - Transcriber: Speech-to-text. Without it, only text transcripts can be ingested.
//   - PromptStore: Customisable prompt templates. Without it, built-in templates are used.
//   - NormaliserRegistry: Transcript file formats. Without it, files are read as plain text.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
