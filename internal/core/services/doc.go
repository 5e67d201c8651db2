// Package services implements the driving port interfaces.
// Services contain the RAG pipeline logic (indexing, retrieval, insight
// extraction and orchestration) and call out to driven ports (adapters).
//
// Services never talk to a collaborator directly: every embedding,
// store and generation call goes through a port and the shared retry policy.
package services
