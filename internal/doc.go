// Package internal documents the volunteer-management server internals.
//
// The internal tree is organized by responsibility:
// - api: HTTP handlers, middleware, problem responses, and routing
// - domain: business logic (users, events, documents) and domain models
// - storage: file store interfaces and the Postgres repositories
// - auth, audit, config, email, metrics, sanitize, validation: shared infrastructure
//
// Code in internal/ is not meant for external import.
package internal
