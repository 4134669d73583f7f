// Package audit records admin mutations in a queryable log stream.
// Entries ride the request-scoped zerolog logger, so each one carries the
// request correlation ID.
package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/nariz-encantado/server/internal/auth"
)

// Entry is one admin action against a resource.
type Entry struct {
	Action       string
	Actor        auth.Principal
	ResourceType string
	ResourceID   string
	Err          error
}

// Record writes the entry. Failed actions log at warn with the error,
// successful ones at info.
func Record(ctx context.Context, entry Entry) {
	logger := zerolog.Ctx(ctx)

	event := logger.Info()
	status := "success"
	if entry.Err != nil {
		event = logger.Warn().Err(entry.Err)
		status = "failure"
	}

	event.
		Str("audit", entry.Action).
		Str("actor", entry.Actor.Email).
		Str("resource_type", entry.ResourceType).
		Str("resource_id", entry.ResourceID).
		Str("status", status).
		Msg("admin action")
}
