// Package audit writes a best-effort audit trail to Postgres.
//
// Every state-changing commerce or account action is recorded via LogAction.
// The trail lives outside the primary document store so a Mongo compromise
// cannot silently rewrite it. The Postgres connection is optional: a nil *sql.DB
// disables auditing entirely (dev/test).
//
// Actor types: "user" | "admin" | "system"
// Action naming convention: "{resource}.{verb}"
//   e.g. "subscription.activate", "purchase.create", "otp.verify"
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
)

// Schema is the DDL for the audit_log table, applied at startup when a
// Postgres connection is configured.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_log (
	id            BIGSERIAL PRIMARY KEY,
	created_at    TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	actor_type    TEXT NOT NULL,
	actor_id      TEXT,
	action        TEXT NOT NULL,
	resource_type TEXT,
	resource_id   TEXT,
	details       JSONB NOT NULL DEFAULT '{}',
	ip_address    TEXT,
	user_agent    TEXT
);
CREATE INDEX IF NOT EXISTS audit_log_actor_idx ON audit_log (actor_id, created_at DESC);
CREATE INDEX IF NOT EXISTS audit_log_action_idx ON audit_log (action, created_at DESC);
`

// EnsureSchema applies the audit schema. No-op when db is nil.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if db == nil {
		return nil
	}
	_, err := db.ExecContext(ctx, Schema)
	return err
}

// LogAction inserts a row into the audit_log table.
//
// On error the failure is logged but NOT propagated — audit writes are
// best-effort and must never cause a user-visible error.
func LogAction(
	ctx context.Context,
	db *sql.DB,
	actorType, actorID, action, resourceType, resourceID string,
	details map[string]interface{},
) {
	if db == nil {
		return
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO audit_log (
			actor_type, actor_id, action,
			resource_type, resource_id, details
		) VALUES ($1, $2, $3, $4, $5, $6)`,
		actorType, nullable(actorID), action,
		resourceType, nullable(resourceID), string(detailsJSON),
	)
	if err != nil {
		slog.Warn("audit write failed", "action", action, "error", err)
	}
}

// LogActionWithRequest also captures the request's IP and User-Agent.
func LogActionWithRequest(
	r *http.Request,
	db *sql.DB,
	actorType, actorID, action, resourceType, resourceID string,
	details map[string]interface{},
) {
	if db == nil {
		return
	}

	detailsJSON, err := json.Marshal(details)
	if err != nil {
		detailsJSON = []byte("{}")
	}

	ip := r.Header.Get("X-Forwarded-For")
	if ip == "" {
		ip = r.RemoteAddr
	}

	_, err = db.ExecContext(r.Context(), `
		INSERT INTO audit_log (
			actor_type, actor_id, action,
			resource_type, resource_id, details,
			ip_address, user_agent
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		actorType, nullable(actorID), action,
		resourceType, nullable(resourceID), string(detailsJSON),
		ip, r.Header.Get("User-Agent"),
	)
	if err != nil {
		slog.Warn("audit write failed", "action", action, "error", err)
	}
}

func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}
