// Copyright 2026 Red Hat
// SPDX-License-Identifier: Apache-2.0

package history

// schemaSQL contains the DDL for the history database.
// Timestamps are stored as ISO 8601 TEXT.
const schemaSQL = `
CREATE TABLE IF NOT EXISTS operations (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	operation_id  TEXT    NOT NULL UNIQUE,
	operation     TEXT    NOT NULL,
	backend       TEXT    NOT NULL,
	namespace     TEXT    NOT NULL,
	tenant        TEXT    NOT NULL,
	status        TEXT    NOT NULL DEFAULT 'in_progress',
	request_body  TEXT,
	error_summary TEXT,
	started_at    TEXT    NOT NULL,
	completed_at  TEXT
);

CREATE INDEX IF NOT EXISTS idx_operations_started_at ON operations(started_at);
CREATE INDEX IF NOT EXISTS idx_operations_tenant     ON operations(namespace, tenant);
CREATE INDEX IF NOT EXISTS idx_operations_status     ON operations(status);
`
