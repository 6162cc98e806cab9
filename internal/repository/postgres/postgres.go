package postgres

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// schema is applied idempotently at startup. The trigger feeds the
// LISTEN/NOTIFY channel that Subscribe re-queries on.
const schema = `
CREATE TABLE IF NOT EXISTS visits (
	id            UUID PRIMARY KEY DEFAULT gen_random_uuid(),
	visitor_name  TEXT NOT NULL,
	resident_name TEXT NOT NULL,
	phone         TEXT NOT NULL,
	purpose       TEXT NOT NULL,
	visit_date    DATE NOT NULL,
	visit_time    TEXT NOT NULL,
	notify_email  TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'pending',
	created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
	used_at       TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS visits_visit_date_idx ON visits (visit_date);

CREATE OR REPLACE FUNCTION notify_visit_event() RETURNS trigger AS $$
BEGIN
	PERFORM pg_notify('visit_events', NEW.id::text);
	RETURN NEW;
END;
$$ LANGUAGE plpgsql;

DROP TRIGGER IF EXISTS visits_notify ON visits;
CREATE TRIGGER visits_notify AFTER INSERT OR UPDATE ON visits
	FOR EACH ROW EXECUTE FUNCTION notify_visit_event();
`

// EnsureSchema creates the visits table and its notify trigger if missing.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to apply visits schema: %w", err)
	}
	return nil
}
