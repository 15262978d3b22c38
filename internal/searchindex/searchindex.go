// Package searchindex maintains a derived, disposable SQLite cache of
// inbox message metadata, used only to back convenience queries like
// "search across every team" or "tail the combined log". It is never
// the source of truth and is never consulted by the inbox engine's
// append/spool-drain path: the JSON inbox files remain authoritative,
// and this index is always safe to delete and rebuild.
package searchindex

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/agentmail/atm/internal/home"
	"github.com/agentmail/atm/internal/schema"

	_ "modernc.org/sqlite"
)

// Index wraps the derived SQLite database.
type Index struct {
	db *sql.DB
}

// Open creates (or opens) the index database at path in WAL mode with
// a generous busy timeout; the "concurrent writers" here are
// rebuilders racing an indexer, not a shared communication medium.
func Open(path string) (*Index, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating search index dir: %w", err)
	}
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(60000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open search index: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(30 * time.Minute)

	idx := &Index{db: db}
	if err := idx.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate search index: %w", err)
	}
	return idx, nil
}

// Close closes the underlying database handle.
func (idx *Index) Close() error { return idx.db.Close() }

func (idx *Index) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS messages (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		team       TEXT NOT NULL,
		agent      TEXT NOT NULL,
		from_agent TEXT NOT NULL,
		text       TEXT NOT NULL,
		summary    TEXT,
		timestamp  TEXT NOT NULL,
		read       INTEGER NOT NULL DEFAULT 0,
		message_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_messages_team_agent ON messages(team, agent);
	CREATE INDEX IF NOT EXISTS idx_messages_timestamp ON messages(timestamp);
	CREATE VIRTUAL TABLE IF NOT EXISTS messages_fts USING fts5(
		text, summary, content='messages', content_rowid='id'
	);

	CREATE TABLE IF NOT EXISTS rebuild_state (
		id           INTEGER PRIMARY KEY CHECK (id = 1),
		last_rebuilt TEXT NOT NULL
	);
	`
	_, err := idx.db.Exec(schema)
	return err
}

// retryOnContention wraps fn with an exponential-backoff retry for
// transient SQLite errors (SQLITE_BUSY, SQLITE_LOCKED,
// IOERR_SHORT_READ).
func retryOnContention(fn func() error) error {
	return retryOp(defaultRetryConfig, fn)
}

// Rebuild drops and repopulates the index by walking every
// teams_root/<team>/inboxes/<agent>.json file under l. It is the only
// way data enters the index; there is no incremental write path shared
// with the inbox engine, so a rebuild is always consistent with
// whatever the JSON files currently say.
func Rebuild(idx *Index, l home.Layout) error {
	return retryOnContention(func() error {
		tx, err := idx.db.Begin()
		if err != nil {
			return fmt.Errorf("begin rebuild tx: %w", err)
		}
		defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

		// External-content FTS5 tables are cleared with the 'delete-all'
		// special command, not a plain DELETE.
		if _, err := tx.Exec(`INSERT INTO messages_fts (messages_fts) VALUES ('delete-all')`); err != nil {
			return fmt.Errorf("clearing fts index: %w", err)
		}
		if _, err := tx.Exec(`DELETE FROM messages`); err != nil {
			return fmt.Errorf("clearing messages: %w", err)
		}

		teams, err := listTeams(l)
		if err != nil {
			return err
		}
		for _, team := range teams {
			if err := indexTeam(tx, l, team); err != nil {
				return fmt.Errorf("indexing team %s: %w", team, err)
			}
		}

		if _, err := tx.Exec(
			`INSERT INTO rebuild_state (id, last_rebuilt) VALUES (1, ?)
			 ON CONFLICT(id) DO UPDATE SET last_rebuilt = excluded.last_rebuilt`,
			time.Now().UTC().Format(time.RFC3339Nano),
		); err != nil {
			return fmt.Errorf("recording rebuild time: %w", err)
		}

		return tx.Commit()
	})
}

func listTeams(l home.Layout) ([]string, error) {
	entries, err := os.ReadDir(l.TeamsRoot())
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading teams root: %w", err)
	}
	var teams []string
	for _, e := range entries {
		if e.IsDir() {
			teams = append(teams, e.Name())
		}
	}
	return teams, nil
}

func indexTeam(tx *sql.Tx, l home.Layout, team string) error {
	dir := l.InboxesDir(team)
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading inboxes dir: %w", err)
	}

	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		agent := strings.TrimSuffix(e.Name(), ".json")
		messages, err := readInbox(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("reading inbox %s/%s: %w", team, agent, err)
		}
		for _, m := range messages {
			if err := insertMessage(tx, team, agent, m); err != nil {
				return err
			}
		}
	}
	return nil
}

func insertMessage(tx *sql.Tx, team, agent string, m schema.InboxMessage) error {
	res, err := tx.Exec(
		`INSERT INTO messages (team, agent, from_agent, text, summary, timestamp, read, message_id)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		team, agent, m.From, m.Text, m.Summary, m.Timestamp, boolToInt(m.Read), m.MessageID,
	)
	if err != nil {
		return fmt.Errorf("inserting message: %w", err)
	}
	rowID, err := res.LastInsertId()
	if err != nil {
		return err
	}
	_, err = tx.Exec(
		`INSERT INTO messages_fts (rowid, text, summary) VALUES (?, ?, ?)`,
		rowID, m.Text, m.Summary,
	)
	if err != nil {
		return fmt.Errorf("indexing fts row: %w", err)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
