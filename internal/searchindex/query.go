package searchindex

import (
	"database/sql"
	"fmt"
)

// Result is one indexed message row, as returned by Search and Log.
type Result struct {
	Team      string
	Agent     string
	From      string
	Text      string
	Summary   string
	Timestamp string
	Read      bool
	MessageID string
}

// SearchQuery narrows a full-text Search call.
type SearchQuery struct {
	Text  string // required: FTS5 match expression against text+summary
	Team  string // optional: restrict to one team
	Agent string // optional: restrict to one agent's inbox
	Limit int    // 0 means DefaultLimit
}

// DefaultLimit bounds unset-limit queries so a broad search or log call
// can't accidentally return the entire index in one response.
const DefaultLimit = 100

// Search runs an FTS5 match against indexed message text and summary,
// most recent first, backing `atm search`.
func Search(idx *Index, q SearchQuery) ([]Result, error) {
	if q.Text == "" {
		return nil, fmt.Errorf("search: text must not be empty")
	}
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `
	SELECT m.team, m.agent, m.from_agent, m.text, m.summary, m.timestamp, m.read, m.message_id
	FROM messages_fts f
	JOIN messages m ON m.id = f.rowid
	WHERE messages_fts MATCH ?`
	args := []interface{}{q.Text}

	if q.Team != "" {
		query += ` AND m.team = ?`
		args = append(args, q.Team)
	}
	if q.Agent != "" {
		query += ` AND m.agent = ?`
		args = append(args, q.Agent)
	}
	query += ` ORDER BY m.timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

// LogQuery narrows a chronological Log call.
type LogQuery struct {
	Team        string // empty means across every team
	Agent       string // empty means every agent in scope
	AcrossTeams bool   // when true, Team is ignored
	Limit       int    // 0 means DefaultLimit
}

// Log returns indexed messages in chronological order, most recent
// first, backing `atm log` / `atm log --across-teams`.
func Log(idx *Index, q LogQuery) ([]Result, error) {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	query := `SELECT team, agent, from_agent, text, summary, timestamp, read, message_id FROM messages WHERE 1=1`
	var args []interface{}

	if !q.AcrossTeams && q.Team != "" {
		query += ` AND team = ?`
		args = append(args, q.Team)
	}
	if q.Agent != "" {
		query += ` AND agent = ?`
		args = append(args, q.Agent)
	}
	query += ` ORDER BY timestamp DESC LIMIT ?`
	args = append(args, limit)

	rows, err := idx.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("log query: %w", err)
	}
	defer rows.Close()
	return scanResults(rows)
}

func scanResults(rows *sql.Rows) ([]Result, error) {
	var out []Result
	for rows.Next() {
		var r Result
		var readInt int
		if err := rows.Scan(&r.Team, &r.Agent, &r.From, &r.Text, &r.Summary, &r.Timestamp, &readInt, &r.MessageID); err != nil {
			return nil, fmt.Errorf("scanning result row: %w", err)
		}
		r.Read = readInt != 0
		out = append(out, r)
	}
	return out, rows.Err()
}
