package history

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS transfers (
	seq            BIGINT PRIMARY KEY,
	tick           BIGINT NOT NULL,
	sender         TEXT   NOT NULL,
	receiver       TEXT   NOT NULL,
	amount         BIGINT NOT NULL,
	fee            BIGINT NOT NULL,
	classification TEXT   NOT NULL
);
CREATE INDEX IF NOT EXISTS transfers_sender   ON transfers (sender);
CREATE INDEX IF NOT EXISTS transfers_receiver ON transfers (receiver);
`

// sqlStore implements Store over database/sql for both drivers. The
// sequence counter is kept in process; the node is the only writer.
type sqlStore struct {
	db      *sql.DB
	driver  string
	nextSeq int64
}

func openSQL(driver, dsn string) (*sqlStore, error) {
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s history: %w", driver, err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create history schema: %w", err)
	}

	s := &sqlStore{db: db, driver: driver}

	var maxSeq sql.NullInt64
	if err := db.QueryRow("SELECT MAX(seq) FROM transfers").Scan(&maxSeq); err != nil {
		db.Close()
		return nil, fmt.Errorf("read history sequence: %w", err)
	}
	if maxSeq.Valid {
		s.nextSeq = maxSeq.Int64 + 1
	}
	return s, nil
}

// rebind rewrites ? placeholders to $N for postgres.
func (s *sqlStore) rebind(query string) string {
	if s.driver != "postgres" {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *sqlStore) Append(ctx context.Context, rec Record) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	seq := s.nextSeq
	_, err := s.db.ExecContext(ctx,
		s.rebind("INSERT INTO transfers (seq, tick, sender, receiver, amount, fee, classification) VALUES (?, ?, ?, ?, ?, ?, ?)"),
		seq, int64(rec.Tick), rec.From, rec.To, int64(rec.Amount), int64(rec.Fee), rec.Classification)
	if err != nil {
		return 0, fmt.Errorf("append transfer: %w", err)
	}
	s.nextSeq++
	return seq, nil
}

func (s *sqlStore) Recent(ctx context.Context, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT seq, tick, sender, receiver, amount, fee, classification FROM transfers ORDER BY seq DESC LIMIT ?"),
		limit)
	if err != nil {
		return nil, fmt.Errorf("query recent transfers: %w", err)
	}
	return scanRecords(rows)
}

func (s *sqlStore) ByAccount(ctx context.Context, account string, limit int) ([]Record, error) {
	if s.db == nil {
		return nil, ErrClosed
	}
	rows, err := s.db.QueryContext(ctx,
		s.rebind("SELECT seq, tick, sender, receiver, amount, fee, classification FROM transfers WHERE sender = ? OR receiver = ? ORDER BY seq DESC LIMIT ?"),
		account, account, limit)
	if err != nil {
		return nil, fmt.Errorf("query account transfers: %w", err)
	}
	return scanRecords(rows)
}

func (s *sqlStore) Count(ctx context.Context) (int64, error) {
	if s.db == nil {
		return 0, ErrClosed
	}
	var count int64
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transfers").Scan(&count); err != nil {
		return 0, fmt.Errorf("count transfers: %w", err)
	}
	return count, nil
}

func (s *sqlStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func scanRecords(rows *sql.Rows) ([]Record, error) {
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var tick, amt, fee int64
		if err := rows.Scan(&rec.Seq, &tick, &rec.From, &rec.To, &amt, &fee, &rec.Classification); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		rec.Tick = uint64(tick)
		rec.Amount = uint64(amt)
		rec.Fee = uint64(fee)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
