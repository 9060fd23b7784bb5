// Package opstore persists the operation log of every applied block in
// sqlite so block and account history can be queried after the fact.
package opstore

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/ardanlabs/rewardchain/foundation/blockchain/database"
	"github.com/ardanlabs/rewardchain/foundation/blockchain/oplog"
	lru "github.com/hashicorp/golang-lru"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// MaxLimit bounds the number of entries a single history query returns.
const MaxLimit = 1000

// Entry is one operation in an account's history.
type Entry struct {
	Seq    int64        `json:"seq"`
	Record oplog.Record `json:"record"`
}

// Store provides access to the persisted operation log.
type Store struct {
	conn   *sql.DB
	blocks *lru.Cache
}

// Open opens or creates the store at the path. The cache keeps the decoded
// operations of the most recently read blocks.
func Open(path string, cacheSize int) (*Store, error) {
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// An in memory database only lives as long as its one connection.
	conn.SetMaxOpenConns(1)

	cache, err := lru.New(cacheSize)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("constructing cache: %w", err)
	}

	s := Store{
		conn:   conn,
		blocks: cache,
	}

	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &s, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.conn.Close()
}

func (s *Store) migrate() error {
	for _, stmt := range strings.Split(schemaSQL, ";") {
		stmt = strings.TrimSpace(stmt)
		if stmt == "" {
			continue
		}
		if _, err := s.conn.Exec(stmt); err != nil {
			return fmt.Errorf("executing migration: %w", err)
		}
	}
	return nil
}

// Write stores the operations of one block and indexes each of them under
// every account it impacts.
func (s *Store) Write(records []oplog.Record) (err error) {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	next := make(map[database.AccountID]int64)

	for _, r := range records {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encoding operation %d: %w", r.ID, err)
		}

		const q = `
		INSERT INTO operations (id, block, trx_in_block, op_in_trx, virtual, kind, body)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

		if _, err := tx.Exec(q, int64(r.ID), int64(r.Block), r.TrxInBlock, r.OpInTrx, r.Virtual, int(r.Op.Kind()), string(body)); err != nil {
			return fmt.Errorf("inserting operation %d: %w", r.ID, err)
		}

		for _, accountID := range r.Op.Payload.Impacted() {
			seq, exists := next[accountID]
			if !exists {
				row := tx.QueryRow(`SELECT COALESCE(MAX(seq), -1) + 1 FROM account_operations WHERE account = ?`, string(accountID))
				if err := row.Scan(&seq); err != nil {
					return fmt.Errorf("reading history of %s: %w", accountID, err)
				}
			}

			if _, err := tx.Exec(`INSERT INTO account_operations (account, seq, op_id) VALUES (?, ?, ?)`, string(accountID), seq, int64(r.ID)); err != nil {
				return fmt.Errorf("indexing operation %d for %s: %w", r.ID, accountID, err)
			}
			next[accountID] = seq + 1
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.blocks.Remove(records[0].Block)
	return nil
}

// Block returns the operations of the block in canonical order.
func (s *Store) Block(num uint64) ([]oplog.Record, error) {
	if v, ok := s.blocks.Get(num); ok {
		return v.([]oplog.Record), nil
	}

	rows, err := s.conn.Query(`SELECT body FROM operations WHERE block = ? ORDER BY id`, int64(num))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []oplog.Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.blocks.Add(num, records)
	return records, nil
}

// Account returns up to limit entries of the account's history ending at
// sequence from, oldest first. A negative from starts at the latest entry.
func (s *Store) Account(accountID database.AccountID, from int64, limit int) ([]Entry, error) {
	if limit <= 0 || limit > MaxLimit {
		return nil, database.Validationf("limit must be between 1 and %d", MaxLimit)
	}

	if from < 0 {
		from = 1<<62 - 1
	}

	const q = `
	SELECT a.seq, o.body
	FROM account_operations a
	JOIN operations o ON o.id = a.op_id
	WHERE a.account = ? AND a.seq <= ?
	ORDER BY a.seq DESC
	LIMIT ?`

	rows, err := s.conn.Query(q, string(accountID), from, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var seq int64
		var body string
		if err := rows.Scan(&seq, &body); err != nil {
			return nil, err
		}

		var r oplog.Record
		if err := json.Unmarshal([]byte(body), &r); err != nil {
			return nil, fmt.Errorf("decoding history entry %d: %w", seq, err)
		}
		entries = append(entries, Entry{Seq: seq, Record: r})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}

	return entries, nil
}

// LatestBlock returns the highest block with stored operations.
func (s *Store) LatestBlock() (uint64, error) {
	var num sql.NullInt64
	if err := s.conn.QueryRow(`SELECT MAX(block) FROM operations`).Scan(&num); err != nil {
		return 0, err
	}
	return uint64(num.Int64), nil
}

// Truncate removes every stored operation.
func (s *Store) Truncate() error {
	if _, err := s.conn.Exec(`DELETE FROM account_operations`); err != nil {
		return err
	}
	if _, err := s.conn.Exec(`DELETE FROM operations`); err != nil {
		return err
	}

	s.blocks.Purge()
	return nil
}

// TruncateFrom removes the operations of the block and of every later block.
func (s *Store) TruncateFrom(num uint64) (err error) {
	tx, err := s.conn.Begin()
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	if _, err := tx.Exec(`DELETE FROM account_operations WHERE op_id IN (SELECT id FROM operations WHERE block >= ?)`, int64(num)); err != nil {
		return err
	}
	if _, err := tx.Exec(`DELETE FROM operations WHERE block >= ?`, int64(num)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}

	s.blocks.Purge()
	return nil
}

func scanRecord(rows *sql.Rows) (oplog.Record, error) {
	var body string
	if err := rows.Scan(&body); err != nil {
		return oplog.Record{}, err
	}

	var r oplog.Record
	if err := json.Unmarshal([]byte(body), &r); err != nil {
		return oplog.Record{}, fmt.Errorf("decoding operation: %w", err)
	}
	if r.Op.Payload == nil {
		return oplog.Record{}, errors.New("decoding operation: empty payload")
	}

	return r, nil
}
