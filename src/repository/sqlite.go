package repository

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore is a file-backed stand-in for the spreadsheet during local
// development. The id column is declared without a type so that, like a
// sheet cell, it keeps whatever kind of value was written to it.
type SQLiteStore struct {
	conn *sql.DB
}

// sqlColumns maps sheet headers to table columns, in sheet order.
var sqlColumns = []struct {
	header string
	column string
}{
	{ColID, "id"},
	{ColTitle, "title"},
	{ColContent, "content"},
	{ColPlatform, "platform"},
	{ColAuthor, "author"},
	{ColDate, "date"},
	{ColImageURL, "image_url"},
	{ColImages, "images"},
	{ColCaption, "caption"},
	{ColIsAlbum, "is_album"},
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{conn: conn}
	if err := s.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) migrate() error {
	query := `CREATE TABLE IF NOT EXISTS entries (
		position INTEGER PRIMARY KEY AUTOINCREMENT,
		id,
		title TEXT,
		content TEXT,
		platform TEXT,
		author TEXT,
		date TEXT,
		image_url TEXT,
		images TEXT,
		caption TEXT,
		is_album TEXT
	)`
	if _, err := s.conn.Exec(query); err != nil {
		return fmt.Errorf("failed to execute migration query: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Rows(ctx context.Context) ([]Row, error) {
	query := `SELECT id, title, content, platform, author, date, image_url, images, caption, is_album
		FROM entries ORDER BY position`
	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, storeErr("list rows", err)
	}
	defer rows.Close()

	var result []Row
	for rows.Next() {
		values := make([]any, len(sqlColumns))
		ptrs := make([]any, len(sqlColumns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, storeErr("list rows", err)
		}
		row := make(Row, len(sqlColumns))
		for i, col := range sqlColumns {
			row[col.header] = CellFromValue(values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr("list rows", err)
	}
	return result, nil
}

func (s *SQLiteStore) Append(ctx context.Context, row Row) error {
	query := `INSERT INTO entries (id, title, content, platform, author, date, image_url, images, caption, is_album)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	args := make([]any, len(sqlColumns))
	for i, col := range sqlColumns {
		args[i] = row.Get(col.header).Value()
	}
	if _, err := s.conn.ExecContext(ctx, query, args...); err != nil {
		return storeErr("append row", err)
	}
	return nil
}
