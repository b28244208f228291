package repository

import (
	"context"
	"fmt"
)

// Column headers of the entries sheet, in sheet order.
const (
	ColID       = "ID"
	ColTitle    = "Title"
	ColContent  = "Content"
	ColPlatform = "Platform"
	ColAuthor   = "Author"
	ColDate     = "Date"
	ColImageURL = "Image URL"
	ColImages   = "Images"
	ColCaption  = "Caption"
	ColIsAlbum  = "Is Album"
)

var Columns = []string{
	ColID, ColTitle, ColContent, ColPlatform, ColAuthor,
	ColDate, ColImageURL, ColImages, ColCaption, ColIsAlbum,
}

type (
	// Row is one record keyed by column header. Missing keys read as empty cells.
	Row map[string]Cell

	// RowStore is the tabular backend entries live in.
	RowStore interface {
		Rows(ctx context.Context) ([]Row, error)
		Append(ctx context.Context, row Row) error
	}

	// StoreError wraps any failure of a RowStore call.
	StoreError struct {
		Op  string
		Err error
	}
)

func (r Row) Get(column string) Cell {
	return r[column]
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func storeErr(op string, err error) error {
	if err == nil {
		return nil
	}
	return &StoreError{Op: op, Err: err}
}
