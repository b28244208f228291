package app

import (
	"context"
	"strings"
	"sync"
	"time"

	"feedserv/src/logger"
	"feedserv/src/repository"
)

const (
	// DateLayout renders like 03/05/2024 01:04:05 PM.
	DateLayout    = "01/02/2006 03:04:05 PM"
	DefaultAuthor = "Dashboard User"
)

// Registrar writes entries to the row store and reads them back.
type Registrar struct {
	store  repository.RowStore
	author string
	loc    *time.Location
	now    func() time.Time
	log    *logger.Logger

	// mu serializes read-allocate-append. Two processes sharing a sheet can
	// still race on the same id.
	mu sync.Mutex
}

func NewRegistrar(store repository.RowStore, author string, loc *time.Location, log *logger.Logger) *Registrar {
	if author == "" {
		author = DefaultAuthor
	}
	if loc == nil {
		loc = time.Local
	}
	return &Registrar{
		store:  store,
		author: author,
		loc:    loc,
		now:    time.Now,
		log:    log.WithFields(map[string]any{"component": "registrar"}),
	}
}

func (r *Registrar) Register(ctx context.Context, req EntryRequest) (Registration, error) {
	if err := req.Validate(); err != nil {
		return Registration{}, err
	}
	date := r.now().In(r.loc).Format(DateLayout)
	isAlbum := len(req.ImageURLs) > 1

	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.store.Rows(ctx)
	if err != nil {
		return Registration{}, err
	}
	ids := make([]repository.Cell, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.Get(repository.ColID))
	}
	id := NextID(ids)

	row := repository.Row{
		repository.ColID:       repository.Number(float64(id)),
		repository.ColTitle:    repository.Text(req.Caption),
		repository.ColContent:  repository.Text(req.Description),
		repository.ColPlatform: repository.Text(req.Category),
		repository.ColAuthor:   repository.Text(r.author),
		repository.ColDate:     repository.Text(date),
		repository.ColImageURL: repository.Text(req.ImageURLs[0]),
		repository.ColImages:   repository.Text(strings.Join(req.ImageURLs, ",")),
		repository.ColCaption:  repository.Text(req.Caption),
		repository.ColIsAlbum:  repository.Text(albumFlag(isAlbum)),
	}
	if err := r.store.Append(ctx, row); err != nil {
		return Registration{}, err
	}

	r.log.Info("entry registered", "id", id, "category", req.Category, "images", len(req.ImageURLs))
	return Registration{ID: id, IsAlbum: isAlbum}, nil
}

func (r *Registrar) List(ctx context.Context) ([]Entry, error) {
	rows, err := r.store.Rows(ctx)
	if err != nil {
		return nil, err
	}
	entries := make([]Entry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, Entry{
			ID:       row.Get(repository.ColID).String(),
			Title:    row.Get(repository.ColTitle).String(),
			Content:  row.Get(repository.ColContent).String(),
			Platform: row.Get(repository.ColPlatform).String(),
			Author:   row.Get(repository.ColAuthor).String(),
			Date:     row.Get(repository.ColDate).String(),
			ImageURL: row.Get(repository.ColImageURL).String(),
			Images:   row.Get(repository.ColImages).String(),
			Caption:  row.Get(repository.ColCaption).String(),
			IsAlbum:  row.Get(repository.ColIsAlbum).String(),
		})
	}
	return entries, nil
}

func albumFlag(isAlbum bool) string {
	if isAlbum {
		return "TRUE"
	}
	return "FALSE"
}
