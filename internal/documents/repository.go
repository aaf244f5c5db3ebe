package documents

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/JaimeStill/docket/internal/ocr"
	"github.com/JaimeStill/docket/internal/places"
	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
	"github.com/JaimeStill/docket/pkg/storage"
)

const intakeConcurrency = 4

type repo struct {
	db         *sql.DB
	storage    storage.System
	places     places.System
	fetcher    *fetcher
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a document repository implementing the System interface.
func New(
	db *sql.DB,
	store storage.System,
	placeSys places.System,
	logger *slog.Logger,
	pagination pagination.Config,
	maxSourceBytes int64,
) System {
	return &repo{
		db:         db,
		storage:    store,
		places:     placeSys,
		fetcher:    newFetcher(maxSourceBytes),
		logger:     logger.With("system", "documents"),
		pagination: pagination,
	}
}

func (r *repo) Handler(maxUploadSize int64, dispatch Dispatcher) *Handler {
	return NewHandler(r, r.logger, r.pagination, maxUploadSize, dispatch)
}

func (r *repo) List(
	ctx context.Context,
	page pagination.PageRequest,
	filters Filters,
) (*pagination.PageResult[Document], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "URL", "Filename")

	filters.Apply(qb)

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count documents: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	docs, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanDocument)
	if err != nil {
		return nil, fmt.Errorf("query documents: %w", err)
	}

	result := pagination.NewPageResult(docs, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Document, error) {
	return r.find(ctx, r.db, id)
}

func (r *repo) find(ctx context.Context, q repository.Querier, id uuid.UUID) (*Document, error) {
	stmt, args := query.NewBuilder(projection).BuildSingle("ID", id)

	d, err := repository.QueryOne(ctx, q, stmt, args, scanDocument)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &d, nil
}

func (r *repo) Content(ctx context.Context, id uuid.UUID) (*Content, error) {
	var (
		text sql.NullString
		hash sql.NullString
	)
	err := r.db.QueryRowContext(
		ctx,
		"SELECT text, content_hash FROM documents WHERE id = $1",
		id,
	).Scan(&text, &hash)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	if !text.Valid || !hash.Valid {
		return nil, ErrNoText
	}
	return &Content{DocumentID: id, Text: text.String, Hash: hash.String}, nil
}

// Intake registers each record's meeting and document. Records fail
// independently; a bad record never aborts the batch.
func (r *repo) Intake(ctx context.Context, records []IntakeRecord) []IntakeResult {
	results := make([]IntakeResult, len(records))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(intakeConcurrency)

	for i, rec := range records {
		g.Go(func() error {
			results[i].Index = i
			doc, err := r.intakeOne(gctx, rec)
			if err != nil {
				results[i].Error = err.Error()
				r.logger.Warn("intake record failed", "index", i, "url", rec.URL, "error", err)
				return nil
			}
			results[i].Document = doc
			return nil
		})
	}

	g.Wait()
	return results
}

func (r *repo) intakeOne(ctx context.Context, rec IntakeRecord) (*Document, error) {
	date, err := parseRecordDate(rec.RecordDate)
	if err != nil {
		return nil, err
	}
	if !rec.Category.Valid() {
		return nil, fmt.Errorf("%w: category %q", ErrInvalidIntake, rec.Category)
	}
	if _, err := url.ParseRequestURI(rec.URL); err != nil {
		return nil, fmt.Errorf("%w: url: %w", ErrInvalidIntake, err)
	}

	meeting, err := r.places.UpsertMeeting(ctx, places.MeetingCommand{
		PlaceID:    rec.PlaceID,
		ExternalID: rec.MeetingExternalID,
		Name:       rec.MeetingName,
		RecordDate: date,
	})
	if err != nil {
		return nil, fmt.Errorf("meeting: %w", err)
	}

	q := `
		INSERT INTO documents(meeting_id, category, url, html_url)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (meeting_id, category, url) DO UPDATE
		SET html_url = COALESCE(EXCLUDED.html_url, documents.html_url),
		    updated_at = NOW()
		RETURNING id`

	return repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Document, error) {
		var id uuid.UUID
		if err := tx.QueryRowContext(ctx, q, meeting.ID, rec.Category, rec.URL, rec.HTMLURL).Scan(&id); err != nil {
			return nil, fmt.Errorf("insert document: %w", err)
		}
		return r.find(ctx, tx, id)
	})
}

// Upload stores source bytes for a document. Replacing the source of an
// extracted document marks its text stale.
func (r *repo) Upload(ctx context.Context, id uuid.UUID, cmd UploadCommand) (*Document, error) {
	prior, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	key := buildStorageKey(id, sanitizeFilename(cmd.Filename))
	if err := r.storage.Upload(ctx, key, bytes.NewReader(cmd.Data), cmd.ContentType); err != nil {
		return nil, fmt.Errorf("upload document blob: %w", err)
	}

	q := `
		UPDATE documents
		SET storage_key = $2, filename = $3, content_type = $4, size_bytes = $5,
		    page_count = COALESCE($6, page_count),
		    extraction_status = CASE WHEN extraction_status = 'extracted' THEN 'stale' ELSE extraction_status END,
		    updated_at = NOW()
		WHERE id = $1`

	args := []any{id, key, cmd.Filename, cmd.ContentType, int64(len(cmd.Data)), cmd.PageCount}

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Document, error) {
		if err := repository.ExecExpectOne(ctx, tx, q, args...); err != nil {
			return nil, err
		}
		return r.find(ctx, tx, id)
	})
	if err != nil {
		if prior.StorageKey == nil || *prior.StorageKey != key {
			if delErr := r.storage.Delete(ctx, key); delErr != nil {
				r.logger.Warn("compensating blob delete failed", "key", key, "error", delErr)
			}
		}
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	if prior.StorageKey != nil && *prior.StorageKey != key {
		if delErr := r.storage.Delete(ctx, *prior.StorageKey); delErr != nil {
			r.logger.Warn("stale blob delete failed", "key", *prior.StorageKey, "error", delErr)
		}
	}

	r.logger.Info("document source stored", "id", id, "key", key, "extraction_status", d.ExtractionStatus)
	return d, nil
}

// Source returns the document's bytes, fetching and storing them from the
// document URL on first access.
func (r *repo) Source(ctx context.Context, id uuid.UUID) ([]byte, error) {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return nil, err
	}

	if doc.StorageKey != nil {
		body, err := r.storage.Download(ctx, *doc.StorageKey)
		if err != nil {
			return nil, fmt.Errorf("download source: %w", err)
		}
		defer body.Close()
		return io.ReadAll(body)
	}

	data, contentType, err := r.fetcher.fetch(ctx, doc.URL)
	if err != nil {
		return nil, err
	}

	if _, err := r.Upload(ctx, id, UploadCommand{
		Data:        data,
		Filename:    filenameFromURL(doc.URL),
		ContentType: detectContentType(contentType, data),
		PageCount:   pdfPageCount(r.logger, data),
	}); err != nil {
		return nil, err
	}
	return data, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	doc, err := r.Find(ctx, id)
	if err != nil {
		return err
	}

	_, err = repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM documents WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	keys := []string{layoutKey(id)}
	if doc.StorageKey != nil {
		keys = append(keys, *doc.StorageKey)
	}
	for _, key := range keys {
		if delErr := r.storage.Delete(ctx, key); delErr != nil && !errors.Is(delErr, storage.ErrNotFound) {
			r.logger.Warn("blob delete failed after DB delete", "key", key, "error", delErr)
		}
	}

	r.logger.Info("document deleted", "id", id)
	return nil
}

// SetText records canonical text. Derived children become stale by hash
// mismatch; nothing is recomputed here.
func (r *repo) SetText(ctx context.Context, id uuid.UUID, text, hash string, pages int) (*Document, error) {
	q := `
		UPDATE documents
		SET text = $2, content_hash = $3, page_count = COALESCE(NULLIF($4, 0), page_count),
		    extraction_status = 'extracted', extraction_error = NULL, updated_at = NOW()
		WHERE id = $1`

	d, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (*Document, error) {
		if err := repository.ExecExpectOne(ctx, tx, q, id, text, hash, pages); err != nil {
			return nil, err
		}
		return r.find(ctx, tx, id)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return d, nil
}

func (r *repo) SetExtractionError(ctx context.Context, id uuid.UUID, msg string) error {
	return r.exec(ctx,
		"UPDATE documents SET extraction_error = $2, updated_at = NOW() WHERE id = $1",
		id, msg,
	)
}

func (r *repo) SetAgendaFailed(ctx context.Context, id uuid.UUID, msg string) error {
	return r.exec(ctx,
		"UPDATE documents SET agenda_status = 'failed', agenda_error = $2, updated_at = NOW() WHERE id = $1",
		id, msg,
	)
}

// SetSummary records a summary outcome against the content hash it was
// derived from. A hash that no longer matches reads as stale.
func (r *repo) SetSummary(ctx context.Context, id uuid.UUID, hash string, summary *string, status string) error {
	return r.exec(ctx, `
		UPDATE documents
		SET summary = $2, summary_status = $3, summary_hash = $4, updated_at = NOW()
		WHERE id = $1`,
		id, summary, status, hash,
	)
}

func (r *repo) exec(ctx context.Context, q string, args ...any) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, q, args...)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return nil
}

func (r *repo) SaveLayout(ctx context.Context, id uuid.UUID, layout *ocr.Layout) error {
	data, err := json.Marshal(layout)
	if err != nil {
		return fmt.Errorf("marshal layout: %w", err)
	}
	if err := r.storage.Upload(ctx, layoutKey(id), bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("upload layout: %w", err)
	}
	return nil
}

// Layout returns the stored page layout, or nil when none was recorded.
func (r *repo) Layout(ctx context.Context, id uuid.UUID) (*ocr.Layout, error) {
	body, err := r.storage.Download(ctx, layoutKey(id))
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("download layout: %w", err)
	}
	defer body.Close()

	var layout ocr.Layout
	if err := json.NewDecoder(body).Decode(&layout); err != nil {
		return nil, fmt.Errorf("decode layout: %w", err)
	}
	return &layout, nil
}

func buildStorageKey(id uuid.UUID, filename string) string {
	return fmt.Sprintf("documents/%s/%s", id, filename)
}

func layoutKey(id uuid.UUID) string {
	return fmt.Sprintf("documents/%s/layout.json", id)
}

func sanitizeFilename(name string) string {
	name = filepath.Base(name)
	if name == "." || name == "" || name == "/" || name == "layout.json" {
		name = "document"
	}
	return url.PathEscape(name)
}

func filenameFromURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "document.pdf"
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" || name == "" {
		return "document.pdf"
	}
	return name
}

func parseRecordDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: record_date %q", ErrInvalidIntake, raw)
}
