package places

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/JaimeStill/docket/pkg/pagination"
	"github.com/JaimeStill/docket/pkg/query"
	"github.com/JaimeStill/docket/pkg/repository"
)

type repo struct {
	db         *sql.DB
	logger     *slog.Logger
	pagination pagination.Config
}

// New creates a place repository implementing the System interface.
func New(db *sql.DB, logger *slog.Logger, pagination pagination.Config) System {
	return &repo{
		db:         db,
		logger:     logger.With("system", "places"),
		pagination: pagination,
	}
}

func (r *repo) Handler() *Handler {
	return NewHandler(r, r.logger, r.pagination)
}

func (r *repo) List(ctx context.Context, page pagination.PageRequest) (*pagination.PageResult[Place], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(projection, defaultSort).
		WhereSearch(page.Search, "Name", "LegistarClient")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count places: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	places, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanPlace)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}

	result := pagination.NewPageResult(places, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) Find(ctx context.Context, id uuid.UUID) (*Place, error) {
	q, args := query.NewBuilder(projection).BuildSingle("ID", id)

	p, err := repository.QueryOne(ctx, r.db, q, args, scanPlace)
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}
	return &p, nil
}

func (r *repo) Create(ctx context.Context, cmd CreateCommand) (*Place, error) {
	if err := validate(&cmd); err != nil {
		return nil, err
	}

	q := `
		INSERT INTO places(name, legistar_client, html_agendas, segmentation_mode)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + placeColumns

	args := []any{cmd.Name, cmd.LegistarClient, cmd.HTMLAgendas, cmd.SegmentationMode}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Place, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPlace)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("place created", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Update(ctx context.Context, id uuid.UUID, cmd UpdateCommand) (*Place, error) {
	if err := validate(&cmd); err != nil {
		return nil, err
	}

	q := `
		UPDATE places
		SET name = $1, legistar_client = $2, html_agendas = $3, segmentation_mode = $4, updated_at = NOW()
		WHERE id = $5
		RETURNING ` + placeColumns

	args := []any{cmd.Name, cmd.LegistarClient, cmd.HTMLAgendas, cmd.SegmentationMode, id}

	p, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Place, error) {
		return repository.QueryOne(ctx, tx, q, args, scanPlace)
	})
	if err != nil {
		return nil, repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("place updated", "id", p.ID, "name", p.Name)
	return &p, nil
}

func (r *repo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (struct{}, error) {
		return struct{}{}, repository.ExecExpectOne(ctx, tx, "DELETE FROM places WHERE id = $1", id)
	})
	if err != nil {
		return repository.MapError(err, ErrNotFound, ErrDuplicate)
	}

	r.logger.Info("place deleted", "id", id)
	return nil
}

func (r *repo) Meetings(ctx context.Context, placeID uuid.UUID, page pagination.PageRequest) (*pagination.PageResult[Meeting], error) {
	page.Normalize(r.pagination)

	qb := query.
		NewBuilder(meetingProjection, meetingSort).
		WhereEquals("PlaceID", placeID).
		WhereSearch(page.Search, "Name")

	if len(page.Sort) > 0 {
		qb.OrderByFields(page.Sort)
	}

	countSQL, countArgs := qb.BuildCount()
	var total int
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, fmt.Errorf("count meetings: %w", err)
	}

	pageSQL, pageArgs := qb.BuildPage(page.Page, page.PageSize)
	meetings, err := repository.QueryMany(ctx, r.db, pageSQL, pageArgs, scanMeeting)
	if err != nil {
		return nil, fmt.Errorf("query meetings: %w", err)
	}

	result := pagination.NewPageResult(meetings, total, page.Page, page.PageSize)
	return &result, nil
}

func (r *repo) FindMeeting(ctx context.Context, id uuid.UUID) (*Meeting, error) {
	q, args := query.NewBuilder(meetingProjection).BuildSingle("ID", id)

	m, err := repository.QueryOne(ctx, r.db, q, args, scanMeeting)
	if err != nil {
		return nil, repository.MapError(err, ErrMeetingNotFound, ErrDuplicate)
	}
	return &m, nil
}

// UpsertMeeting inserts the meeting or returns the existing row. Intake is
// trusted as given: a known meeting keeps its stored name and date.
func (r *repo) UpsertMeeting(ctx context.Context, cmd MeetingCommand) (*Meeting, error) {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Name == "" || cmd.RecordDate.IsZero() {
		return nil, fmt.Errorf("%w: meeting name and record_date required", ErrInvalidPlace)
	}

	m, err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) (Meeting, error) {
		existing, err := r.lookupMeeting(ctx, tx, cmd)
		if err != nil {
			return Meeting{}, err
		}
		if existing != nil {
			return *existing, nil
		}

		q := `
			INSERT INTO meetings(place_id, external_id, name, record_date)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + meetingColumns

		return repository.QueryOne(
			ctx, tx, q,
			[]any{cmd.PlaceID, cmd.ExternalID, cmd.Name, cmd.RecordDate},
			scanMeeting,
		)
	})
	if err != nil {
		if repository.IsForeignKeyViolation(err) {
			return nil, ErrNotFound
		}
		return nil, repository.MapError(err, ErrMeetingNotFound, ErrDuplicate)
	}

	return &m, nil
}

func (r *repo) lookupMeeting(ctx context.Context, tx *sql.Tx, cmd MeetingCommand) (*Meeting, error) {
	qb := query.NewBuilder(meetingProjection).WhereEquals("PlaceID", cmd.PlaceID)
	if cmd.ExternalID != nil {
		qb.WhereEquals("ExternalID", cmd.ExternalID)
	} else {
		qb.WhereEquals("RecordDate", cmd.RecordDate).WhereEquals("Name", cmd.Name)
	}

	q, args := qb.BuildSingleOrNull()
	return repository.QueryOptional(ctx, tx, q, args, scanMeeting)
}

func validate(cmd *CreateCommand) error {
	cmd.Name = strings.TrimSpace(cmd.Name)
	if cmd.Name == "" {
		return fmt.Errorf("%w: name required", ErrInvalidPlace)
	}
	if cmd.SegmentationMode == "" {
		cmd.SegmentationMode = ModeBalanced
	}
	if cmd.LegistarClient != nil && strings.TrimSpace(*cmd.LegistarClient) == "" {
		cmd.LegistarClient = nil
	}
	return nil
}
