package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/library"
)

var sheetMusicOrderings = map[string]string{
	"title":      "title",
	"composer":   "composer",
	"created_at": "created_at",
}

// missingPDF matches the records library.SheetMusic.NeedsPDF reports.
const missingPDF = "(pdf_url IS NULL OR pdf_url = '' OR pdf_url ILIKE '%example.com%')"

type sheetMusicRow struct {
	ID        string         `db:"id"`
	Title     string         `db:"title"`
	Composer  null.String    `db:"composer"`
	Arranger  null.String    `db:"arranger"`
	Voicing   null.String    `db:"voicing"`
	Tags      pq.StringArray `db:"tags"`
	PDFURL    null.String    `db:"pdf_url"`
	CreatedBy null.String    `db:"created_by"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func toSheetMusicRow(sm library.SheetMusic) sheetMusicRow {
	tags := pq.StringArray(sm.Tags)
	if tags == nil {
		tags = pq.StringArray{}
	}
	return sheetMusicRow{
		ID:        sm.ID,
		Title:     sm.Title,
		Composer:  nullStr(sm.Composer),
		Arranger:  nullStr(sm.Arranger),
		Voicing:   nullStr(sm.Voicing),
		Tags:      tags,
		PDFURL:    nullStr(sm.PDFURL),
		CreatedBy: nullStr(sm.CreatedBy),
		CreatedAt: sm.CreatedAt.UTC(),
		UpdatedAt: sm.UpdatedAt.UTC(),
	}
}

func (r sheetMusicRow) toSheetMusic() library.SheetMusic {
	tags := []string(r.Tags)
	if tags == nil {
		tags = []string{}
	}
	return library.SheetMusic{
		ID:        r.ID,
		Title:     r.Title,
		Composer:  r.Composer.String,
		Arranger:  r.Arranger.String,
		Voicing:   r.Voicing.String,
		Tags:      tags,
		PDFURL:    r.PDFURL.String,
		CreatedBy: r.CreatedBy.String,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
}

func toSheetMusicSlice(rows []sheetMusicRow) []library.SheetMusic {
	sms := make([]library.SheetMusic, 0, len(rows))
	for _, r := range rows {
		sms = append(sms, r.toSheetMusic())
	}
	return sms
}

type libraryRepository struct {
	db *sqlx.DB
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *sqlx.DB) *libraryRepository {
	return &libraryRepository{db: db}
}

func (repo *libraryRepository) CreateSheetMusic(ctx context.Context, sm library.SheetMusic) (library.SheetMusic, error) {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO sheet_music
		(id, title, composer, arranger, voicing, tags, pdf_url, created_by, created_at, updated_at)
		VALUES (:id, :title, :composer, :arranger, :voicing, :tags, :pdf_url, :created_by, :created_at, :updated_at)`,
		toSheetMusicRow(sm))
	if err != nil {
		return library.SheetMusic{}, errors.Wrap(err, "inserting sheet music")
	}
	return sm, nil
}

func (repo *libraryRepository) GetSheetMusicByID(ctx context.Context, id string) (library.SheetMusic, error) {
	var row sheetMusicRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM sheet_music WHERE id::text = $1", id); err != nil {
		return library.SheetMusic{}, trapNoRowsErr(err, library.ErrNotFound, "finding sheet music by ID")
	}
	return row.toSheetMusic(), nil
}

func (repo *libraryRepository) QuerySheetMusic(ctx context.Context, filter *library.Filter, ordering []core.DBOrdering) ([]library.SheetMusic, error) {
	w := &where{}
	if filter != nil {
		if filter.Search != "" {
			val := "%" + filter.Search + "%"
			w.add("(title ILIKE ? OR composer ILIKE ? OR arranger ILIKE ?)", val, val, val)
		}
		if filter.Voicing != "" {
			w.add("voicing ILIKE ?", filter.Voicing)
		}
		if filter.Tag != "" {
			w.add("? = ANY(tags)", core.CleanString(filter.Tag, true /* lower */))
		}
	}
	var rows []sheetMusicRow
	order := core.OrderByClause(ordering, sheetMusicOrderings, "title ASC")
	if err := selectWhere(ctx, repo.db, &rows, "SELECT * FROM sheet_music", w, order); err != nil {
		return nil, errors.Wrap(err, "querying sheet music")
	}
	return toSheetMusicSlice(rows), nil
}

func (repo *libraryRepository) UpdateSheetMusic(ctx context.Context, sm library.SheetMusic) (library.SheetMusic, error) {
	res, err := repo.db.NamedExecContext(ctx, `UPDATE sheet_music SET title = :title, composer = :composer,
		arranger = :arranger, voicing = :voicing, tags = :tags, pdf_url = :pdf_url, updated_at = :updated_at
		WHERE id = :id`, toSheetMusicRow(sm))
	if err != nil {
		return library.SheetMusic{}, errors.Wrap(err, "updating sheet music")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return library.SheetMusic{}, library.ErrNotFound
	}
	return sm, nil
}

func (repo *libraryRepository) DeleteSheetMusic(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM sheet_music WHERE id::text = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting sheet music")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return library.ErrNotFound
	}
	return nil
}

func (repo *libraryRepository) QueryMissingPDFs(ctx context.Context, limit int) ([]library.SheetMusic, error) {
	var rows []sheetMusicRow
	err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM sheet_music WHERE "+missingPDF+" ORDER BY created_at LIMIT $1", limit)
	if err != nil {
		return nil, errors.Wrap(err, "querying sheet music without pdf")
	}
	return toSheetMusicSlice(rows), nil
}

func (repo *libraryRepository) CountSheetMusic(ctx context.Context) (total, pending int, err error) {
	var counts struct {
		Total   int `db:"total"`
		Pending int `db:"pending"`
	}
	err = repo.db.GetContext(ctx, &counts,
		"SELECT COUNT(*) AS total, COUNT(*) FILTER (WHERE "+missingPDF+") AS pending FROM sheet_music")
	if err != nil {
		return 0, 0, errors.Wrap(err, "counting sheet music")
	}
	return counts.Total, counts.Pending, nil
}
