package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core/liturgy"
)

type readingsRow struct {
	Date             time.Time      `db:"date"`
	Title            null.String    `db:"title"`
	LiturgicalSeason null.String    `db:"liturgical_season"`
	SeasonColor      null.String    `db:"season_color"`
	SaintOfDay       null.String    `db:"saint_of_day"`
	Rank             null.String    `db:"rank"`
	FirstReading     types.JSONText `db:"first_reading"`
	Psalm            types.JSONText `db:"psalm"`
	SecondReading    types.JSONText `db:"second_reading"`
	Gospel           types.JSONText `db:"gospel"`
	Source           string         `db:"source"`
	FetchedAt        time.Time      `db:"fetched_at"`
}

type liturgyRepository struct {
	db *sqlx.DB
}

var _ liturgy.Repository = (*liturgyRepository)(nil) // interface compliance check

func NewLiturgyRepository(db *sqlx.DB) *liturgyRepository {
	return &liturgyRepository{db: db}
}

func (repo *liturgyRepository) GetReadings(ctx context.Context, date string) (liturgy.Readings, error) {
	var row readingsRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM liturgical_readings WHERE date = $1::date", date); err != nil {
		return liturgy.Readings{}, trapNoRowsErr(err, liturgy.ErrNotFound, "finding readings")
	}
	r := liturgy.Readings{
		Date:             row.Date.Format("2006-01-02"),
		Title:            row.Title.String,
		LiturgicalSeason: row.LiturgicalSeason.String,
		SeasonColor:      row.SeasonColor.String,
		SaintOfDay:       row.SaintOfDay.String,
		Rank:             row.Rank.String,
		Source:           row.Source,
		FetchedAt:        row.FetchedAt,
	}
	for txt, dst := range map[*types.JSONText]**liturgy.Reading{
		&row.FirstReading:  &r.FirstReading,
		&row.Psalm:         &r.Psalm,
		&row.SecondReading: &r.SecondReading,
		&row.Gospel:        &r.Gospel,
	} {
		if err := unmarshalJSON(*txt, dst); err != nil {
			return liturgy.Readings{}, err
		}
	}
	return r, nil
}

func (repo *liturgyRepository) SaveReadings(ctx context.Context, r liturgy.Readings) error {
	date, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return errors.Wrap(err, "parsing readings date")
	}
	row := readingsRow{
		Date:             date,
		Title:            nullStr(r.Title),
		LiturgicalSeason: nullStr(r.LiturgicalSeason),
		SeasonColor:      nullStr(r.SeasonColor),
		SaintOfDay:       nullStr(r.SaintOfDay),
		Rank:             nullStr(r.Rank),
		Source:           r.Source,
		FetchedAt:        r.FetchedAt.UTC(),
	}
	for dst, reading := range map[*types.JSONText]*liturgy.Reading{
		&row.FirstReading:  r.FirstReading,
		&row.Psalm:         r.Psalm,
		&row.SecondReading: r.SecondReading,
		&row.Gospel:        r.Gospel,
	} {
		if *dst, err = jsonText(reading); err != nil {
			return err
		}
	}

	_, err = repo.db.NamedExecContext(ctx, `INSERT INTO liturgical_readings (date, title, liturgical_season,
		season_color, saint_of_day, rank, first_reading, psalm, second_reading, gospel, source, fetched_at)
		VALUES (:date, :title, :liturgical_season, :season_color, :saint_of_day, :rank, :first_reading, :psalm,
		 :second_reading, :gospel, :source, :fetched_at)
		ON CONFLICT (date) DO UPDATE SET title = EXCLUDED.title, liturgical_season = EXCLUDED.liturgical_season,
			season_color = EXCLUDED.season_color, saint_of_day = EXCLUDED.saint_of_day, rank = EXCLUDED.rank,
			first_reading = EXCLUDED.first_reading, psalm = EXCLUDED.psalm, second_reading = EXCLUDED.second_reading,
			gospel = EXCLUDED.gospel, source = EXCLUDED.source, fetched_at = EXCLUDED.fetched_at`, row)
	return errors.Wrap(err, "saving readings")
}
