package sqlxrepos

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
)

// Sight-reading scores

type scoreRow struct {
	ParamsHash string         `db:"params_hash"`
	Params     types.JSONText `db:"params"`
	MusicXML   string         `db:"musicxml"`
	CreatedAt  time.Time      `db:"created_at"`
}

type scoreRepository struct {
	db *sqlx.DB
}

var _ sightreading.Repository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(db *sqlx.DB) *scoreRepository {
	return &scoreRepository{db: db}
}

func (repo *scoreRepository) GetScore(ctx context.Context, paramsHash string) (sightreading.Score, error) {
	var row scoreRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM sight_reading_scores WHERE params_hash = $1", paramsHash); err != nil {
		return sightreading.Score{}, trapNoRowsErr(err, sightreading.ErrScoreNotFound, "finding score")
	}
	s := sightreading.Score{ParamsHash: row.ParamsHash, MusicXML: row.MusicXML, CreatedAt: row.CreatedAt}
	return s, unmarshalJSON(row.Params, &s.Params)
}

func (repo *scoreRepository) SaveScore(ctx context.Context, s sightreading.Score) error {
	params, err := jsonText(s.Params)
	if err != nil {
		return err
	}
	_, err = repo.db.ExecContext(ctx, `INSERT INTO sight_reading_scores (params_hash, params, musicxml, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (params_hash) DO UPDATE SET params = EXCLUDED.params, musicxml = EXCLUDED.musicxml,
			created_at = EXCLUDED.created_at`,
		s.ParamsHash, params, s.MusicXML, s.CreatedAt.UTC())
	return errors.Wrap(err, "saving score")
}

// Radio

type (
	trackRow struct {
		ID              string    `db:"id"`
		Title           string    `db:"title"`
		Artist          string    `db:"artist"`
		AudioURL        string    `db:"audio_url"`
		DurationSeconds int       `db:"duration_seconds"`
		Position        int       `db:"position"`
		CreatedAt       time.Time `db:"created_at"`
	}

	stateRow struct {
		ID                      int         `db:"id"`
		CurrentTrackID          null.String `db:"current_track_id"`
		Title                   null.String `db:"current_track_title"`
		Artist                  null.String `db:"current_track_artist"`
		PlaybackPositionSeconds float64     `db:"playback_position_seconds"`
		IsPlaying               bool        `db:"is_playing"`
		StartedAt               null.Time   `db:"started_at"`
		UpdatedAt               time.Time   `db:"updated_at"`
	}
)

type radioRepository struct {
	db *sqlx.DB
}

var _ radio.Repository = (*radioRepository)(nil) // interface compliance check

func NewRadioRepository(db *sqlx.DB) *radioRepository {
	return &radioRepository{db: db}
}

func (repo *radioRepository) CreateTrack(ctx context.Context, t radio.Track) (radio.Track, error) {
	row := trackRow(t)
	row.CreatedAt = row.CreatedAt.UTC()
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO radio_tracks
		(id, title, artist, audio_url, duration_seconds, position, created_at)
		VALUES (:id, :title, :artist, :audio_url, :duration_seconds, :position, :created_at)`, row)
	if err != nil {
		return radio.Track{}, errors.Wrap(err, "inserting track")
	}
	return t, nil
}

func (repo *radioRepository) QueryTracks(ctx context.Context) ([]radio.Track, error) {
	var rows []trackRow
	if err := repo.db.SelectContext(ctx, &rows, "SELECT * FROM radio_tracks ORDER BY position, created_at"); err != nil {
		return nil, errors.Wrap(err, "querying tracks")
	}
	ts := make([]radio.Track, 0, len(rows))
	for _, r := range rows {
		ts = append(ts, radio.Track(r))
	}
	return ts, nil
}

func (repo *radioRepository) DeleteTrack(ctx context.Context, id string) error {
	res, err := repo.db.ExecContext(ctx, "DELETE FROM radio_tracks WHERE id::text = $1", id)
	if err != nil {
		return errors.Wrap(err, "deleting track")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return radio.ErrTrackNotFound
	}
	return nil
}

func (repo *radioRepository) GetState(ctx context.Context) (radio.State, error) {
	var row stateRow
	if err := repo.db.GetContext(ctx, &row, "SELECT * FROM radio_state WHERE id = 1"); err != nil {
		return radio.State{}, trapNoRowsErr(err, radio.ErrStateNotFound, "finding radio state")
	}
	return radio.State{
		CurrentTrackID:          row.CurrentTrackID.String,
		Title:                   row.Title.String,
		Artist:                  row.Artist.String,
		PlaybackPositionSeconds: row.PlaybackPositionSeconds,
		IsPlaying:               row.IsPlaying,
		StartedAt:               row.StartedAt.Ptr(),
		UpdatedAt:               row.UpdatedAt,
	}, nil
}

func (repo *radioRepository) SaveState(ctx context.Context, s radio.State) error {
	_, err := repo.db.NamedExecContext(ctx, `INSERT INTO radio_state (id, current_track_id, current_track_title,
		current_track_artist, playback_position_seconds, is_playing, started_at, updated_at)
		VALUES (:id, :current_track_id, :current_track_title, :current_track_artist, :playback_position_seconds,
		 :is_playing, :started_at, :updated_at)
		ON CONFLICT (id) DO UPDATE SET current_track_id = EXCLUDED.current_track_id,
			current_track_title = EXCLUDED.current_track_title, current_track_artist = EXCLUDED.current_track_artist,
			playback_position_seconds = EXCLUDED.playback_position_seconds, is_playing = EXCLUDED.is_playing,
			started_at = EXCLUDED.started_at, updated_at = EXCLUDED.updated_at`, stateRow{
		ID:                      1,
		CurrentTrackID:          nullStr(s.CurrentTrackID),
		Title:                   nullStr(s.Title),
		Artist:                  nullStr(s.Artist),
		PlaybackPositionSeconds: s.PlaybackPositionSeconds,
		IsPlaying:               s.IsPlaying,
		StartedAt:               null.TimeFromPtr(s.StartedAt),
		UpdatedAt:               s.UpdatedAt.UTC(),
	})
	return errors.Wrap(err, "saving radio state")
}
