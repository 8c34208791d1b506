package inmemdb

import (
	"context"
	"sort"
	"strings"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
)

// Sight-reading scores

type scoreRepository struct {
	db *scoreTable
}

var _ sightreading.Repository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(db *DB) *scoreRepository {
	return &scoreRepository{db: db.sightreading}
}

func (repo *scoreRepository) GetScore(_ context.Context, paramsHash string) (sightreading.Score, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if s, ok := repo.db.table[paramsHash]; ok {
		return s, nil
	}
	return sightreading.Score{}, sightreading.ErrScoreNotFound
}

func (repo *scoreRepository) SaveScore(_ context.Context, s sightreading.Score) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[s.ParamsHash] = s
	return nil
}

// Radio

type radioRepository struct {
	db *radioTable
}

var _ radio.Repository = (*radioRepository)(nil) // interface compliance check

func NewRadioRepository(db *DB) *radioRepository {
	return &radioRepository{db: db.radio}
}

func (repo *radioRepository) CreateTrack(_ context.Context, t radio.Track) (radio.Track, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.tracks[t.ID] = &t
	return t, nil
}

func (repo *radioRepository) QueryTracks(_ context.Context) ([]radio.Track, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	ts := make([]radio.Track, 0, len(repo.db.tracks))
	for _, t := range repo.db.tracks {
		ts = append(ts, *t)
	}
	sort.Slice(ts, func(i, j int) bool {
		if ts[i].Position != ts[j].Position {
			return ts[i].Position < ts[j].Position
		}
		return ts[i].CreatedAt.Before(ts[j].CreatedAt)
	})
	return ts, nil
}

func (repo *radioRepository) DeleteTrack(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.tracks[id]; !ok {
		return radio.ErrTrackNotFound
	}
	delete(repo.db.tracks, id)
	return nil
}

func (repo *radioRepository) GetState(_ context.Context) (radio.State, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if repo.db.state == nil {
		return radio.State{}, radio.ErrStateNotFound
	}
	return *repo.db.state, nil
}

func (repo *radioRepository) SaveState(_ context.Context, s radio.State) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.state = &s
	return nil
}

// Liturgy

type liturgyRepository struct {
	db *liturgyTable
}

var _ liturgy.Repository = (*liturgyRepository)(nil) // interface compliance check

func NewLiturgyRepository(db *DB) *liturgyRepository {
	return &liturgyRepository{db: db.liturgy}
}

func (repo *liturgyRepository) GetReadings(_ context.Context, date string) (liturgy.Readings, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if r, ok := repo.db.table[date]; ok {
		return r, nil
	}
	return liturgy.Readings{}, liturgy.ErrNotFound
}

func (repo *liturgyRepository) SaveReadings(_ context.Context, r liturgy.Readings) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	repo.db.table[r.Date] = r
	return nil
}

// Sheet music library

type libraryRepository struct {
	db *libraryTable
}

var _ library.Repository = (*libraryRepository)(nil) // interface compliance check

func NewLibraryRepository(db *DB) *libraryRepository {
	return &libraryRepository{db: db.library}
}

func copySheetMusic(sm library.SheetMusic) library.SheetMusic {
	sm.Tags = append([]string(nil), sm.Tags...)
	return sm
}

func (repo *libraryRepository) CreateSheetMusic(_ context.Context, sm library.SheetMusic) (library.SheetMusic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	sm = copySheetMusic(sm)
	repo.db.table[sm.ID] = &sm
	return copySheetMusic(sm), nil
}

func (repo *libraryRepository) GetSheetMusicByID(_ context.Context, id string) (library.SheetMusic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	if sm, ok := repo.db.table[id]; ok {
		return copySheetMusic(*sm), nil
	}
	return library.SheetMusic{}, library.ErrNotFound
}

func (repo *libraryRepository) QuerySheetMusic(_ context.Context, filter *library.Filter, ordering []core.DBOrdering) ([]library.SheetMusic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sms := make([]library.SheetMusic, 0)
	for _, sm := range repo.db.table {
		if filter.Match(*sm) {
			sms = append(sms, copySheetMusic(*sm))
		}
	}
	desc := len(ordering) > 0 && !ordering[0].Ascending
	sort.Slice(sms, func(i, j int) bool {
		a, b := strings.ToLower(sms[i].Title), strings.ToLower(sms[j].Title)
		if desc {
			return a > b
		}
		return a < b
	})
	return sms, nil
}

func (repo *libraryRepository) UpdateSheetMusic(_ context.Context, sm library.SheetMusic) (library.SheetMusic, error) {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[sm.ID]; !ok {
		return library.SheetMusic{}, library.ErrNotFound
	}
	sm = copySheetMusic(sm)
	repo.db.table[sm.ID] = &sm
	return copySheetMusic(sm), nil
}

func (repo *libraryRepository) DeleteSheetMusic(_ context.Context, id string) error {
	repo.db.Lock()
	defer repo.db.Unlock()
	if _, ok := repo.db.table[id]; !ok {
		return library.ErrNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *libraryRepository) QueryMissingPDFs(_ context.Context, limit int) ([]library.SheetMusic, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sms := make([]library.SheetMusic, 0)
	for _, sm := range repo.db.table {
		if sm.NeedsPDF() {
			sms = append(sms, copySheetMusic(*sm))
		}
	}
	sort.Slice(sms, func(i, j int) bool { return sms[i].CreatedAt.Before(sms[j].CreatedAt) })
	if limit > 0 && len(sms) > limit {
		sms = sms[:limit]
	}
	return sms, nil
}

func (repo *libraryRepository) CountSheetMusic(_ context.Context) (total, pending int, err error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	for _, sm := range repo.db.table {
		total++
		if sm.NeedsPDF() {
			pending++
		}
	}
	return total, pending, nil
}
