// Package radio keeps the shared state of the club radio and fans changes out to listeners.
package radio

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

const (
	// SeekTolerance is how far a listener's playhead may drift before it must seek.
	SeekTolerance = 2 * time.Second
	DefaultArtist = "Glee Club"
)

var (
	ErrStateNotFound = errors.New("radio state not found")
	ErrTrackNotFound = errors.New("track not found")
	ErrNoTracks      = errors.New("no tracks in the playlist")
)

type Track struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Artist          string    `json:"artist"`
	AudioURL        string    `json:"audio_url"`
	DurationSeconds int       `json:"duration_seconds"`
	Position        int       `json:"position"`
	CreatedAt       time.Time `json:"created_at"`
}

type NewTrack struct {
	Title           string `json:"title" validate:"required,max=200"`
	Artist          string `json:"artist" validate:"max=200"`
	AudioURL        string `json:"audio_url" validate:"required,url"`
	DurationSeconds int    `json:"duration_seconds" validate:"gte=0"`
	Position        int    `json:"position" validate:"gte=0"`
}

type State struct {
	CurrentTrackID          string     `json:"current_track_id"`
	Title                   string     `json:"current_track_title"`
	Artist                  string     `json:"current_track_artist"`
	PlaybackPositionSeconds float64    `json:"playback_position_seconds"`
	IsPlaying               bool       `json:"is_playing"`
	StartedAt               *time.Time `json:"started_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// TargetPosition is where every listener's playhead should be at `now`.
func TargetPosition(s State, now time.Time) float64 {
	pos := s.PlaybackPositionSeconds
	if s.IsPlaying && s.StartedAt != nil {
		pos += now.Sub(*s.StartedAt).Seconds()
	}
	return pos
}

// NeedsSeek reports whether a playhead at `current` seconds has drifted too far from `target`.
func NeedsSeek(current, target float64) bool {
	return math.Abs(current-target) > SeekTolerance.Seconds()
}

type Repository interface {
	CreateTrack(ctx context.Context, t Track) (Track, error)
	// QueryTracks returns the playlist ordered by position.
	QueryTracks(ctx context.Context) ([]Track, error)
	DeleteTrack(ctx context.Context, id string) error

	GetState(ctx context.Context) (State, error)
	SaveState(ctx context.Context, s State) error
}

type SyncResult struct {
	State          State   `json:"state"`
	TargetPosition float64 `json:"target_position"`
	Seek           bool    `json:"seek"`
	Listeners      int     `json:"listeners"`
}

type Service struct {
	repo     Repository
	hub      *Hub
	validate *validator.Validate

	// mu serializes read-modify-write cycles on the state.
	mu sync.Mutex
}

func NewService(repo Repository, hub *Hub, validate *validator.Validate) *Service {
	return &Service{repo: repo, hub: hub, validate: validate}
}

func (svc *Service) Hub() *Hub { return svc.hub }

func (svc *Service) AddTrack(ctx context.Context, nt NewTrack) (Track, error) {
	nt.Title = core.CleanString(nt.Title)
	nt.Artist = core.CleanString(nt.Artist)
	nt.AudioURL = core.CleanString(nt.AudioURL)
	if err := svc.validate.Struct(nt); err != nil {
		return Track{}, err
	}
	if nt.Artist == "" {
		nt.Artist = DefaultArtist
	}
	return svc.repo.CreateTrack(ctx, Track{
		ID:              uuid.New().String(),
		Title:           nt.Title,
		Artist:          nt.Artist,
		AudioURL:        nt.AudioURL,
		DurationSeconds: nt.DurationSeconds,
		Position:        nt.Position,
		CreatedAt:       core.NowFunc(),
	})
}

func (svc *Service) Tracks(ctx context.Context) ([]Track, error) {
	return svc.repo.QueryTracks(ctx)
}

func (svc *Service) DeleteTrack(ctx context.Context, id string) error {
	return svc.repo.DeleteTrack(ctx, id)
}

// State returns the radio state, pointing it at the first track when nothing is loaded yet.
func (svc *Service) State(ctx context.Context) (State, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	return svc.state(ctx)
}

func (svc *Service) state(ctx context.Context) (State, error) {
	s, err := svc.repo.GetState(ctx)
	if err != nil && errors.Cause(err) != ErrStateNotFound {
		return State{}, err
	}
	if s.CurrentTrackID != "" {
		return s, nil
	}

	tracks, err := svc.repo.QueryTracks(ctx)
	if err != nil {
		return State{}, errors.Wrap(err, "querying tracks")
	}
	if len(tracks) == 0 {
		return s, nil
	}
	s = loadTrack(s, tracks[0])
	s.StartedAt = nil
	s.IsPlaying = false
	return svc.save(ctx, s)
}

// Sync tells a listener whose playhead is at `position` where it should be.
func (svc *Service) Sync(ctx context.Context, position float64) (SyncResult, error) {
	s, err := svc.State(ctx)
	if err != nil {
		return SyncResult{}, err
	}
	target := TargetPosition(s, core.NowFunc())
	return SyncResult{
		State:          s,
		TargetPosition: target,
		Seek:           NeedsSeek(position, target),
		Listeners:      svc.hub.ListenerCount(),
	}, nil
}

// Toggle flips between playing and paused at the DJ's current position.
func (svc *Service) Toggle(ctx context.Context, currentPosition float64) (State, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, err := svc.state(ctx)
	if err != nil {
		return State{}, err
	}
	if s.CurrentTrackID == "" {
		return State{}, ErrNoTracks
	}
	now := core.NowFunc()
	s.IsPlaying = !s.IsPlaying
	s.PlaybackPositionSeconds = math.Max(0, currentPosition)
	s.StartedAt = nil
	if s.IsPlaying {
		s.StartedAt = &now
	}
	return svc.save(ctx, s)
}

// Next moves to the following track, wrapping around the playlist. The play state is kept.
func (svc *Service) Next(ctx context.Context) (State, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, err := svc.state(ctx)
	if err != nil {
		return State{}, err
	}
	tracks, err := svc.repo.QueryTracks(ctx)
	if err != nil {
		return State{}, errors.Wrap(err, "querying tracks")
	}
	if len(tracks) == 0 {
		return State{}, ErrNoTracks
	}
	i := -1
	for j, t := range tracks {
		if t.ID == s.CurrentTrackID {
			i = j
			break
		}
	}
	s = loadTrack(s, tracks[(i+1)%len(tracks)])
	return svc.save(ctx, s)
}

// Seek moves the playhead of the current track.
func (svc *Service) Seek(ctx context.Context, position float64) (State, error) {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	s, err := svc.state(ctx)
	if err != nil {
		return State{}, err
	}
	if s.CurrentTrackID == "" {
		return State{}, ErrNoTracks
	}
	s.PlaybackPositionSeconds = math.Max(0, position)
	if s.IsPlaying {
		now := core.NowFunc()
		s.StartedAt = &now
	}
	return svc.save(ctx, s)
}

// save stamps, stores and broadcasts `s`, returning the stored state.
func (svc *Service) save(ctx context.Context, s State) (State, error) {
	s.UpdatedAt = core.NowFunc()
	if err := svc.repo.SaveState(ctx, s); err != nil {
		return State{}, errors.Wrap(err, "saving radio state")
	}
	svc.hub.Broadcast(s)
	return s, nil
}

// loadTrack cues `t` from the start. A playing radio keeps playing.
func loadTrack(s State, t Track) State {
	s.CurrentTrackID = t.ID
	s.Title = t.Title
	s.Artist = t.Artist
	if s.Artist == "" {
		s.Artist = DefaultArtist
	}
	s.PlaybackPositionSeconds = 0
	s.StartedAt = nil
	if s.IsPlaying {
		now := core.NowFunc()
		s.StartedAt = &now
	}
	return s
}
