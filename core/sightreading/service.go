package sightreading

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
)

var (
	ErrScoreNotFound    = errors.New("score not found")
	ErrInvalidMusicXML  = errors.New("model returned invalid MusicXML")
	errUnexpectedFormat = errors.New("model response is missing echo or musicxml")
)

// EchoMismatchError is returned when the model did not echo the requested parameters.
type EchoMismatchError struct {
	Received json.RawMessage
}

func (e *EchoMismatchError) Error() string { return "echo mismatch" }

type Score struct {
	ParamsHash string        `json:"params_hash"`
	Params     MusicalParams `json:"params"`
	MusicXML   string        `json:"musicxml"`
	CreatedAt  time.Time     `json:"created_at"`
}

type Result struct {
	Success  bool          `json:"success"`
	MusicXML string        `json:"musicxml"`
	Echo     MusicalParams `json:"echo"`
	Cached   bool          `json:"cached"`
}

type Repository interface {
	GetScore(ctx context.Context, paramsHash string) (Score, error)
	// SaveScore inserts or replaces the score of its ParamsHash.
	SaveScore(ctx context.Context, s Score) error
}

type Service struct {
	repo     Repository
	llm      core.Completer
	validate *validator.Validate
	logger   core.Logger
}

func NewService(repo Repository, llm core.Completer, validate *validator.Validate, logger core.Logger) *Service {
	return &Service{repo: repo, llm: llm, validate: validate, logger: logger}
}

const systemPrompt = `You compose sight-reading exercises for a collegiate women's glee club.
Return a single JSON object with exactly two keys:
  "echo": the "params" object you were given, copied verbatim,
  "musicxml": a complete MusicXML 3.1 score-partwise document that follows every parameter.
Use one part per voice (S, A). Respect the key, mode, time signature, tempo, number of measures,
allowed note and rest values, cadence frequency and types, motion types, maximum interval and the
share of stepwise motion. End on a cadence.`

// Generate returns the cached score for the parameters, or has the model compose a new one.
func (svc *Service) Generate(ctx context.Context, p Params) (Result, error) {
	if err := p.Validate(svc.validate); err != nil {
		return Result{}, err
	}
	hash := p.Hash()
	if !p.ForceRefresh {
		s, err := svc.repo.GetScore(ctx, hash)
		switch {
		case err == nil:
			return Result{Success: true, MusicXML: s.MusicXML, Echo: s.Params, Cached: true}, nil
		case errors.Cause(err) != ErrScoreNotFound:
			return Result{}, errors.Wrap(err, "reading score cache")
		}
	}

	req, err := json.Marshal(map[string]interface{}{"params": p.MusicalParams})
	if err != nil {
		return Result{}, err
	}
	raw, err := svc.llm.CompleteJSON(ctx, systemPrompt, string(req))
	if err != nil {
		return Result{}, err
	}

	var out struct {
		Echo     json.RawMessage `json:"echo"`
		MusicXML string          `json:"musicxml"`
	}
	if err = json.Unmarshal(raw, &out); err != nil {
		return Result{}, errors.Wrap(err, "parsing model response")
	}
	if len(out.Echo) == 0 || out.MusicXML == "" {
		return Result{}, errUnexpectedFormat
	}
	if p.DebugEcho {
		svc.logger.Debug("generate-score echo", map[string]interface{}{"sent": p.MusicalParams, "received": string(out.Echo)})
	}

	var echo MusicalParams
	if err = json.Unmarshal(out.Echo, &echo); err != nil || !reflect.DeepEqual(echo, p.MusicalParams) {
		return Result{}, &EchoMismatchError{Received: out.Echo}
	}
	if err = CheckMusicXML(out.MusicXML); err != nil {
		return Result{}, err
	}

	err = svc.repo.SaveScore(ctx, Score{
		ParamsHash: hash,
		Params:     echo,
		MusicXML:   out.MusicXML,
		CreatedAt:  core.NowFunc(),
	})
	if err != nil {
		svc.logger.Error("caching score", err)
	}
	return Result{Success: true, MusicXML: out.MusicXML, Echo: echo}, nil
}

// CheckMusicXML verifies that doc is well-formed XML with a score-partwise or score-timewise root.
func CheckMusicXML(doc string) error {
	dec := xml.NewDecoder(bytes.NewBufferString(doc))
	root := ""
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(ErrInvalidMusicXML, err.Error())
		}
		if se, ok := tok.(xml.StartElement); ok && root == "" {
			root = se.Name.Local
		}
	}
	if root != "score-partwise" && root != "score-timewise" {
		return errors.Wrap(ErrInvalidMusicXML, fmt.Sprintf("unexpected root element %q", root))
	}
	return nil
}
