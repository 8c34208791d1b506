// Package sightreading generates sight-reading exercises as MusicXML with an LLM.
package sightreading

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// MusicalParams are the parameters that shape the exercise. The model must echo them back verbatim.
type MusicalParams struct {
	Key                   string   `json:"key" validate:"required,oneof=C D E F G A B Db Eb Gb Ab Bb"`
	Mode                  string   `json:"mode" validate:"required,oneof=Major Minor 'Natural Minor' 'Harmonic Minor' 'Melodic Minor' Dorian Phrygian Lydian Mixolydian Aeolian Locrian"`
	TimeSignature         string   `json:"timeSignature" validate:"required,oneof=2/4 3/4 4/4 6/8 9/8"`
	Measures              int      `json:"measures" validate:"required,oneof=4 8 16 32"`
	VoiceParts            string   `json:"voiceParts" validate:"required,oneof=S A SA"`
	BPM                   int      `json:"bpm" validate:"required,oneof=60 72 84 96 108 120 132 144 160 180"`
	NoteValues            []string `json:"noteValues" validate:"required,min=1,dive,oneof=whole half quarter eighth sixteenth thirtysecond"`
	RestValues            []string `json:"restValues" validate:"required,min=1,dive,oneof=WR HR QR 8R 16R 32R"`
	DottedNotes           bool     `json:"dottedNotes"`
	CadenceFrequency      int      `json:"cadenceFrequency" validate:"required,oneof=2 4 8"`
	CadenceTypes          []string `json:"cadenceTypes" validate:"required,min=1,dive,oneof=Authentic Half Plagal Deceptive"`
	MotionTypes           []string `json:"motionTypes" validate:"required,min=1,dive,oneof=Step Skip Leap Repeat"`
	VoiceLeading          bool     `json:"voiceLeading"`
	ResolveTendencies     bool     `json:"resolveTendencies"`
	StrongBeatCadence     bool     `json:"strongBeatCadence"`
	MaxInterval           int      `json:"maxInterval" validate:"min=1,max=12"`
	StepwiseMotionPercent int      `json:"stepwiseMotionPercent" validate:"min=0,max=100"`
}

// Params is the request of the generate-score function.
type Params struct {
	MusicalParams
	ForceRefresh bool `json:"forceRefresh"`
	DebugEcho    bool `json:"debugEcho"`
}

func (p *Params) Validate(validate *validator.Validate) error {
	return validate.Struct(p)
}

// Hash identifies the musical parameters in the score cache.
func (mp MusicalParams) Hash() string {
	b, _ := json.Marshal(mp)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
