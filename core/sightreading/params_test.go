package sightreading

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestMusicalParams_Hash(t *testing.T) {
	p := MusicalParams{Key: "C", Mode: "Major", TimeSignature: "4/4", Measures: 8, BPM: 96}
	same := p
	other := p
	other.BPM = 120

	assert.Len(t, p.Hash(), 64)
	assert.Equal(t, p.Hash(), same.Hash())
	assert.NotEqual(t, p.Hash(), other.Hash())
}

func TestCheckMusicXML(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr bool
	}{
		{name: "partwise", doc: `<?xml version="1.0"?><score-partwise version="3.1"><part id="P1"/></score-partwise>`},
		{name: "timewise", doc: `<score-timewise><measure number="1"/></score-timewise>`},
		{name: "empty", doc: "", wantErr: true},
		{name: "wrong root", doc: `<html><body/></html>`, wantErr: true},
		{name: "unclosed", doc: `<score-partwise><part>`, wantErr: true},
		{name: "not xml", doc: `Here is your score!`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckMusicXML(tt.doc)
			if !tt.wantErr {
				assert.NoError(t, err)
				return
			}
			assert.Equal(t, ErrInvalidMusicXML, errors.Cause(err))
		})
	}
}
