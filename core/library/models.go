// Package library is the sheet-music catalogue.
package library

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/gleeworld/gleeworld/core"
)

type SheetMusic struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Composer  string    `json:"composer"`
	Arranger  string    `json:"arranger"`
	Voicing   string    `json:"voicing"`
	Tags      []string  `json:"tags"`
	PDFURL    string    `json:"pdf_url"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NeedsPDF reports whether the record has no usable PDF yet. Seed data points at example.com.
func (sm SheetMusic) NeedsPDF() bool {
	return sm.PDFURL == "" || strings.Contains(sm.PDFURL, "example.com")
}

type SheetMusicInput struct {
	Title    string   `json:"title" validate:"required,max=300"`
	Composer string   `json:"composer" validate:"max=200"`
	Arranger string   `json:"arranger" validate:"max=200"`
	Voicing  string   `json:"voicing" validate:"max=32"`
	Tags     []string `json:"tags" validate:"omitempty,max=20,dive,max=50"`
	PDFURL   string   `json:"pdf_url" validate:"omitempty,url"`
}

func (in *SheetMusicInput) Validate(validate *validator.Validate) error {
	in.Title = core.CleanString(in.Title)
	in.Composer = core.CleanString(in.Composer)
	in.Arranger = core.CleanString(in.Arranger)
	in.Voicing = core.CleanString(in.Voicing)
	in.PDFURL = core.CleanString(in.PDFURL)
	tags := in.Tags[:0]
	for _, t := range in.Tags {
		if t = core.CleanString(t, true /* lower */); t != "" && !core.StringInSlice(t, tags) {
			tags = append(tags, t)
		}
	}
	in.Tags = tags
	return validate.Struct(in)
}

type Filter struct {
	Search  string `query:"search"`
	Voicing string `query:"voicing"`
	Tag     string `query:"tag"`
}

func (f *Filter) Match(sm SheetMusic) bool {
	if f == nil {
		return true
	}
	if s := strings.ToLower(f.Search); s != "" {
		hay := strings.ToLower(sm.Title + " " + sm.Composer + " " + sm.Arranger)
		if !strings.Contains(hay, s) {
			return false
		}
	}
	if f.Voicing != "" && !strings.EqualFold(sm.Voicing, f.Voicing) {
		return false
	}
	if f.Tag != "" && !core.StringInSlice(strings.ToLower(f.Tag), sm.Tags) {
		return false
	}
	return true
}

// Migration actions
const (
	ActionMigratePDFs    = "migrate_pdfs"
	ActionCopyFromBucket = "copy_from_bucket"
	ActionCheckStatus    = "check_status"
)

// Migration item statuses
const (
	ItemSuccess        = "success"
	ItemPDFNotFound    = "pdf_not_found"
	ItemUploadFailed   = "upload_failed"
	ItemDBUpdateFailed = "db_update_failed"
	ItemError          = "error"
)

type (
	MigrationRequest struct {
		Action string `json:"action" validate:"required,oneof=migrate_pdfs copy_from_bucket check_status"`
	}

	MigrationItem struct {
		ID              string `json:"id"`
		Title           string `json:"title"`
		Status          string `json:"status"`
		Error           string `json:"error,omitempty"`
		PDFURL          string `json:"pdf_url,omitempty"`
		SourceFile      string `json:"source_file,omitempty"`
		DatabaseUpdated bool   `json:"database_updated,omitempty"`
	}

	MigrationSummary struct {
		Total           int `json:"total"`
		Successful      int `json:"successful"`
		Failed          int `json:"failed"`
		DatabaseUpdates int `json:"database_updates"`
	}

	MigrationResult struct {
		Success bool             `json:"success"`
		Action  string           `json:"action"`
		Message string           `json:"message"`
		Results []MigrationItem  `json:"results"`
		Summary MigrationSummary `json:"summary"`
	}

	MigrationStatus struct {
		TotalRecords      int `json:"total_records"`
		MigratedRecords   int `json:"migrated_records"`
		PendingRecords    int `json:"pending_records"`
		MigrationProgress int `json:"migration_progress"`
	}
)

func summarize(items []MigrationItem) MigrationSummary {
	s := MigrationSummary{Total: len(items)}
	for _, it := range items {
		if it.Status == ItemSuccess {
			s.Successful++
		} else {
			s.Failed++
		}
		if it.DatabaseUpdated {
			s.DatabaseUpdates++
		}
	}
	return s
}
