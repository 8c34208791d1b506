package library

import (
	"context"
	"fmt"
	"io"
	"math"
	"path"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/audit"
)

// MigrationBatchSize caps the records processed by one migration run.
const MigrationBatchSize = 50

var (
	ErrNotFound    = errors.New("sheet music not found")
	ErrPDFNotFound = errors.New("pdf not found")
)

type Repository interface {
	CreateSheetMusic(ctx context.Context, sm SheetMusic) (SheetMusic, error)
	GetSheetMusicByID(ctx context.Context, id string) (SheetMusic, error)
	QuerySheetMusic(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]SheetMusic, error)
	UpdateSheetMusic(ctx context.Context, sm SheetMusic) (SheetMusic, error)
	DeleteSheetMusic(ctx context.Context, id string) error
	// QueryMissingPDFs returns up to `limit` records whose PDF is missing or a placeholder.
	QueryMissingPDFs(ctx context.Context, limit int) ([]SheetMusic, error)
	// CountSheetMusic returns the number of records and of those still needing a PDF.
	CountSheetMusic(ctx context.Context) (total, pending int, err error)
}

// PDFSource serves the PDFs of the legacy reader service. It returns ErrPDFNotFound for unknown ids.
type PDFSource interface {
	FetchPDF(ctx context.Context, id string) (io.ReadCloser, error)
}

type Auditor interface {
	Log(ctx context.Context, actorID, action, entityType, entityID string, details map[string]interface{}) error
}

type Service struct {
	repo         Repository
	store        core.BlobStore
	reader       PDFSource
	auditSvc     Auditor
	validate     *validator.Validate
	legacyPrefix string
	logger       core.Logger
}

func NewService(
	repo Repository,
	store core.BlobStore,
	reader PDFSource,
	auditSvc Auditor,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *Service {
	return &Service{
		repo:         repo,
		store:        store,
		reader:       reader,
		auditSvc:     auditSvc,
		validate:     validate,
		legacyPrefix: conf.Storage.LegacyPrefix,
		logger:       logger,
	}
}

func pdfKey(id string) string {
	return "pdfs/" + id + ".pdf"
}

func (svc *Service) Create(ctx context.Context, by string, in SheetMusicInput) (SheetMusic, error) {
	if err := in.Validate(svc.validate); err != nil {
		return SheetMusic{}, err
	}
	now := core.NowFunc()
	return svc.repo.CreateSheetMusic(ctx, SheetMusic{
		ID:        uuid.New().String(),
		Title:     in.Title,
		Composer:  in.Composer,
		Arranger:  in.Arranger,
		Voicing:   in.Voicing,
		Tags:      in.Tags,
		PDFURL:    in.PDFURL,
		CreatedBy: by,
		CreatedAt: now,
		UpdatedAt: now,
	})
}

func (svc *Service) Get(ctx context.Context, id string) (SheetMusic, error) {
	return svc.repo.GetSheetMusicByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, filter *Filter, ordering []core.DBOrdering) ([]SheetMusic, error) {
	return svc.repo.QuerySheetMusic(ctx, filter, ordering)
}

func (svc *Service) Update(ctx context.Context, id string, in SheetMusicInput) (SheetMusic, error) {
	if err := in.Validate(svc.validate); err != nil {
		return SheetMusic{}, err
	}
	sm, err := svc.repo.GetSheetMusicByID(ctx, id)
	if err != nil {
		return SheetMusic{}, err
	}
	sm.Title, sm.Composer, sm.Arranger, sm.Voicing, sm.Tags = in.Title, in.Composer, in.Arranger, in.Voicing, in.Tags
	if in.PDFURL != "" {
		sm.PDFURL = in.PDFURL
	}
	sm.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSheetMusic(ctx, sm)
}

func (svc *Service) Delete(ctx context.Context, id string) error {
	if err := svc.repo.DeleteSheetMusic(ctx, id); err != nil {
		return err
	}
	if err := svc.store.Delete(ctx, pdfKey(id)); err != nil && errors.Cause(err) != core.ErrBlobNotFound {
		svc.logger.Warn("deleting sheet music pdf", err, map[string]interface{}{"id": id})
	}
	return nil
}

// UploadPDF stores the PDF of the record and points the record at it.
func (svc *Service) UploadPDF(ctx context.Context, id string, r io.Reader) (SheetMusic, error) {
	sm, err := svc.repo.GetSheetMusicByID(ctx, id)
	if err != nil {
		return SheetMusic{}, err
	}
	if err = svc.store.Put(ctx, pdfKey(id), r, "application/pdf"); err != nil {
		return SheetMusic{}, errors.Wrap(err, "storing pdf")
	}
	sm.PDFURL = svc.store.URL(pdfKey(id))
	sm.UpdatedAt = core.NowFunc()
	return svc.repo.UpdateSheetMusic(ctx, sm)
}

// Migrate runs one batch of a PDF migration action. Items are processed sequentially and
// failures are reported per item without rolling anything back.
func (svc *Service) Migrate(ctx context.Context, actorID string, action string) (MigrationResult, error) {
	var migrate func(context.Context, SheetMusic) MigrationItem
	switch action {
	case ActionMigratePDFs:
		migrate = svc.migrateFromReader
	case ActionCopyFromBucket:
		migrate = svc.copyFromBucket
	default:
		return MigrationResult{}, core.NewFieldError("action", "Invalid action")
	}

	records, err := svc.repo.QueryMissingPDFs(ctx, MigrationBatchSize)
	if err != nil {
		return MigrationResult{}, errors.Wrap(err, "querying sheet music without pdf")
	}
	items := make([]MigrationItem, 0, len(records))
	for _, sm := range records {
		items = append(items, migrate(ctx, sm))
	}

	res := MigrationResult{
		Success: true,
		Action:  action,
		Message: fmt.Sprintf("Processed %d records", len(items)),
		Results: items,
		Summary: summarize(items),
	}
	details := map[string]interface{}{"action": action, "total": res.Summary.Total, "successful": res.Summary.Successful}
	if err = svc.auditSvc.Log(ctx, actorID, audit.ActionSheetMusicMigration, "sheet_music", "", details); err != nil {
		svc.logger.Error("auditing sheet music migration", err)
	}
	return res, nil
}

func (svc *Service) migrateFromReader(ctx context.Context, sm SheetMusic) MigrationItem {
	item := MigrationItem{ID: sm.ID, Title: sm.Title}
	pdf, err := svc.reader.FetchPDF(ctx, sm.ID)
	if err != nil {
		item.Status, item.Error = ItemError, err.Error()
		if errors.Cause(err) == ErrPDFNotFound {
			item.Status = ItemPDFNotFound
		}
		return item
	}
	defer pdf.Close()

	if err = svc.store.Put(ctx, pdfKey(sm.ID), pdf, "application/pdf"); err != nil {
		item.Status, item.Error = ItemUploadFailed, err.Error()
		return item
	}
	return svc.pointAt(ctx, sm, item)
}

// candidateNames lists the object names a record's PDF may have in the legacy bucket.
func candidateNames(sm SheetMusic) []string {
	return []string{
		sm.ID + ".pdf",
		sm.Title + ".pdf",
		reSpaces.ReplaceAllString(sm.Title, "_") + ".pdf",
		reSpaces.ReplaceAllString(sm.Title, "-") + ".pdf",
		reNonAlnum.ReplaceAllString(sm.Title, "_") + ".pdf",
	}
}

var (
	reSpaces   = regexp.MustCompile(`\s+`)
	reNonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)
)

func (svc *Service) copyFromBucket(ctx context.Context, sm SheetMusic) MigrationItem {
	item := MigrationItem{ID: sm.ID, Title: sm.Title}
	for _, name := range candidateNames(sm) {
		err := svc.store.Copy(ctx, path.Join(svc.legacyPrefix, name), pdfKey(sm.ID))
		if err == nil {
			item.SourceFile = name
			return svc.pointAt(ctx, sm, item)
		}
		if errors.Cause(err) != core.ErrBlobNotFound {
			item.Status, item.Error = ItemUploadFailed, err.Error()
			return item
		}
	}
	item.Status, item.Error = ItemPDFNotFound, "No matching PDF file found in legacy bucket"
	return item
}

func (svc *Service) pointAt(ctx context.Context, sm SheetMusic, item MigrationItem) MigrationItem {
	sm.PDFURL = svc.store.URL(pdfKey(sm.ID))
	sm.UpdatedAt = core.NowFunc()
	if _, err := svc.repo.UpdateSheetMusic(ctx, sm); err != nil {
		item.Status, item.Error = ItemDBUpdateFailed, err.Error()
		return item
	}
	item.Status = ItemSuccess
	item.PDFURL = sm.PDFURL
	item.DatabaseUpdated = true
	return item
}

// MigrationStatus reports how much of the catalogue has a real PDF.
func (svc *Service) MigrationStatus(ctx context.Context) (MigrationStatus, error) {
	total, pending, err := svc.repo.CountSheetMusic(ctx)
	if err != nil {
		return MigrationStatus{}, errors.Wrap(err, "counting sheet music")
	}
	st := MigrationStatus{TotalRecords: total, PendingRecords: pending, MigratedRecords: total - pending}
	if total > 0 {
		st.MigrationProgress = int(math.Round(float64(st.MigratedRecords) / float64(total) * 100))
	}
	return st, nil
}
