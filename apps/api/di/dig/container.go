package dig_container

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/dig"

	echoapi "github.com/gleeworld/gleeworld/apps/api/echo"
	"github.com/gleeworld/gleeworld/core"
	"github.com/gleeworld/gleeworld/core/assistant"
	"github.com/gleeworld/gleeworld/core/attendance"
	"github.com/gleeworld/gleeworld/core/audit"
	"github.com/gleeworld/gleeworld/core/excuse"
	"github.com/gleeworld/gleeworld/core/finance"
	"github.com/gleeworld/gleeworld/core/grading"
	"github.com/gleeworld/gleeworld/core/library"
	"github.com/gleeworld/gleeworld/core/liturgy"
	"github.com/gleeworld/gleeworld/core/member"
	"github.com/gleeworld/gleeworld/core/notification"
	"github.com/gleeworld/gleeworld/core/radio"
	"github.com/gleeworld/gleeworld/core/sightreading"
	aisvc "github.com/gleeworld/gleeworld/services/ai"
	blobsvc "github.com/gleeworld/gleeworld/services/blob"
	emailsvc "github.com/gleeworld/gleeworld/services/email"
	logsvc "github.com/gleeworld/gleeworld/services/logger"
	readersvc "github.com/gleeworld/gleeworld/services/reader"
	"github.com/gleeworld/gleeworld/storage/database"
	inmemdb "github.com/gleeworld/gleeworld/storage/database/inmem"
	sqlxrepos "github.com/gleeworld/gleeworld/storage/database/sqlx"
)

// EngineInMemory keeps everything in memory; handy for demos and frontend work.
const EngineInMemory = "inmem"

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are backed by PostgreSQL, or by memory when the engine is EngineInMemory.
type Repositories struct {
	dig.Out

	DB           *sqlx.DB // nil in memory
	Members      member.Repository
	Audit        audit.Repository
	Attendance   attendance.Repository
	Excuses      excuse.Repository
	Notification notification.Repository
	Finance      finance.Repository
	Grading      grading.Repository
	Scores       sightreading.Repository
	Radio        radio.Repository
	Liturgy      liturgy.Repository
	Library      library.Repository
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) Repositories {
	if conf.Database.Engine == EngineInMemory {
		mem := inmemdb.Open()
		return Repositories{
			Members:      inmemdb.NewMemberRepository(mem),
			Audit:        inmemdb.NewAuditRepository(mem),
			Attendance:   inmemdb.NewAttendanceRepository(mem),
			Excuses:      inmemdb.NewExcuseRepository(mem),
			Notification: inmemdb.NewNotificationRepository(mem),
			Finance:      inmemdb.NewFinanceRepository(mem),
			Grading:      inmemdb.NewGradingRepository(mem),
			Scores:       inmemdb.NewScoreRepository(mem),
			Radio:        inmemdb.NewRadioRepository(mem),
			Liturgy:      inmemdb.NewLiturgyRepository(mem),
			Library:      inmemdb.NewLibraryRepository(mem),
		}
	}

	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(context.Background(), db.DB, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return Repositories{
		DB:           db,
		Members:      sqlxrepos.NewMemberRepository(db),
		Audit:        sqlxrepos.NewAuditRepository(db),
		Attendance:   sqlxrepos.NewAttendanceRepository(db),
		Excuses:      sqlxrepos.NewExcuseRepository(db),
		Notification: sqlxrepos.NewNotificationRepository(db),
		Finance:      sqlxrepos.NewFinanceRepository(db),
		Grading:      sqlxrepos.NewGradingRepository(db),
		Scores:       sqlxrepos.NewScoreRepository(db),
		Radio:        sqlxrepos.NewRadioRepository(db),
		Liturgy:      sqlxrepos.NewLiturgyRepository(db),
		Library:      sqlxrepos.NewLibraryRepository(db),
	}
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, log.New(os.Stdout, "MAIL : ", log.LstdFlags), logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newBlobStore(conf *core.Config, logger core.Logger) core.BlobStore {
	var (
		store core.BlobStore
		err   error
	)
	switch conf.Storage.Driver {
	case "oss":
		store, err = blobsvc.NewOSSStore(conf.Storage)
	default:
		store, err = blobsvc.NewFSStore(conf.Storage.Dir, conf.Storage.PublicBaseURL)
	}
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up blob store: %v", err), err)
	}
	return store
}

func newHTTPClient() *http.Client {
	return &http.Client{Timeout: 30 * time.Second}
}

func newCompleter(conf *core.Config) core.Completer {
	return aisvc.NewCompleter(conf)
}

func newPDFSource(conf *core.Config, client *http.Client) library.PDFSource {
	return readersvc.NewClient(conf, client)
}

func newRadioHub() *radio.Hub {
	return radio.NewHub(16)
}

func newExcuseService(
	repo excuse.Repository,
	notifications *notification.Service,
	attendanceSvc *attendance.Service,
	auditSvc *audit.Service,
	validate *validator.Validate,
	logger core.Logger,
) *excuse.Service {
	return excuse.NewService(repo, notifications, attendanceSvc, auditSvc, validate, logger)
}

func newNotificationService(
	repo notification.Repository,
	members member.Repository,
	mailSvc core.EmailService,
	auditSvc *audit.Service,
	logger core.Logger,
) *notification.Service {
	return notification.NewService(repo, members, mailSvc, auditSvc, logger)
}

func newGradingService(
	repo grading.Repository,
	llm core.Completer,
	notifications *notification.Service,
	validate *validator.Validate,
	logger core.Logger,
) *grading.Service {
	return grading.NewService(repo, llm, notifications, validate, logger)
}

func newLibraryService(
	repo library.Repository,
	store core.BlobStore,
	reader library.PDFSource,
	auditSvc *audit.Service,
	validate *validator.Validate,
	conf *core.Config,
	logger core.Logger,
) *library.Service {
	return library.NewService(repo, store, reader, auditSvc, validate, conf, logger)
}

func newAssistantService(
	llm core.Completer,
	gradingSvc *grading.Service,
	attendanceSvc *attendance.Service,
	librarySvc *library.Service,
	memberSvc *member.Service,
	validate *validator.Validate,
	logger core.Logger,
) *assistant.Service {
	return assistant.NewService(llm, gradingSvc, attendanceSvc, librarySvc, memberSvc, validate, logger)
}

// newScheduler registers the periodic jobs. It is started by the caller.
func newScheduler(conf *core.Config, logger core.Logger, liturgySvc *liturgy.Service, financeSvc *finance.Service) (*cron.Cron, error) {
	cronLogger := cron.PrintfLogger(log.New(os.Stdout, "CRON : ", log.LstdFlags))
	c := cron.New(cron.WithChain(cron.Recover(cronLogger), cron.SkipIfStillRunning(cronLogger)))

	if _, err := c.AddFunc(conf.Liturgy.SyncSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		liturgySvc.SyncToday(ctx)
	}); err != nil {
		return nil, errors.Wrap(err, "scheduling liturgy sync")
	}

	if _, err := c.AddFunc(conf.Club.DuesSweepSchedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := financeSvc.MarkOverdue(ctx, core.NowFunc()); err != nil {
			logger.Error("marking overdue dues", err)
		}
	}); err != nil {
		return nil, errors.Wrap(err, "scheduling dues sweep")
	}
	return c, nil
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newRepositories))

	// infrastructure
	must(c.Provide(newEmailService))
	must(c.Provide(newBlobStore))
	must(c.Provide(newHTTPClient))
	must(c.Provide(newCompleter))
	must(c.Provide(newPDFSource))
	must(c.Provide(newRadioHub))

	// services
	must(c.Provide(audit.NewService))
	must(c.Provide(member.NewService))
	must(c.Provide(attendance.NewService))
	must(c.Provide(newNotificationService))
	must(c.Provide(newExcuseService))
	must(c.Provide(finance.NewService))
	must(c.Provide(newGradingService))
	must(c.Provide(sightreading.NewService))
	must(c.Provide(radio.NewService))
	must(c.Provide(liturgy.NewService))
	must(c.Provide(newLibraryService))
	must(c.Provide(newAssistantService))

	must(c.Provide(newScheduler))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
