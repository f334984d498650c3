package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof" // /debug/pprof on the debug server
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/innovalab/center/apps/api/echo"
	"github.com/innovalab/center/core"
	"github.com/innovalab/center/core/course"
	"github.com/innovalab/center/core/enrollment"
	"github.com/innovalab/center/core/quiz"
	"github.com/innovalab/center/core/resource"
	"github.com/innovalab/center/core/user"
	emailsvc "github.com/innovalab/center/services/email"
	"github.com/innovalab/center/services/identity"
	logsvc "github.com/innovalab/center/services/logger"
	"github.com/innovalab/center/storage/database"
	inmemdb "github.com/innovalab/center/storage/database/inmem"
	"github.com/innovalab/center/storage/database/sqlxrepos"
	"github.com/innovalab/center/storage/files"
)

type repositories struct {
	uow         core.UnitOfWork
	users       user.Repository
	courses     course.Repository
	resources   resource.Repository
	enrollments enrollment.Repository
	quizzes     quiz.Repository
}

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.NewConfig()

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)
	defer logger.Close()

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	var repos repositories
	if conf.TestMode {
		logger.Info("using the in-memory database")
		repos = inmemRepositories()
	} else {
		db, err := setUpDB(conf)
		if err != nil {
			logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
		}
		defer func() {
			if err = db.Close(); err != nil {
				dbLogger.Error("Failed to close", err)
			}
		}()
		repos = sqlxRepositories(db)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	fileStorage, err := files.NewLocalStorage(conf.Server.UploadDir, conf.Server.UploadURL)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up file storage: %v", err), err)
	}

	verifiers := make(map[string]user.IdentityVerifier)
	if conf.Identity.GoogleClientID != "" {
		verifiers[user.ProviderGoogle] = identity.NewGoogleVerifier(conf.Identity.GoogleClientID)
	}
	if conf.Identity.FacebookAppID != "" {
		verifiers[user.ProviderFacebook] = identity.NewFacebookVerifier(
			conf.Identity.FacebookAppID,
			conf.Identity.FacebookAppSecret,
			conf.Identity.FacebookGraphURL,
		)
	}

	usrSvc := user.NewService(repos.users, mailSvc, logger, verifiers)
	courseSvc := course.NewService(repos.courses)
	resourceSvc := resource.NewService(repos.resources, repos.courses)
	enrollmentSvc := enrollment.NewService(repos.enrollments, repos.courses, usrSvc, repos.uow, mailSvc, logger)
	quizSvc := quiz.NewService(repos.quizzes, repos.courses, repos.enrollments, repos.uow)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q (%s)", conf.Build, conf))
	defer logger.Info("Application stopped")

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(logger)

	// =========================================================================
	// Start Debug Service
	//
	// /debug/pprof - Added to the default mux by importing the net/http/pprof package.
	// /debug/vars - Added to the default mux by importing the expvar package.

	// Expose important info under /debug/vars.
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(&echoapi.Deps{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Files:         fileStorage,
		UserSvc:       usrSvc,
		CourseSvc:     courseSvc,
		ResourceSvc:   resourceSvc,
		EnrollmentSvc: enrollmentSvc,
		QuizSvc:       quizSvc,
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	ctx := context.Background()
	if err := database.CreateIfNotExist(ctx, conf); err != nil {
		return nil, err
	}

	db, err := database.Open(ctx, conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func sqlxRepositories(db *sqlx.DB) repositories {
	return repositories{
		uow:         sqlxrepos.NewUnitOfWork(db),
		users:       sqlxrepos.NewUserRepository(db),
		courses:     sqlxrepos.NewCourseRepository(db),
		resources:   sqlxrepos.NewResourceRepository(db),
		enrollments: sqlxrepos.NewEnrollmentRepository(db),
		quizzes:     sqlxrepos.NewQuizRepository(db),
	}
}

func inmemRepositories() repositories {
	db := inmemdb.Open()
	return repositories{
		uow:         inmemdb.NewUnitOfWork(db),
		users:       inmemdb.NewUserRepository(db),
		courses:     inmemdb.NewCourseRepository(db),
		resources:   inmemdb.NewResourceRepository(db),
		enrollments: inmemdb.NewEnrollmentRepository(db),
		quizzes:     inmemdb.NewQuizRepository(db),
	}
}
