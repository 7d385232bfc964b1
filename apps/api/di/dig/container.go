package dig_container

import (
	"context"
	"fmt"
	"log"
	"os"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/eduflick/backend/apps/api/echo"
	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/identity"
	"github.com/eduflick/backend/core/payment"
	emailsvc "github.com/eduflick/backend/services/email"
	"github.com/eduflick/backend/services/identity/supabase"
	logsvc "github.com/eduflick/backend/services/logger"
	"github.com/eduflick/backend/services/payment/razorpay"
	"github.com/eduflick/backend/storage/database"
	"github.com/eduflick/backend/storage/database/sqlstore"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServerParams struct {
	dig.In
	Conf       *core.Config
	Logger     core.Logger
	Verifier   identity.Verifier
	Checkout   *payment.Checkout
	Service    enrollment.Service
	Validate   *validator.Validate
	Translator ut.Translator
}

func newStdLogger(prefix string) *log.Logger {
	return log.New(os.Stdout, prefix, log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
}

func newLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(newStdLogger("API : "), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	logger := logsvc.NewRollbarLogger(newStdLogger("DB : "), conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB) {
	setUp := func() (*sqlx.DB, error) {
		ctx := context.Background()
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(ctx, db, conf.Database.Engine, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db
}

func newRepository(db core.DB) enrollment.Repository {
	return sqlstore.NewEnrollmentRepository(db)
}

// newVerifier returns a nil Verifier when no JWT secret is configured: every request is then signed out.
func newVerifier(conf *core.Config, logger core.Logger) identity.Verifier {
	if !conf.IdentityEnabled() {
		logger.Warn("identity provider is not configured: sessions are disabled")
		return nil
	}
	return supabase.NewVerifier(conf)
}

func newGateway(conf *core.Config, logger core.Logger) payment.Gateway {
	client := razorpay.NewClient(conf)
	if client == nil {
		logger.Warn("payment gateway is not configured: order creation is disabled")
		return nil // untyped, so Checkout sees a nil Gateway
	}
	return client
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	return emailsvc.NewService(conf, newStdLogger("EMAIL : "), logger)
}

func newValidator(translator ut.Translator) *validator.Validate {
	validate := validator.New()
	core.InitValidators(validate, translator)
	enrollment.InitValidators(validate, translator)
	return validate
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:       p.Conf,
		Logger:     p.Logger,
		Verifier:   p.Verifier,
		Checkout:   p.Checkout,
		Service:    p.Service,
		Validate:   p.Validate,
		Translator: p.Translator,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newRepository))
	must(c.Provide(newVerifier))
	must(c.Provide(newGateway))
	must(c.Provide(payment.NewCheckout))
	must(c.Provide(newEmailService))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(newValidator))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
