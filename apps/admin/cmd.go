package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	"github.com/eduflick/backend/core"
	"github.com/eduflick/backend/core/enrollment"
	"github.com/eduflick/backend/core/payment"
	emailsvc "github.com/eduflick/backend/services/email"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	db         *sqlx.DB
	engine     string
	svc        enrollment.Service
	mailer     core.EmailService
	validate   *validator.Validate
	translator ut.Translator
	out        io.Writer
}

func (cli *commandLine) printUsage() {
	_, _ = fmt.Fprintln(cli.out, "Usage:")
	_, _ = fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS...]       - run a goose migration command (up, down, status, ...)")
	_, _ = fmt.Fprintln(cli.out, "  markpaid -user UUID -plan PLAN  - mark the user's latest pending enrollment as paid")
	_, _ = fmt.Fprintln(cli.out, "  plans                           - list the plan catalog")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	markPaidCmd := flag.NewFlagSet("markpaid", flag.ContinueOnError)
	markPaidCmd.SetOutput(cli.out)
	markPaidUser := markPaidCmd.String("user", "", "The user's id (identity subject).")
	markPaidPlan := markPaidCmd.String("plan", "", "The plan that was paid for: basic, pro or premium.")

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])
	case "markpaid":
		if err := markPaidCmd.Parse(args[2:]); err != nil {
			return err
		}
		if *markPaidUser == "" || *markPaidPlan == "" {
			markPaidCmd.Usage()
			return errHelp
		}
		return cli.markPaid(*markPaidUser, *markPaidPlan)
	case "plans":
		return cli.plans()
	default:
		cli.printUsage()
		return errHelp
	}
}

// markPaid is the operator fix-up for a paid flag that lagged behind the gateway.
func (cli *commandLine) markPaid(userID, planID string) error {
	req := enrollment.MarkPaidRequest{UserID: userID, PlanID: planID}
	if err := req.Validate(cli.validate); err != nil {
		if vErrs, ok := err.(validator.ValidationErrors); ok {
			return argsError(core.TranslateValidationErrors(vErrs, cli.translator))
		}
		return err
	}

	enr, err := cli.svc.MarkPaid(context.Background(), req)
	if err != nil {
		return err
	}
	if w, ok := cli.mailer.(emailsvc.Waiter); ok {
		w.Wait()
	}
	_, _ = fmt.Fprintf(cli.out, "enrollment %d (%s) marked as paid with plan %s\n", enr.ID, enr.Track, core.StringVal(enr.PlanID))
	return nil
}

// argsError renders translated field errors on one line, each naming its field.
func argsError(vErr *core.ValidationError) error {
	msgs := make([]string, 0, len(vErr.Fields))
	for _, f := range vErr.Fields {
		msg := f.Error
		if !strings.HasPrefix(msg, f.Field+" ") {
			msg = f.Field + " " + msg
		}
		msgs = append(msgs, msg)
	}
	return errors.New("invalid arguments: " + strings.Join(msgs, "; "))
}

func (cli *commandLine) plans() error {
	w := tabwriter.NewWriter(cli.out, 0, 4, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tNAME\tPRICE\tAMOUNT\tHIGHLIGHT")
	for _, p := range payment.Plans() {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d %s\t%s\n", p.ID, p.Name, p.Price, p.Amount, p.Currency, p.Highlight)
	}
	return w.Flush()
}
