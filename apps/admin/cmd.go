package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/trezcool/asistencia/core"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/session"
	"github.com/trezcool/asistencia/core/settings"
	"github.com/trezcool/asistencia/storage"
)

var errHelp = errors.New("help provided")

type commandLine struct {
	conf       *core.Config
	logger     core.Logger
	repos      *storage.Repositories
	validate   *validator.Validate
	translator ut.Translator
	slots      *schedule.Service
	settings   *settings.Service
	out        io.Writer
}

func newCommandLine(conf *core.Config, logger core.Logger, repos *storage.Repositories, out io.Writer) *commandLine {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	schedule.InitValidators(validate, translator)
	settings.InitValidators(validate, translator)
	session.InitValidators(validate, translator)

	return &commandLine{
		conf:       conf,
		logger:     logger,
		repos:      repos,
		validate:   validate,
		translator: translator,
		slots:      schedule.NewService(repos.Slots),
		settings:   settings.NewService(repos.Settings),
		out:        out,
	}
}

func (cli *commandLine) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "admin",
		Short:         "Asistencia administration",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_ = cmd.Help()
			return errHelp
		},
	}
	root.SetOut(cli.out)
	root.SetErr(cli.out)

	root.AddCommand(cli.migrateCmd())
	root.AddCommand(cli.settingsCmd())
	root.AddCommand(cli.slotsCmd())
	root.AddCommand(cli.resolveCmd())
	return root
}

// run executes args, including the program name as os.Args does.
func (cli *commandLine) run(args []string) error {
	root := cli.rootCmd()
	if len(args) > 0 {
		args = args[1:]
	}
	root.SetArgs(args)
	return root.Execute()
}

func (cli *commandLine) printJSON(v interface{}) error {
	enc := json.NewEncoder(cli.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// invalid renders validator errors as one readable line.
func (cli *commandLine) invalid(err error) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	msgs := make([]string, 0, len(vErrs))
	for _, fe := range vErrs {
		msgs = append(msgs, fmt.Sprintf("%s: %s", fe.Field(), fe.Translate(cli.translator)))
	}
	return fmt.Errorf("invalid input: %s", strings.Join(msgs, "; "))
}
