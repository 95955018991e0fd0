package main

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/session"
)

func (cli *commandLine) resolveCmd() *cobra.Command {
	var room, at string
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Show which class a scan in a room would resolve to (nothing is recorded)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				t, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return errors.Wrap(err, "--at must be RFC3339")
				}
				now = t
			}
			res, err := cli.resolve(room, now)
			if err != nil {
				return err
			}
			return cli.printJSON(res)
		},
	}
	cmd.Flags().StringVar(&room, "room", "", "room code")
	cmd.Flags().StringVar(&at, "at", "", "instant to resolve at, RFC3339 (default now)")
	_ = cmd.MarkFlagRequired("room")
	return cmd
}

func (cli *commandLine) resolve(room string, at time.Time) (session.Resolution, error) {
	clk := clock.Fixed{T: at.In(cli.conf.Location())}
	svc := session.NewService(cli.repos.Sessions, cli.slots, cli.settings, clk, cli.logger)
	return svc.Resolve(context.Background(), room)
}
