package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/trezcool/asistencia/core/clock"
	"github.com/trezcool/asistencia/core/schedule"
	"github.com/trezcool/asistencia/core/settings"
)

func (cli *commandLine) settingsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change the attendance thresholds",
	}

	show := &cobra.Command{
		Use:   "show",
		Short: "Print the current settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := cli.settings.Get(context.Background())
			if err != nil {
				return err
			}
			return cli.printJSON(st)
		},
	}

	var tolerance, late int
	set := &cobra.Command{
		Use:   "set",
		Short: "Save the tolerance and late threshold (minutes)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			us := settings.UpdateSettings{AttendanceToleranceMin: &tolerance, LateThresholdMin: &late}
			if err := us.Validate(cli.validate); err != nil {
				return cli.invalid(err)
			}
			st, err := cli.settings.Update(context.Background(), us)
			if err != nil {
				return err
			}
			return cli.printJSON(st)
		},
	}
	set.Flags().IntVar(&tolerance, "tolerance", settings.Default().AttendanceToleranceMin, "minutes a class stays scannable around its slot")
	set.Flags().IntVar(&late, "late", settings.Default().LateThresholdMin, "minutes of delay after which an arrival is late")

	cmd.AddCommand(show, set)
	return cmd
}

func (cli *commandLine) slotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage the weekly schedule",
	}

	var room, weekday string
	list := &cobra.Command{
		Use:   "list",
		Short: "Print the catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := schedule.QueryFilter{RoomCode: room}
			if weekday != "" {
				wd, ok := clock.ParseWeekday(weekday)
				if !ok {
					return fmt.Errorf("invalid weekday %q", weekday)
				}
				n := int(wd)
				filter.Weekday = &n
			}
			slots, err := cli.slots.Query(context.Background(), filter)
			if err != nil {
				return err
			}
			return cli.printSlots(slots)
		},
	}
	list.Flags().StringVar(&room, "room", "", "only this room")
	list.Flags().StringVar(&weekday, "weekday", "", "only this weekday (0-6 or name)")

	imp := &cobra.Command{
		Use:   "import FILE",
		Short: "Create the slots listed in a JSON file, skipping existing ones",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cli.importSlots(args[0])
		},
	}

	cmd.AddCommand(list, imp)
	return cmd
}

func (cli *commandLine) importSlots(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var slots []schedule.NewSlot
	if err := json.Unmarshal(data, &slots); err != nil {
		return errors.Wrapf(err, "decoding %s", path)
	}
	for i := range slots {
		if err := slots[i].Validate(cli.validate); err != nil {
			return errors.Wrapf(cli.invalid(err), "slot #%d", i+1)
		}
	}

	created, skipped, err := cli.slots.Import(context.Background(), slots)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cli.out, "created %d, skipped %d\n", created, skipped)
	return err
}

func (cli *commandLine) printSlots(slots []schedule.Slot) error {
	w := tabwriter.NewWriter(cli.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ROOM\tDAY\tSTART\tEND\tSUBJECT\tGROUP\tID")
	for _, s := range slots {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n", s.RoomCode, s.Weekday, s.StartTime, s.EndTime, s.Subject, s.GroupName, s.ID)
	}
	return w.Flush()
}
