package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/carebook/pkg/appointments"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var appointmentsCmd = &cobra.Command{
	Use:     "appointments",
	Aliases: []string{"appts"},
	Short:   "List and manage appointments",
}

var appointmentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your appointments",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		status, _ := cmd.Flags().GetString("status")
		filter, err := appointments.ParseFilter(status)
		if err != nil {
			return err
		}

		board, err := loadBoard(ctx, a)
		if err != nil {
			return err
		}
		board.SetFilter(filter)

		printFilterBar(a, board)
		printAppointments(a, board.Visible(), board.Filter())
		return nil
	}),
}

var appointmentsCancelCmd = &cobra.Command{
	Use:   "cancel ID",
	Short: "Cancel a confirmed appointment",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		board, err := loadBoard(ctx, a)
		if err != nil {
			return err
		}
		return saved(board.Cancel(ctx, id))
	}),
}

// transitionCmd builds a provider action command such as "confirm ID"
func transitionCmd(use, short string, target types.AppointmentStatus) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if _, err := a.guard(ctx, nav.RouteProviderAppointments); err != nil {
				return err
			}
			board, err := loadBoard(ctx, a)
			if err != nil {
				return err
			}
			return saved(board.Transition(ctx, id, target))
		}),
	}
}

// saved treats a stale list after a stored change as success; the list is not shown again
func saved(err error) error {
	if errors.Is(err, appointments.ErrReloadFailed) {
		return nil
	}
	return err
}

func loadBoard(ctx context.Context, a *app) (*appointments.Board, error) {
	user, err := a.user(ctx)
	if err != nil {
		return nil, err
	}
	route := nav.RouteClientAppointments
	if user.Role == types.RoleProvider {
		route = nav.RouteProviderAppointments
	}
	if _, err := a.guard(ctx, route); err != nil {
		return nil, err
	}

	board := appointments.NewBoard(a.client, user, a.notifier, a.broker)
	if err := board.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load appointments: %w", err)
	}
	return board, nil
}

func printFilterBar(a *app, board *appointments.Board) {
	counts := board.Counts()
	parts := make([]string, 0, len(appointments.Filters))
	for _, f := range appointments.Filters {
		label := fmt.Sprintf("%s (%d)", f.Label(), counts[f])
		if f == board.Filter() {
			label = "[" + label + "]"
		}
		parts = append(parts, label)
	}
	fmt.Fprintln(a.out, strings.Join(parts, "  "))
	fmt.Fprintln(a.out)
}

func printAppointments(a *app, list []*types.Appointment, filter appointments.Filter) {
	if len(list) == 0 {
		if filter == appointments.FilterAll {
			fmt.Fprintln(a.out, "No appointments yet")
		} else {
			fmt.Fprintf(a.out, "No %s appointments\n", strings.ToLower(filter.Label()))
		}
		return
	}

	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tSERVICE\tWITH\tSTATUS\tACTIONS")
	for _, appt := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
			appt.ID, appt.Date, shortTime(appt.TimeSlot), serviceName(appt),
			counterpart(a, appt), statusColor(appt.Status), actions(a, appt))
	}
	_ = tw.Flush()
}

func serviceName(appt *types.Appointment) string {
	if appt.ServiceDetails != nil {
		return appt.ServiceDetails.Name
	}
	return fmt.Sprintf("#%d", appt.Service)
}

// counterpart is the other party of the appointment from the viewer's side
func counterpart(a *app, appt *types.Appointment) string {
	var u *types.User
	if a.auth.Snapshot().Role() == types.RoleProvider {
		u = appt.ClientDetails
	} else {
		u = appt.ProviderDetails
	}
	if u == nil {
		return "-"
	}
	if name := u.BusinessName(); name != "" && u.Role == types.RoleProvider {
		return name
	}
	return u.FullName()
}

func actions(a *app, appt *types.Appointment) string {
	var out []string
	if a.auth.Snapshot().Role() == types.RoleProvider {
		for _, act := range appointments.ProviderActions(appt.Status) {
			out = append(out, act.Label)
		}
	}
	if appointments.CanCancel(appt.Status) {
		out = append(out, "Cancel")
	}
	if len(out) == 0 {
		return "-"
	}
	return strings.Join(out, ", ")
}

func statusColor(s types.AppointmentStatus) string {
	switch s {
	case types.StatusPending:
		return color.YellowString(s.Label())
	case types.StatusConfirmed:
		return color.CyanString(s.Label())
	case types.StatusCompleted:
		return color.GreenString(s.Label())
	case types.StatusRejected, types.StatusCancelled:
		return color.RedString(s.Label())
	}
	return string(s)
}

func shortTime(slot string) string {
	if len(slot) == len("15:04:05") {
		return slot[:len("15:04")]
	}
	return slot
}

func init() {
	appointmentsListCmd.Flags().String("status", "all", "Filter by status: all, pending, confirmed, completed, cancelled, rejected")

	appointmentsCmd.AddCommand(appointmentsListCmd)
	appointmentsCmd.AddCommand(transitionCmd("confirm", "Confirm a pending appointment", types.StatusConfirmed))
	appointmentsCmd.AddCommand(transitionCmd("reject", "Reject a pending appointment", types.StatusRejected))
	appointmentsCmd.AddCommand(transitionCmd("complete", "Mark a confirmed appointment as done", types.StatusCompleted))
	appointmentsCmd.AddCommand(appointmentsCancelCmd)
}
