package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/cuemby/carebook/pkg/booking"
	"github.com/spf13/cobra"
)

var bookCmd = &cobra.Command{
	Use:   "book",
	Short: "Book an appointment with a provider",
	Long: `Book an appointment with a provider. Without --service the provider's
bookable services are listed instead.

Example:
  carebook book --provider 4 --service 12 --date 2025-06-01 --time 10:00`,
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		providerID, _ := cmd.Flags().GetInt64("provider")
		service, _ := cmd.Flags().GetString("service")
		date, _ := cmd.Flags().GetString("date")
		slot, _ := cmd.Flags().GetString("time")

		if err := a.resolve(ctx); err != nil {
			return err
		}

		flow := booking.NewFlow(a.client, a.auth, a.notifier, a.broker)
		if err := flow.Open(ctx, providerID); err != nil {
			return err
		}
		defer flow.Close()

		if service == "" {
			printServices(a, flow.Services())
			fmt.Fprintln(a.out)
			fmt.Fprintf(a.out, "Times: %s\n", strings.Join(flow.TimeSlots(), " "))
			return nil
		}

		flow.SelectService(service)
		flow.SelectDate(date)
		flow.SelectTime(slot)

		appt, err := flow.Submit(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Appointment ID: %s (%s on %s at %s)\n",
			strconv.FormatInt(appt.ID, 10), appt.Status.Label(), appt.Date, shortTime(appt.TimeSlot))
		return nil
	}),
}

var slotsCmd = &cobra.Command{
	Use:   "slots",
	Short: "List the bookable start times",
	Long: `List the start times offered when booking. The list is the same for
every provider and every day; whether a booking is accepted is up to the
provider.`,
	Run: func(cmd *cobra.Command, args []string) {
		for _, s := range booking.TimeSlots {
			fmt.Fprintln(cmd.OutOrStdout(), s)
		}
	},
}

func init() {
	bookCmd.Flags().Int64("provider", 0, "Provider ID")
	bookCmd.Flags().String("service", "", "Service ID")
	bookCmd.Flags().String("date", "", "Date, YYYY-MM-DD")
	bookCmd.Flags().String("time", "", "Start time, e.g. 10:00 (see 'carebook slots')")
	_ = bookCmd.MarkFlagRequired("provider")
}
