package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/cuemby/carebook/pkg/catalog"
	"github.com/cuemby/carebook/pkg/nav"
	"github.com/cuemby/carebook/pkg/types"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var providersCmd = &cobra.Command{
	Use:   "providers [SEARCH]",
	Short: "List providers, optionally filtered by name or business",
	Args:  cobra.MaximumNArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		dir := catalog.NewDirectory(a.client)
		if err := dir.Load(ctx); err != nil {
			return fmt.Errorf("failed to load providers: %w", err)
		}

		query := ""
		if len(args) == 1 {
			query = args[0]
		}
		found := dir.Search(query)
		if len(found) == 0 {
			fmt.Fprintln(a.out, "No providers found. Try adjusting your search terms.")
			return nil
		}

		tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tNAME\tBUSINESS\tSPECIALIZATION\tVERIFIED")
		for _, p := range found {
			spec, verified := "", false
			if pp := p.ProviderProfile; pp != nil {
				spec, verified = pp.Specialization, pp.IsVerified
			}
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%t\n", p.ID, p.FullName(), p.BusinessName(), spec, verified)
		}
		return tw.Flush()
	}),
}

var servicesCmd = &cobra.Command{
	Use:   "services",
	Short: "List and manage services",
}

var servicesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List a provider's services, or your own as a provider",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		providerID, _ := cmd.Flags().GetInt64("provider")

		var services []*types.Service
		if providerID == 0 {
			m, err := providerManager(ctx, a)
			if err != nil {
				return err
			}
			services = m.List()
		} else {
			all, err := a.client.Services(ctx, providerID)
			if err != nil {
				return err
			}
			for _, s := range all {
				if s.Provider == providerID {
					services = append(services, s)
				}
			}
		}

		printServices(a, services)
		return nil
	}),
}

var servicesCreateCmd = &cobra.Command{
	Use:   "create",
	Short: "Create a service",
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		m, err := providerManager(ctx, a)
		if err != nil {
			return err
		}

		form := &catalog.ServiceForm{}
		form.Name, _ = cmd.Flags().GetString("name")
		form.Description, _ = cmd.Flags().GetString("description")
		form.Duration, _ = cmd.Flags().GetInt("duration")
		price, _ := cmd.Flags().GetString("price")
		if form.Price, err = decimal.NewFromString(price); err != nil {
			return fmt.Errorf("invalid price %q", price)
		}

		svc, err := m.Create(ctx, form)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "Service ID: %d\n", svc.ID)
		return nil
	}),
}

func serviceToggleCmd(use, short string, active bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " ID",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			m, err := providerManager(ctx, a)
			if err != nil {
				return err
			}
			return m.SetActive(ctx, id, active)
		}),
	}
}

var servicesDeleteCmd = &cobra.Command{
	Use:   "delete ID",
	Short: "Delete a service",
	Args:  cobra.ExactArgs(1),
	RunE: run(func(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		m, err := providerManager(ctx, a)
		if err != nil {
			return err
		}
		return m.Delete(ctx, id)
	}),
}

// providerManager returns a loaded service manager for the signed-in provider
func providerManager(ctx context.Context, a *app) (*catalog.Manager, error) {
	user, err := a.guard(ctx, nav.RouteProviderServices)
	if err != nil {
		return nil, err
	}
	m := catalog.NewManager(a.client, user, a.notifier, a.broker)
	if err := m.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load services: %w", err)
	}
	return m, nil
}

func printServices(a *app, services []*types.Service) {
	if len(services) == 0 {
		fmt.Fprintln(a.out, "No services")
		return
	}
	tw := tabwriter.NewWriter(a.out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tDURATION\tPRICE\tACTIVE")
	for _, s := range services {
		fmt.Fprintf(tw, "%d\t%s\t%d min\t$%s\t%t\n", s.ID, s.Name, s.Duration, s.Price.StringFixed(2), s.IsActive)
	}
	_ = tw.Flush()
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func init() {
	servicesListCmd.Flags().Int64("provider", 0, "Provider ID (default: your own services)")

	servicesCreateCmd.Flags().String("name", "", "Service name")
	servicesCreateCmd.Flags().String("description", "", "Service description")
	servicesCreateCmd.Flags().Int("duration", 30, "Duration in minutes")
	servicesCreateCmd.Flags().String("price", "0", "Price, e.g. 49.99")
	_ = servicesCreateCmd.MarkFlagRequired("name")

	servicesCmd.AddCommand(servicesListCmd)
	servicesCmd.AddCommand(servicesCreateCmd)
	servicesCmd.AddCommand(serviceToggleCmd("enable", "Make a service bookable", true))
	servicesCmd.AddCommand(serviceToggleCmd("disable", "Stop offering a service", false))
	servicesCmd.AddCommand(servicesDeleteCmd)
}
