package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/cuemby/carebook/pkg/catalog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a service catalog file",
	Long: `Create or update your services from a YAML file. A service whose
name matches one you already offer is updated, otherwise it is created.

Examples:
  # Apply a single service
  carebook apply -f checkup.yaml

  # Apply several services separated by ---
  carebook apply -f catalog.yaml`,
	RunE: run(runApply),
}

func init() {
	applyCmd.Flags().StringP("file", "f", "", "YAML file to apply (required)")
	_ = applyCmd.MarkFlagRequired("file")
}

// Resource is one document of a catalog file
type Resource struct {
	APIVersion string           `yaml:"apiVersion"`
	Kind       string           `yaml:"kind"`
	Metadata   ResourceMetadata `yaml:"metadata"`
	Spec       ServiceSpec      `yaml:"spec"`
}

type ResourceMetadata struct {
	Name string `yaml:"name"`
}

// ServiceSpec describes a service offering
type ServiceSpec struct {
	Description string          `yaml:"description"`
	Duration    int             `yaml:"duration"`
	Price       decimal.Decimal `yaml:"price"`
	Active      *bool           `yaml:"active,omitempty"`
}

// Form converts the resource to a service form
func (r *Resource) Form() *catalog.ServiceForm {
	return &catalog.ServiceForm{
		Name:        r.Metadata.Name,
		Description: r.Spec.Description,
		Duration:    r.Spec.Duration,
		Price:       r.Spec.Price,
	}
}

// parseResources reads every YAML document in r
func parseResources(r io.Reader) ([]*Resource, error) {
	dec := yaml.NewDecoder(r)
	var out []*Resource
	for {
		var res Resource
		err := dec.Decode(&res)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
		if res.Kind == "" && res.Metadata.Name == "" {
			continue
		}
		if res.Kind != "Service" {
			return nil, fmt.Errorf("unsupported resource kind: %q", res.Kind)
		}
		if res.Metadata.Name == "" {
			return nil, fmt.Errorf("service name is required")
		}
		out = append(out, &res)
	}
	return out, nil
}

func runApply(ctx context.Context, a *app, cmd *cobra.Command, args []string) error {
	filename, _ := cmd.Flags().GetString("file")

	f, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	resources, err := parseResources(f)
	if err != nil {
		return err
	}

	m, err := providerManager(ctx, a)
	if err != nil {
		return err
	}

	for _, res := range resources {
		name := res.Metadata.Name
		created, err := m.Apply(ctx, res.Form())
		if err != nil {
			return fmt.Errorf("failed to apply service %s: %w", name, err)
		}

		if res.Spec.Active != nil {
			svc, ok := m.FindByName(name)
			if ok && svc.IsActive != *res.Spec.Active {
				if err := m.SetActive(ctx, svc.ID, *res.Spec.Active); err != nil {
					return fmt.Errorf("failed to apply service %s: %w", name, err)
				}
			}
		}

		verb := "updated"
		if created {
			verb = "created"
		}
		fmt.Fprintf(a.out, "Service %s: %s\n", verb, name)
	}
	return nil
}
