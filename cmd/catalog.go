package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilianp07/calloutsim/core/catalog"
	"github.com/kilianp07/calloutsim/core/model"
	"github.com/kilianp07/calloutsim/core/roster"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Zone and agency catalog commands",
}

var catalogValidateCmd = &cobra.Command{
	Use:   "validate [file]",
	Short: "Validate a catalog file and print the roster size per period",
	Args:  cobra.MaximumNArgs(1),
	RunE:  validateCatalog,
}

func init() {
	catalogCmd.AddCommand(catalogValidateCmd)
	rootCmd.AddCommand(catalogCmd)
}

func validateCatalog(cmd *cobra.Command, args []string) error {
	var (
		c   *catalog.Catalog
		err error
	)
	if len(args) == 1 {
		c, err = catalog.Load(args[0])
	} else {
		c, err = catalog.Default()
	}
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if err := c.Validate(); err != nil {
		fmt.Fprintf(out, "%s\n%v\n", color.New(color.FgRed).Sprint("INVALID"), err)
		return fmt.Errorf("catalog is invalid")
	}
	zones := make(map[string]*model.Zone, len(c.Zones))
	for _, zs := range c.Zones {
		z, err := zs.Zone()
		if err != nil {
			return err
		}
		zones[z.ID] = z
	}
	var cfg roster.Config
	cfg.SetDefaults()
	cfg.TrafficUnits = true
	fmt.Fprintf(out, "%s %d zones, %d agencies\n", color.New(color.FgGreen).Sprint("OK"), len(c.Zones), len(c.Agencies))
	for _, a := range c.Agencies {
		level, _ := roster.ParseStaffLevel(a.StaffLevel)
		var az []*model.Zone
		staging := 0
		for _, id := range a.Zones {
			az = append(az, zones[id])
			staging += len(zones[id].Staging)
		}
		fmt.Fprintf(out, "  %s (%s, %d staging locations)\n", a.ID, level, staging)
		for _, p := range model.TimePeriods {
			patrol := roster.OptimumUnits(az, p, model.KindPatrol, level, cfg)
			traffic := roster.OptimumUnits(az, p, model.KindTraffic, level, cfg)
			line := fmt.Sprintf("    %-8s patrol %d, traffic %d", p, patrol, traffic)
			if patrol+traffic > staging {
				line += color.New(color.FgYellow).Sprintf(" (short of %d staging locations)", patrol+traffic-staging)
			}
			fmt.Fprintln(out, line)
		}
	}
	return nil
}
