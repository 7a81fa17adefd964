package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kilianp07/calloutsim/app"
	"github.com/kilianp07/calloutsim/config"
	"github.com/kilianp07/calloutsim/core/events"
)

var (
	simHours   float64
	simSpeedMS int
	simSeed    uint64
	simCatalog string
	simVerbose bool
	simReport  string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run an accelerated simulation with automatic responders and print a summary",
	RunE:  simulate,
}

func init() {
	f := simulateCmd.Flags()
	f.Float64Var(&simHours, "hours", 24, "game hours to simulate")
	f.IntVar(&simSpeedMS, "speed", 250, "real milliseconds per game hour")
	f.Uint64Var(&simSeed, "seed", 0, "random seed (0 uses the configured seed)")
	f.StringVar(&simCatalog, "catalog", "", "catalog file overriding the configured one")
	f.StringVar(&simReport, "report", "", "write an HTML chart of the results to this file")
	f.BoolVarP(&simVerbose, "verbose", "v", false, "keep the configured log level")
	rootCmd.AddCommand(simulateCmd)
}

func simulate(cmd *cobra.Command, args []string) error {
	if simHours <= 0 || simSpeedMS <= 0 {
		return fmt.Errorf("hours and speed must be positive")
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	cfg.Simulation.RealMSPerGameHour = simSpeedMS
	cfg.Simulation.TickMS = max(1, simSpeedMS/60)
	if simSeed != 0 {
		cfg.Simulation.Seed = simSeed
	}
	if simCatalog != "" {
		cfg.Catalog.Path = simCatalog
	}
	if !simVerbose {
		cfg.Logging.Level = "warn"
	}

	svc, err := app.New(cfg, app.WithResponder(app.DefaultResponderConfig))
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, time.Duration(simHours*float64(simSpeedMS))*time.Millisecond)
	defer cancel()
	started := time.Now()
	if err := svc.Run(ctx); err != nil {
		return err
	}
	elapsed := time.Since(started)
	printSummary(cmd.OutOrStdout(), svc, elapsed)
	if simReport != "" {
		title := fmt.Sprintf("%s of game time, seed %d", svc.Clock.ToGame(elapsed).Round(time.Minute), cfg.Simulation.Seed)
		if err := writeReport(simReport, svc.Tally, title); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "report written to %s\n", simReport)
	}
	return nil
}

var summaryColumns = []events.CallEventType{
	events.CallAdded,
	events.CallDispatched,
	events.CallOnScene,
	events.CallCompleted,
	events.CallExpired,
	events.CallRaised,
}

func printSummary(out io.Writer, svc *app.Service, elapsed time.Duration) {
	title := color.New(color.FgCyan, color.Bold)
	title.Fprintf(out, "Simulated %s of game time in %s\n",
		svc.Clock.ToGame(elapsed).Round(time.Minute), elapsed.Round(time.Millisecond))

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprint(tw, "AGENCY")
	for _, c := range summaryColumns {
		fmt.Fprintf(tw, "\t%s", strings.ToUpper(string(c)))
	}
	fmt.Fprint(tw, "\tSHIFTS\tSHORTFALL\n")
	for _, id := range svc.Tally.Agencies() {
		a := svc.Tally.Agency(id)
		fmt.Fprint(tw, id)
		for _, c := range summaryColumns {
			fmt.Fprintf(tw, "\t%d", a.Calls[c])
		}
		shortfall := fmt.Sprint(a.Shortfall)
		if a.Shortfall > 0 {
			shortfall = color.New(color.FgYellow).Sprint(a.Shortfall)
		}
		fmt.Fprintf(tw, "\t%d\t%s\n", a.Shifts, shortfall)
	}
	_ = tw.Flush()

	added := svc.Tally.Total(events.CallAdded)
	completed := svc.Tally.Total(events.CallCompleted)
	expired := svc.Tally.Total(events.CallExpired)
	rate := color.New(color.FgGreen).Sprintf("%d/%d completed", completed, added)
	if added > 0 && float64(completed)/float64(added) < 0.5 {
		rate = color.New(color.FgRed).Sprintf("%d/%d completed", completed, added)
	}
	fmt.Fprintf(out, "%s, %s expired, %d unit transitions\n",
		rate, color.New(color.FgYellow).Sprint(expired), svc.Tally.UnitTransitions())
}
