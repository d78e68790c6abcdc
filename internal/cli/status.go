package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vietddude/cemetery/internal/core/authz"
	"github.com/vietddude/cemetery/internal/core/domain"
	"github.com/vietddude/cemetery/internal/indexing/health"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show connection health and the signed-in role",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	report := app.Monitor().Probe(ctx)
	writeHealth(os.Stdout, report)

	// The registry's own answer for the bound identity, next to the gate's.
	registryRole, err := app.Client().CallerRole(ctx)
	if err != nil {
		registryRole = domain.RoleNone
	}
	writeSession(os.Stdout, app.Client().Gate(), registryRole)
	return nil
}

func writeHealth(out io.Writer, report health.HealthReport) {
	w := tabwriter.NewWriter(out, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "SERVICE\tSTATUS\tCONNECTION\tATTEMPTS\tLATENCY\tAVAILABLE\tERROR RATE\tAVG LATENCY\tERROR")

	names := make([]string, 0, len(report.Services))
	for name := range report.Services {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		s := report.Services[name]
		available, rate, avg := "-", "-", "-"
		if t := s.Transport; t != nil {
			available = fmt.Sprint(t.Available)
			rate = fmt.Sprintf("%.0f%% of %d", t.ErrorRate*100, t.Samples)
			avg = t.AvgLatency.String()
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\t%s\t%s\t%s\n",
			name, s.Status, s.Connection, s.Attempts, s.Latency, available, rate, avg, s.LastError)
	}
	_ = w.Flush()

	_, _ = fmt.Fprintf(out, "\nsystem: %s   connection: %s\n", report.SystemStatus, report.Connection)
}

func writeSession(out io.Writer, gate *authz.Gate, registryRole domain.Role) {
	session := gate.SessionID()
	if session == "" {
		session = "-"
	}
	_, _ = fmt.Fprintf(out, "principal: %q   session: %s\n", gate.Principal(), session)
	_, _ = fmt.Fprintf(out, "state: %s (%s)\n", gate.State(), authz.StateDescription(gate.State()))
	_, _ = fmt.Fprintf(out, "role: %s   registry role: %s   view: %s\n", gate.Role(), registryRole, gate.View())
}
