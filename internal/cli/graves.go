package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vietddude/cemetery/internal/core/domain"
)

var (
	graveSearch   string
	gravePageSize int
	graveAll      bool
)

var gravesCmd = &cobra.Command{
	Use:   "graves",
	Short: "List graves page by page (managers only)",
	RunE:  runGraves,
}

var graveCmd = &cobra.Command{
	Use:   "grave",
	Short: "Inspect and administer single graves",
}

var graveShowCmd = &cobra.Command{
	Use:   "show [id]",
	Short: "Show the full record of a grave",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraveShow,
}

var graveAddCmd = &cobra.Command{
	Use:   "add [alley] [plot]",
	Short: "Add a free grave to an alley",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraveAdd,
}

var graveRemoveCmd = &cobra.Command{
	Use:   "remove [id]",
	Short: "Remove a free grave",
	Args:  cobra.ExactArgs(1),
	RunE:  runGraveRemove,
}

var graveStatusCmd = &cobra.Command{
	Use:   "set-status [id] [free|reserved|unpaid|paid]",
	Short: "Change the status of a grave",
	Args:  cobra.ExactArgs(2),
	RunE:  runGraveStatus,
}

var statisticsCmd = &cobra.Command{
	Use:   "statistics",
	Short: "Show grave counts by status",
	RunE:  runStatistics,
}

func init() {
	gravesCmd.Flags().StringVar(&graveSearch, "search", "", "filter by deceased, owner, alley or plot")
	gravesCmd.Flags().IntVar(&gravePageSize, "page-size", 0, "graves per page (defaults to service.page_size)")
	gravesCmd.Flags().BoolVar(&graveAll, "all", false, "load every page instead of the first one")

	graveCmd.AddCommand(graveShowCmd, graveAddCmd, graveRemoveCmd, graveStatusCmd)
	rootCmd.AddCommand(gravesCmd, graveCmd, statisticsCmd)
}

func runGraves(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)
	client := app.Client()

	if gravePageSize > 0 {
		if err := client.SetGravePageSize(gravePageSize); err != nil {
			return report(err)
		}
	}
	client.SetGraveQuery(graveSearch)

	var graves []domain.Grave
	if graveAll {
		all, err := client.AllGravePages(ctx)
		if err != nil {
			return report(err)
		}
		graves = all
	} else {
		page, err := client.NextGravePage(ctx)
		if err != nil {
			return report(err)
		}
		graves = page.Items
	}

	if len(graves) == 0 {
		pterm.Info.Println("No graves found.")
		return nil
	}

	table := pterm.TableData{{"ID", "ALLEY", "PLOT", "STATUS", "DECEASED", "OWNER"}}
	for _, g := range graves {
		table = append(table, []string{
			strconv.FormatUint(g.ID, 10), g.Alley, strconv.FormatUint(g.PlotNumber, 10),
			string(g.Status), deceasedNames(g.Deceased), ownerName(g.Owner),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()

	if client.HasMoreGraves() {
		pterm.Info.Println("More graves available, use --all to load them.")
	}
	return nil
}

func runGraveShow(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	g, err := app.Client().Grave(ctx, id)
	if err != nil {
		return report(err)
	}

	pterm.DefaultSection.Printf("Grave %d\n", g.ID)
	pterm.Printf("Alley: %s, plot %d\n", g.Alley, g.PlotNumber)
	pterm.Printf("Status: %s\n", g.Status)
	if g.PaymentValidUntil != nil {
		pterm.Printf("Paid until: %s\n", g.PaymentValidUntil.Format("2006-01-02"))
	}
	if g.Owner != nil {
		pterm.Printf("Owner: %s, %s %s\n", ownerName(g.Owner), g.Owner.Address, g.Owner.Phone)
	}
	for _, d := range g.Deceased {
		pterm.Printf("Deceased: %s %s (%d, %s)\n", d.FirstName, d.LastName, d.YearOfDeath, d.PlaceOfDeath)
	}
	return nil
}

func runGraveAdd(cmd *cobra.Command, args []string) error {
	plot, err := strconv.ParseUint(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid plot number: %w", err)
	}
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	id, err := app.Client().AddGrave(ctx, args[0], plot)
	if err != nil {
		return report(err)
	}
	pterm.Success.Printf("Added grave %d in alley %s\n", id, args[0])
	return nil
}

func runGraveRemove(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	if err := app.Client().RemoveGrave(ctx, id); err != nil {
		return report(err)
	}
	pterm.Success.Printf("Removed grave %d\n", id)
	return nil
}

func runGraveStatus(cmd *cobra.Command, args []string) error {
	id, err := parseID(args[0])
	if err != nil {
		return err
	}
	status, err := domain.ParseGraveStatus(args[1])
	if err != nil {
		return err
	}
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)
	client := app.Client()

	g, err := client.Grave(ctx, id)
	if err != nil {
		return report(err)
	}
	g.Status = status
	if err := client.UpdateGrave(ctx, id, g); err != nil {
		return report(err)
	}
	pterm.Success.Printf("Grave %d is now %s\n", id, status)
	return nil
}

func runStatistics(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)

	s, err := app.Client().Statistics(ctx)
	if err != nil {
		return report(err)
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(pterm.TableData{
		{"TOTAL", "FREE", "RESERVED", "UNPAID", "PAID"},
		{strconv.Itoa(s.Total), strconv.Itoa(s.Free), strconv.Itoa(s.Reserved), strconv.Itoa(s.Unpaid), strconv.Itoa(s.Paid)},
	}).Render()
	return nil
}

func parseID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid grave id %q: %w", s, err)
	}
	return id, nil
}

func deceasedNames(people []domain.DeceasedPerson) string {
	names := make([]string, 0, len(people))
	for _, p := range people {
		names = append(names, fmt.Sprintf("%s %s (%d)", p.FirstName, p.LastName, p.YearOfDeath))
	}
	return strings.Join(names, "; ")
}

func ownerName(o *domain.GraveOwner) string {
	if o == nil {
		return ""
	}
	return strings.TrimSpace(o.FirstName + " " + o.LastName)
}
