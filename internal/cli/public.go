package cli

import (
	"context"
	"strconv"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/vietddude/cemetery/internal/core/domain"
)

var (
	publicSurname string
	publicYear    int
)

var publicSearchCmd = &cobra.Command{
	Use:   "public-search [query]",
	Short: "Search the public grave projection",
	Long: `Without arguments all public rows are listed. A query filters them locally by
name, year of death, alley or plot. --surname and --year run the search on the
registry instead.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublicSearch,
}

func init() {
	publicSearchCmd.Flags().StringVar(&publicSurname, "surname", "", "surname fragment (registry-side search)")
	publicSearchCmd.Flags().IntVar(&publicYear, "year", 0, "year of death (registry-side search)")
	rootCmd.AddCommand(publicSearchCmd)
}

func runPublicSearch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	app, _ := openApp(ctx)
	defer closeApp(app)
	client := app.Client()

	var (
		rows []domain.PublicGrave
		err  error
	)
	switch {
	case publicSurname != "" || publicYear != 0:
		var surname *string
		var year *int
		if publicSurname != "" {
			surname = &publicSurname
		}
		if publicYear != 0 {
			year = &publicYear
		}
		rows, err = client.SearchPublicGraves(ctx, surname, year)
	case len(args) == 1:
		rows, err = client.PublicSearch(ctx, args[0])
	default:
		rows, err = client.PublicGraves(ctx)
	}
	if err != nil {
		return report(err)
	}

	if len(rows) == 0 {
		pterm.Info.Println("No matching graves.")
		return nil
	}
	table := pterm.TableData{{"NAME", "DIED", "ALLEY", "PLOT", "STATUS"}}
	for _, r := range rows {
		died := ""
		if r.YearOfDeath != nil {
			died = strconv.Itoa(*r.YearOfDeath)
		}
		table = append(table, []string{
			r.FirstName + " " + r.LastName, died, r.Alley, strconv.FormatUint(r.PlotNumber, 10), string(r.Status),
		})
	}
	_ = pterm.DefaultTable.WithHasHeader().WithData(table).Render()
	return nil
}
