package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/mr1hm/go-lostfound/internal/aggregation"
	"github.com/mr1hm/go-lostfound/internal/markers"
	"github.com/mr1hm/go-lostfound/internal/models"
	"github.com/mr1hm/go-lostfound/internal/viewport"
)

var errUnreachable = errors.New("unable to reach the report backend")

var (
	markersDays int
	markersAll  bool
	markersJSON bool
)

// markersCmd lists the markers the map would show
var markersCmd = &cobra.Command{
	Use:   "markers",
	Short: "List stray and lost markers for a time range",
	Long: `Fetch stray reports and unresolved lost announcements for the last 1, 3
or 7 days and print them the way the map shows them.

Markers without a location are hidden unless --all is given.`,
	Args: cobra.NoArgs,
	RunE: runMarkers,
}

func init() {
	markersCmd.Flags().IntVarP(&markersDays, "days", "d", int(models.TimeRangeDay), "Time range in days: 1, 3 or 7")
	markersCmd.Flags().BoolVar(&markersAll, "all", false, "Include markers without a location")
	markersCmd.Flags().BoolVar(&markersJSON, "json", false, "Print markers as JSON")
}

func runMarkers(cmd *cobra.Command, args []string) error {
	tr := models.TimeRange(markersDays)
	if !cmd.Flags().Changed("days") {
		tr = cfg.Map.DefaultRange
	}
	if !tr.Valid() {
		return fmt.Errorf("invalid --days %d: must be 1, 3 or 7", markersDays)
	}

	normalizer := markers.NewNormalizer(cfg.API.UploadsOrigin(), time.Now)
	fetcher := aggregation.NewFetcher(client, normalizer, aggregation.NewStore(nil))
	res := fetcher.Refresh(cmd.Context(), tr)
	if res.Unreachable() {
		return fmt.Errorf("%w: %v", errUnreachable, res.StrayErr)
	}

	list := res.Markers
	if !markersAll {
		list = markers.Mappable(list)
	}

	out := cmd.OutOrStdout()
	if markersJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(list)
	}

	if len(list) == 0 {
		fmt.Fprintf(out, "No reports in the last %s.\n", tr.Label())
		return nil
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tNAME\tLAT\tLNG\tWHEN\tDESCRIPTION")
	for _, m := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			m.ID, m.Kind.Label(), m.PetName,
			models.FormatCoordinate(m.Lat), models.FormatCoordinate(m.Lng),
			m.TimeAgo, truncate(m.Description, 48))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if v, ok := viewport.Fit(list, viewport.DefaultSize); ok {
		fmt.Fprintf(out, "\nmap view: center %s,%s zoom %d\n",
			models.FormatCoordinate(v.Center.Lat), models.FormatCoordinate(v.Center.Lng), v.Zoom)
	}
	if res.StrayErr != nil || res.LostErr != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), "warning: some reports could not be loaded")
	}
	return nil
}

func truncate(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
