// Command classify renders a saved episodes payload offline: it lists the
// forecast periods and prints the classification of every region for one of
// them. The payload is the JSON array returned by the Meteocat
// episodis-oberts endpoint.
//
// Usage:
//
//	go run ./cmd/classify \
//	  -episodes testdata/episodis-oberts.json \
//	  -period 12-24h \
//	  -catalog data/comarques.geojson
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"slices"
	"text/tabwriter"

	json "github.com/goccy/go-json"

	"github.com/couchcryptid/meteocat-episodes-service/internal/adapter/catalog"
	"github.com/couchcryptid/meteocat-episodes-service/internal/domain"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("classify", flag.ContinueOnError)
	fs.SetOutput(stderr)
	episodesPath := fs.String("episodes", "", "path to an episodis-oberts JSON payload, or - for stdin")
	period := fs.String("period", "", "period to classify (default: first available)")
	catalogPath := fs.String("catalog", "", "optional region catalogue (.geojson, .json, .yaml)")
	asJSON := fs.Bool("json", false, "print classifications as JSON")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *episodesPath == "" {
		fs.Usage()
		return 2
	}

	episodes, err := loadEpisodes(*episodesPath)
	if err != nil {
		fmt.Fprintf(stderr, "FATAL: load episodes: %v\n", err)
		return 1
	}

	var regions domain.RegionCatalog
	if *catalogPath != "" {
		c, err := catalog.LoadFile(*catalogPath)
		if err != nil {
			fmt.Fprintf(stderr, "FATAL: load catalogue: %v\n", err)
			return 1
		}
		regions = c
	}

	periods := domain.PeriodNames(episodes)
	selected := *period
	switch {
	case selected == "" && len(periods) > 0:
		selected = periods[0]
	case selected != "" && !slices.Contains(periods, selected):
		fmt.Fprintf(stderr, "period %q not available; periods: %v\n", selected, periods)
		return 1
	}

	var classified map[int]domain.Classification
	if selected == "" {
		classified = make(map[int]domain.Classification)
		for _, id := range domain.RegionIDs(regions) {
			classified[id] = domain.NoData
		}
	} else {
		classified = domain.ClassifyRegions(domain.CollectAffectedRegions(episodes, selected), domain.RegionIDs(regions))
	}

	ids := make([]int, 0, len(classified))
	for id := range classified {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if *asJSON {
		return printJSON(stdout, stderr, periods, selected, ids, classified, regions)
	}
	printTable(stdout, periods, selected, ids, classified, regions)
	return 0
}

func loadEpisodes(path string) ([]domain.Episode, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, err
	}

	var episodes []domain.Episode
	if err := json.Unmarshal(data, &episodes); err != nil {
		return nil, fmt.Errorf("decode %s: %w", path, err)
	}
	return domain.NormalizeEpisodes(episodes), nil
}

type regionRow struct {
	ID   int    `json:"id"`
	Name string `json:"name,omitempty"`
	domain.Classification
}

func regionName(regions domain.RegionCatalog, id int) string {
	if regions == nil {
		return ""
	}
	if r, ok := regions.Lookup(id); ok {
		return r.Name
	}
	return ""
}

func printJSON(stdout, stderr io.Writer, periods []string, selected string, ids []int, classified map[int]domain.Classification, regions domain.RegionCatalog) int {
	out := struct {
		Periods        []string    `json:"periods"`
		SelectedPeriod string      `json:"selected_period"`
		Regions        []regionRow `json:"regions"`
	}{
		Periods:        periods,
		SelectedPeriod: selected,
		Regions:        make([]regionRow, 0, len(ids)),
	}
	for _, id := range ids {
		out.Regions = append(out.Regions, regionRow{ID: id, Name: regionName(regions, id), Classification: classified[id]})
	}

	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		fmt.Fprintf(stderr, "FATAL: encode: %v\n", err)
		return 1
	}
	return 0
}

func printTable(w io.Writer, periods []string, selected string, ids []int, classified map[int]domain.Classification, regions domain.RegionCatalog) {
	fmt.Fprintf(w, "periods: %v\n", periods)
	if selected == "" {
		fmt.Fprintln(w, "selected: (none)")
	} else {
		fmt.Fprintf(w, "selected: %s\n", selected)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tLEVEL\tCOLOR\tAFFECTATIONS")
	for _, id := range ids {
		c := classified[id]
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%d\n", id, regionName(regions, id), c.Level, c.Color, c.Affectations)
	}
	tw.Flush()
}
