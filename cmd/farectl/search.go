package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dharmasatrya/fareengine/internal/enhanced"
	"github.com/dharmasatrya/fareengine/internal/filters"
	"github.com/dharmasatrya/fareengine/internal/models"
	"github.com/dharmasatrya/fareengine/internal/ranking"
	"github.com/dharmasatrya/fareengine/pkg/currency"
)

type searchFlags struct {
	from, to    string
	depart, ret string
	adults      int
	children    int
	infants     int
	cabin       string
	sources     []string
	sortBy      string
	order       string
	directOnly  bool
	maxPrice    float64
	carriers    []string
	optimize    bool
	limit       int
	asJSON      bool
}

func searchCmd(build builder) *cobra.Command {
	var f searchFlags

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search every configured source for fares",
		Long: `Search every configured source, then filter, sort and optionally optimize the results.

Examples:
  farectl search --from JFK --to LHR --depart 2026-06-12
  farectl search --from JFK --to LHR --depart 2026-06-12 --direct --sort duration
  farectl search --from JFK --to LHR --depart 2026-06-12 --optimize --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			criteria, err := f.criteria()
			if err != nil {
				return err
			}

			a, err := build(cmd)
			if err != nil {
				return err
			}
			defer a.Close()

			result, err := a.Enhanced.Search(cmd.Context(), criteria, f.sources, f.options())
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if f.asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}
			printResult(cmd, result, f.limit)
			return nil
		},
	}

	fl := cmd.Flags()
	fl.StringVar(&f.from, "from", "", "origin airport code")
	fl.StringVar(&f.to, "to", "", "destination airport code")
	fl.StringVar(&f.depart, "depart", "", "departure date (YYYY-MM-DD)")
	fl.StringVar(&f.ret, "return", "", "return date (YYYY-MM-DD)")
	fl.IntVar(&f.adults, "adults", 1, "adult passengers")
	fl.IntVar(&f.children, "children", 0, "child passengers")
	fl.IntVar(&f.infants, "infants", 0, "infant passengers")
	fl.StringVar(&f.cabin, "cabin", "economy", "cabin class (economy, premium_economy, business, first)")
	fl.StringSliceVar(&f.sources, "sources", nil, "sources to query (default all)")
	fl.StringVar(&f.sortBy, "sort", "price", "sort by price, duration, departure, arrival, stops or best_value")
	fl.StringVar(&f.order, "order", "asc", "sort order (asc, desc)")
	fl.BoolVar(&f.directOnly, "direct", false, "direct flights only")
	fl.Float64Var(&f.maxPrice, "max-price", 0, "maximum total price")
	fl.StringSliceVar(&f.carriers, "carriers", nil, "only these carriers")
	fl.BoolVar(&f.optimize, "optimize", false, "look for positioning, stopover and open-jaw alternatives")
	fl.IntVarP(&f.limit, "limit", "n", 20, "maximum offers to print")
	fl.BoolVar(&f.asJSON, "json", false, "output as JSON")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("depart")

	return cmd
}

func (f searchFlags) criteria() (models.SearchCriteria, error) {
	depart, err := models.ParseDate(f.depart)
	if err != nil {
		return models.SearchCriteria{}, fmt.Errorf("--depart: %w", err)
	}
	c := models.SearchCriteria{
		Origin:        f.from,
		Destination:   f.to,
		DepartureDate: depart,
		Passengers:    models.Passengers{Adults: f.adults, Children: f.children, Infants: f.infants},
		CabinClass:    models.CabinClass(f.cabin),
	}
	if f.ret != "" {
		ret, err := models.ParseDate(f.ret)
		if err != nil {
			return c, fmt.Errorf("--return: %w", err)
		}
		c.ReturnDate = &ret
	}
	return c, nil
}

func (f searchFlags) options() enhanced.Options {
	opts := enhanced.Options{Optimize: f.optimize}
	opts.Search.SortBy = ranking.SortField(f.sortBy)
	opts.Search.SortOrder = ranking.SortOrder(f.order)
	opts.Optimization.ConsiderPositioning = f.optimize
	opts.Optimization.AllowStopover = f.optimize
	opts.Optimization.AllowOpenJaw = f.optimize

	if f.directOnly || f.maxPrice > 0 || len(f.carriers) > 0 {
		set := &filters.FilterSet{DirectOnly: f.directOnly, Carriers: f.carriers}
		if f.maxPrice > 0 {
			ceiling := f.maxPrice
			set.PriceMax = &ceiling
		}
		opts.Filters = set
	}
	return opts
}

func printResult(cmd *cobra.Command, r *enhanced.Result, limit int) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%d offers from %d/%d sources in %s\n", len(r.Offers), r.SourcesSucceeded, r.SourcesQueried, r.Elapsed.Round(time.Millisecond))
	for _, e := range r.Errors {
		fmt.Fprintf(out, "  ! %s: %s\n", e.Source, e.Message)
	}
	if r.FilterResult != nil {
		for _, w := range r.FilterResult.Warnings {
			fmt.Fprintf(out, "  ~ %s\n", w)
		}
	}

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSOURCE\tCARRIER\tROUTE\tDEPARTS\tDURATION\tSTOPS\tPRICE\tAWARD")
	for i, o := range r.Offers {
		if limit > 0 && i >= limit {
			break
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%dh%02dm\t%d\t%s\t%s\n",
			i+1, o.Source, o.Carrier, route(o),
			o.DepartureTime().Format("Jan 2 15:04"),
			o.TotalDuration/60, o.TotalDuration%60,
			o.LayoverCount,
			currency.Format(o.Pricing.TotalPrice, o.Pricing.Currency),
			award(o),
		)
	}
	tw.Flush()

	if opt := r.OptimizedRoute; opt != nil {
		fmt.Fprintf(out, "\nBest route: %s, %s (score %.2f)\n", opt.RouteType,
			currency.Format(opt.TotalCost, "USD"), opt.OptimizationScore)
		for _, rec := range opt.Recommendations {
			fmt.Fprintf(out, "  - %s\n", rec)
		}
	}
	for _, rec := range r.Recommendations {
		fmt.Fprintf(out, "Tip: %s\n", rec.Reason)
	}
}

func route(o models.Offer) string {
	if len(o.Segments) == 0 {
		return ""
	}
	stops := []string{o.Segments[0].Origin}
	for _, s := range o.Segments {
		stops = append(stops, s.Destination)
	}
	return strings.Join(stops, "-")
}

func award(o models.Offer) string {
	var best *models.PointsOption
	for i := range o.Pricing.PointsOptions {
		p := &o.Pricing.PointsOptions[i]
		if p.PointsRequired > 0 && (best == nil || p.BestValue) {
			best = p
		}
	}
	if best == nil {
		return "-"
	}
	return currency.FormatPoints(best.PointsRequired) + " " + best.ProgramID
}
