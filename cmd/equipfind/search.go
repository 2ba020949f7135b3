package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/equipfind/equipfind/internal/search"
)

func searchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search [query...]",
		Short: "Search equipment with a natural-language query",
		Example: `  equipfind search imprimante hp etage 1
  equipfind search --type Scanner --sort-by-distance --max-distance 200 scanner
  equipfind --server localhost:9090 search 192.168.1.5`,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := search.Request{Query: strings.Join(args, " ")}

			flags := cmd.Flags()
			if flags.Changed("floor") {
				v, _ := flags.GetInt("floor")
				req.FloorID = &v
			}
			if flags.Changed("room") {
				v, _ := flags.GetInt64("room")
				req.RoomID = &v
			}
			if flags.Changed("max-distance") {
				v, _ := flags.GetFloat64("max-distance")
				if v < 0 {
					return fmt.Errorf("--max-distance must not be negative")
				}
				req.MaxDistance = &v
			}
			req.Type, _ = flags.GetString("type")
			req.Brand, _ = flags.GetString("brand")
			req.Status, _ = flags.GetString("status")
			req.Feature, _ = flags.GetString("feature")
			req.SortByDistance, _ = flags.GetBool("sort-by-distance")

			loc, err := openLocator(cmd)
			if err != nil {
				return err
			}
			defer loc.Close()

			resp, err := loc.Search(cmd.Context(), req)
			if err != nil {
				return err
			}
			return newPrinter(cmd).searchResults(resp)
		},
	}

	cmd.Flags().Int("floor", 0, "only this floor")
	cmd.Flags().Int64("room", 0, "only this room id")
	cmd.Flags().String("type", "", "equipment type (e.g. Imprimante)")
	cmd.Flags().String("brand", "", "brand")
	cmd.Flags().String("status", "", "status (available, busy, broken, ...)")
	cmd.Flags().String("feature", "", "feature name")
	cmd.Flags().Bool("sort-by-distance", false, "rank nearest equipment first")
	cmd.Flags().Float64("max-distance", 0, "drop equipment farther than this many meters")

	return cmd
}

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <partial query>",
		Short: "Autocomplete a partial query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			if limit < 0 || limit > search.MaxSuggestions {
				return fmt.Errorf("--limit must be between 1 and %d", search.MaxSuggestions)
			}

			loc, err := openLocator(cmd)
			if err != nil {
				return err
			}
			defer loc.Close()

			out, err := loc.Suggest(cmd.Context(), strings.Join(args, " "), limit)
			if err != nil {
				return err
			}
			return newPrinter(cmd).suggestions(out)
		},
	}
	cmd.Flags().IntP("limit", "n", 0, "number of suggestions (default from config)")
	return cmd
}

func filtersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "filters",
		Short: "List the values search filters accept",
		RunE: func(cmd *cobra.Command, args []string) error {
			loc, err := openLocator(cmd)
			if err != nil {
				return err
			}
			defer loc.Close()

			opts, err := loc.Filters(cmd.Context())
			if err != nil {
				return err
			}
			return newPrinter(cmd).filters(opts)
		},
	}
}
