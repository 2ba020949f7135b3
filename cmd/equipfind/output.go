package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/equipfind/equipfind/internal/bus"
	"github.com/equipfind/equipfind/internal/catalog/sqlcatalog"
	"github.com/equipfind/equipfind/internal/search"
)

type printer struct {
	w    io.Writer
	json bool
}

func newPrinter(cmd *cobra.Command) *printer {
	format, _ := cmd.Flags().GetString("format")
	return &printer{w: cmd.OutOrStdout(), json: format == "json"}
}

func (p *printer) encode(v any) error {
	enc := json.NewEncoder(p.w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func (p *printer) searchResults(resp *search.SearchResponse) error {
	if p.json {
		return p.encode(resp)
	}
	if resp.Count == 0 {
		fmt.Fprintln(p.w, "No equipment found.")
		return nil
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tBRAND\tMODEL\tSTATUS\tLOCATION\tDISTANCE\tWAITING")
	for _, r := range resp.Results {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\t%d\n",
			r.ID, r.Type, r.Brand, r.Model, r.Status, location(r), distance(r.DistanceM), r.WaitingCount)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	fmt.Fprintf(p.w, "\n%d result(s)\n", resp.Count)
	return nil
}

func location(r search.Result) string {
	var parts []string
	if r.Location.Floor != nil {
		parts = append(parts, "floor "+strconv.Itoa(*r.Location.Floor))
	}
	if r.Location.RoomName != "" {
		parts = append(parts, r.Location.RoomName)
	}
	if len(parts) == 0 {
		return "-"
	}
	return strings.Join(parts, ", ")
}

func distance(d *float64) string {
	if d == nil {
		return "-"
	}
	return strconv.FormatFloat(*d, 'f', 0, 64) + " m"
}

func (p *printer) suggestions(out []string) error {
	if p.json {
		return p.encode(search.SuggestResponse{Suggestions: out})
	}
	for _, s := range out {
		fmt.Fprintln(p.w, s)
	}
	return nil
}

func (p *printer) filters(opts *search.FilterOptions) error {
	if p.json {
		return p.encode(opts)
	}

	floors := make([]string, len(opts.Floors))
	for i, f := range opts.Floors {
		floors[i] = strconv.Itoa(f)
	}
	rooms := make([]string, len(opts.Rooms))
	for i, r := range opts.Rooms {
		rooms[i] = fmt.Sprintf("%s (#%d)", r.Name, r.ID)
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	for _, row := range []struct {
		name   string
		values []string
	}{
		{"Types", opts.Types},
		{"Brands", opts.Brands},
		{"Statuses", opts.Statuses},
		{"Features", opts.Features},
		{"Floors", floors},
		{"Rooms", rooms},
	} {
		fmt.Fprintf(tw, "%s:\t%s\n", row.name, strings.Join(row.values, ", "))
	}
	return tw.Flush()
}

func (p *printer) imported(res sqlcatalog.ImportResult) error {
	if p.json {
		return p.encode(res)
	}
	fmt.Fprintf(p.w, "Imported %d rooms, %d equipment, %d features, %d reservations\n",
		res.Rooms, res.Equipment, res.Features, res.Reservations)
	return nil
}

func (p *printer) events(events []bus.LoggedEvent) error {
	if p.json {
		return p.encode(events)
	}
	if len(events) == 0 {
		fmt.Fprintln(p.w, "No events.")
		return nil
	}

	tw := tabwriter.NewWriter(p.w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TIME\tTOPIC\tSOURCE\tPAYLOAD")
	for _, e := range events {
		payload, _ := json.Marshal(e.Event.Payload)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n",
			e.Timestamp.Format(time.RFC3339), e.Topic, e.Event.Source, payload)
	}
	return tw.Flush()
}
