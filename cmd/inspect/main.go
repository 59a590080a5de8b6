package main

import (
	"chatchat/repositories"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/dgraph-io/badger/v4"
	"github.com/gookit/color"
	"github.com/kelseyhightower/envconfig"
	"github.com/olekukonko/tablewriter"
)

type Config struct {
	BadgerFilepath string `envconfig:"BADGER_FILEPATH" default:"./data/badger"`
	// INSPECT_PREFIX narrows the scan, "msg:" lists messages only
	Prefix string `envconfig:"INSPECT_PREFIX" default:""`
	// INSPECT_COLOURS highlights deleted messages and profiles
	Colours bool `envconfig:"INSPECT_COLOURS" default:"true"`
}

func main() {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatal("Invalid configuration: ", err)
	}
	dbPath := flag.String("db", cfg.BadgerFilepath, "Path to badger DB")
	prefix := flag.String("prefix", cfg.Prefix, "Prefix to scan")
	flag.Parse()

	db, err := openDB(*dbPath)
	if err != nil {
		log.Fatal("Error while opening Badger: ", err)
	}
	defer db.Close()

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Key", "Kind", "At", "Room", "ID", "Author", "Detail"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")

	rows := 0
	err = repositories.Scan(db, *prefix, func(entry repositories.Entry) error {
		rows++
		table.Append(render(entry, cfg.Colours))
		return nil
	})
	if err != nil {
		log.Fatal(err)
	}

	table.Render()
	fmt.Printf("%d entries\n", rows)
}

func render(entry repositories.Entry, colours bool) []string {
	at := ""
	if !entry.At.IsZero() {
		at = entry.At.Format("2006-01-02 15:04:05")
	}
	// First 8 characters are enough to tell ids apart
	id := entry.ID
	if len(id) > 8 {
		id = id[:8]
	}
	detail := strings.ReplaceAll(entry.Detail, "\n", " ")
	if len(detail) > 60 {
		detail = detail[:57] + "..."
	}

	kind := entry.Kind
	if colours {
		switch {
		case entry.Deleted:
			kind = color.New(color.FgRed).Render(kind + " (deleted)")
		case entry.Kind == "IMAGE":
			kind = color.New(color.FgCyan).Render(kind)
		case entry.Kind == "PROFILE":
			kind = color.New(color.FgGreen).Render(kind)
		}
	} else if entry.Deleted {
		kind += " (deleted)"
	}

	return []string{entry.Key, kind, at, entry.Room, id, entry.Author, detail}
}

func openDB(path string) (*badger.DB, error) {
	opts := badger.DefaultOptions(path).
		WithReadOnly(true).
		WithLogger(nil).
		WithBypassLockGuard(true)
	return badger.Open(opts)
}
