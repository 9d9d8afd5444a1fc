package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"

	"github.com/dantosXD/tably"
)

// tably opens a table, applies the chosen saved view and prints the
// resulting projection. Useful for poking at a backend from a shell.
func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "tably:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = pflag.String("config", "tably.json", "path to the config file")
		baseURL    = pflag.String("base-url", "", "backend base url (overrides config)")
		token      = pflag.String("token", "", "bearer token (overrides config)")
		tableID    = pflag.Int64("table", 0, "table id to open")
		viewName   = pflag.String("view", "", "saved view to render (default: first grid view)")
		watch      = pflag.Bool("watch", false, "keep the realtime channel open and log changes")
	)
	pflag.Parse()

	// .env is optional; flags and the config file win over it
	_ = godotenv.Load()

	cfg, err := tably.LoadConfig(*configPath)
	if err != nil {
		return err
	}

	if *baseURL != "" {
		cfg.BaseURL = *baseURL
	}
	if *token != "" {
		cfg.Token = *token
	}
	if cfg.Token == "" {
		cfg.Token = os.Getenv("TABLY_TOKEN")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("TABLY_BASE_URL")
	}

	if *tableID == 0 {
		return fmt.Errorf("a table id is required (--table)")
	}

	logger := tably.NewLogger(cfg.LogLevel, cfg.LogFormat)
	cfg.Logger = logger
	cfg.Notice = func(msg string) {
		fmt.Fprintln(os.Stderr, msg)
	}

	session, err := tably.NewSession(cfg.Service(), cfg)
	if err != nil {
		return err
	}
	defer func() { _ = session.Close() }()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := session.OpenTable(ctx, *tableID); err != nil {
		logger.Warn("table opened without a realtime channel", "err", err)
	}

	if fieldsErr, recordsErr, viewsErr := session.Errors(); fieldsErr != nil || recordsErr != nil {
		return fmt.Errorf("table %d could not be loaded: fields=%v records=%v", *tableID, fieldsErr, recordsErr)
	} else if viewsErr != nil {
		logger.Warn("views could not be loaded", "err", viewsErr)
	}

	view, err := pickView(session.Views(), *viewName)
	if err != nil {
		return err
	}

	if err := session.ApplyView(ctx, view.Config); err != nil {
		return err
	}

	if err := render(session, view); err != nil {
		return err
	}

	if *watch {
		unsubscribe := session.Store().Subscribe(func(c tably.Change) {
			logger.Info("store changed", "kind", c.Kind.String(), "record_id", c.RecordID)
		})
		defer unsubscribe()

		fmt.Fprintln(os.Stderr, "watching for changes, ctrl-c to stop")
		<-ctx.Done()
	}

	return nil
}

func pickView(views []tably.View, name string) (tably.View, error) {
	if name != "" {
		for _, v := range views {
			if v.Name == name {
				return v, nil
			}
		}
		return tably.View{}, fmt.Errorf("no view named %q", name)
	}

	for _, v := range views {
		if v.Type == tably.ViewTypeGrid {
			return v, nil
		}
	}

	// no saved views at all: fall back to a bare grid
	return tably.View{Type: tably.ViewTypeGrid}, nil
}

func render(session *tably.Session, view tably.View) error {
	switch view.Type {
	case tably.ViewTypeGrid, tably.ViewTypeForm, tably.ViewTypeInvalid:
		grid, err := session.Grid(view.Config)
		if err != nil {
			return err
		}
		renderGrid(grid)
	case tably.ViewTypeKanban:
		board, err := session.Kanban(view.Config)
		if err != nil {
			return err
		}
		renderKanban(board)
	case tably.ViewTypeCalendar:
		cal, err := session.Calendar(view.Config)
		if err != nil {
			return err
		}
		renderCalendar(cal)
	case tably.ViewTypeGallery:
		gallery, err := session.Gallery(view.Config)
		if err != nil {
			return err
		}
		renderGallery(gallery)
	}

	return nil
}

func renderGrid(grid *tably.GridModel) {
	for _, f := range grid.Fields {
		fmt.Printf("%s\t", f.Name)
	}
	fmt.Println()

	for _, row := range grid.Rows {
		for _, cell := range row.Cells {
			fmt.Printf("%s\t", cell.Display)
		}
		fmt.Println()
	}
}

func renderKanban(board *tably.KanbanBoard) {
	for _, col := range board.Columns {
		fmt.Printf("%s (%d)\n", col.Key, len(col.Records))
		for _, rec := range col.Records {
			fmt.Printf("  record %d\n", rec.ID)
		}
	}
}

func renderCalendar(cal *tably.CalendarModel) {
	for _, ev := range cal.Events {
		end := ""
		if ev.End != nil {
			end = " .. " + ev.End.Format("2006-01-02")
		}
		fmt.Printf("%s%s\t%s\n", ev.Start.Format("2006-01-02"), end, ev.Title)
	}
}

func renderGallery(gallery *tably.GalleryModel) {
	for _, card := range gallery.Cards {
		cover := card.Cover.URL
		if cover == "" {
			cover = card.Cover.Placeholder
		}
		fmt.Printf("record %d\t[%s]\n", card.RecordID, cover)
		for _, v := range card.Values {
			fmt.Printf("  %s: %s\n", v.Name, v.Display)
		}
	}
}
