// Package main provides the player entry point.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	zlog "github.com/rs/zerolog/log"

	"github.com/tonefold/tonefold/internal/app/counter"
	"github.com/tonefold/tonefold/internal/app/filter"
	"github.com/tonefold/tonefold/internal/app/importer"
	"github.com/tonefold/tonefold/internal/app/playback"
	"github.com/tonefold/tonefold/internal/domain/song"
	"github.com/tonefold/tonefold/internal/infra/config"
	"github.com/tonefold/tonefold/internal/infra/logger"
	"github.com/tonefold/tonefold/internal/infra/mpv"
	"github.com/tonefold/tonefold/internal/infra/scanner"
	"github.com/tonefold/tonefold/internal/store"
)

var (
	app        = kingpin.New("tonefold", "tonefold local media library and player")
	configPath = app.Flag("config", "Path to config file").Default("config/tonefold.yaml").String()
	verbose    = app.Flag("verbose", "Enable verbose (DEBUG) logging").Short('v').Bool()
	logfile    = app.Flag("logfile", "Path to log file (default: stdout)").String()

	scanCmd    = app.Command("scan", "Import the music library and exit")
	filtersCmd = app.Command("filters", "List available import filters and exit")
)

func init() {
	app.Command("start", "Start the player (default)").Default()
}

func main() {
	// Load .env file if it exists (errors are ignored)
	_ = godotenv.Load()

	command := kingpin.MustParse(app.Parse(os.Args[1:]))

	if command == filtersCmd.FullCommand() {
		printFilters()
		return
	}

	loggerConfig := logger.Config{Output: "stdout", Level: "info"}
	if *verbose {
		loggerConfig.Level = "debug"
	}
	if *logfile != "" {
		loggerConfig.Output = *logfile
	}
	if err := logger.Init(loggerConfig); err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}

	zlog.Info().Msgf("Loading config from %s", *configPath)
	cfg, err := config.Load(*configPath)
	if err != nil {
		zlog.Fatal().Msgf("Failed to load config: %v", err)
	}

	if command == scanCmd.FullCommand() {
		err = runScan(cfg)
	} else {
		err = run(cfg)
	}
	if err != nil {
		zlog.Error().Msgf("tonefold error: %v", err)
		os.Exit(1)
	}
}

// printFilters prints available import filters.
func printFilters() {
	fmt.Println("Available Filters:")
	for _, factory := range filter.GetRegistered() {
		f := factory()
		codes := strings.Join(f.ReturnCodes(), ", ")
		fmt.Printf("  %-30s - %s [codes: %s]\n", f.Name(), f.Description(), codes)
	}
}

// runScan imports the music library and exits.
func runScan(cfg *config.Config) error {
	st, err := store.Open(cfg.Library.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	res, err := importLibrary(cfg, st)
	if err != nil {
		return err
	}

	zlog.Info().Int("imported", res.Imported).Int("skipped", res.Skipped).Msg("library scan done")
	return nil
}

// run executes the main player loop. Using a separate function ensures
// defer statements are executed even when returning with an error.
func run(cfg *config.Config) error {
	st, err := store.Open(cfg.Library.DatabasePath)
	if err != nil {
		return err
	}
	defer st.Close()

	if _, err := importLibrary(cfg, st); err != nil {
		return err
	}

	songs, err := st.ListSongs(context.Background())
	if err != nil {
		return err
	}
	zlog.Info().Int("songs", len(songs)).Msg("library loaded")

	if cfg.Backend.Type != "mpv" {
		return errors.Newf("unknown backend type %q", cfg.Backend.Type)
	}
	var backendCfg mpv.Config
	if err := cfg.DecodeBackendSettings(&backendCfg); err != nil {
		return err
	}
	backend, err := mpv.New(backendCfg)
	if err != nil {
		return err
	}
	defer backend.Close()

	tracker := counter.New(st, cfg.CountThreshold())
	ctrl := playback.NewController(playback.Config{
		ScrubBackThreshold: cfg.ScrubBackThreshold(),
	}, backend, tracker)
	defer ctrl.Close()

	// One goroutine feeds backend signals into the state machine; events
	// are drained for the log.
	go func() {
		for sig := range backend.Signals() {
			ctrl.HandleSignal(sig)
		}
	}()
	go func() {
		for e := range ctrl.Events() {
			logEvent(e)
		}
	}()

	return commandLoop(ctrl, st, songs)
}

func importLibrary(cfg *config.Config, st *store.Store) (importer.Result, error) {
	records, err := scanner.Scan(cfg.Library.MusicRoot)
	if err != nil {
		return importer.Result{}, err
	}
	records = buildFilterChain(cfg).Apply(records)
	im := importer.New(st, importer.ParsePolicy(cfg.Library.OnDuplicate))
	return im.Import(context.Background(), records)
}

// buildFilterChain assembles the import filter chain from the config.
func buildFilterChain(cfg *config.Config) *filter.Chain {
	chain := filter.NewChain()

	if cfg.IsFilterEnabled("hidden_path_filter") {
		chain.Add(&filter.HiddenPathFilter{})
	}

	if cfg.IsFilterEnabled("duplicate_record_filter") {
		chain.Add(filter.NewDuplicateRecordFilter())
	}

	if cfg.IsFilterEnabled("duration_limit_filter") {
		f := filter.NewDurationLimitFilter()
		if err := f.ValidateConfig(cfg.FilterSettings("duration_limit_filter")); err != nil {
			zlog.Error().Msgf("failed to validate duration limit filter config: %v", err)
		} else {
			chain.Add(f)
		}
	}

	return chain
}

func logEvent(e playback.Event) {
	ev := zlog.Info().Str("event", e.Type.String()).Str("state", e.State.String())
	if e.Song != nil {
		ev = ev.Str("title", e.Song.Title).Str("artist", e.Song.Artist)
	}
	ev.Msg("playback")
}

// commandLoop reads transport commands from stdin until EOF, "quit", or
// an interrupt.
func commandLoop(ctrl *playback.Controller, st *store.Store, songs []song.Song) error {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		sc := bufio.NewScanner(os.Stdin)
		for sc.Scan() {
			lines <- sc.Text()
		}
		close(lines)
	}()

	fmt.Println("tonefold ready. commands: play [id], pause, next, prev, seek <sec>, shuffle, repeat, stop, status, songs, playlists, playlist <id>, mkplaylist <name>, setplaylist <id> [songID...], rmplaylist <id>, quit")
	for {
		select {
		case s := <-sigCh:
			zlog.Info().Msgf("received signal %v, shutting down", s)
			ctrl.Stop()
			return nil
		case line, ok := <-lines:
			if !ok {
				ctrl.Stop()
				return nil
			}
			fields := strings.Fields(line)
			if len(fields) == 0 {
				continue
			}
			arg := ""
			if len(fields) > 1 {
				arg = fields[1]
			}
			switch fields[0] {
			case "play":
				if arg == "" && ctrl.Snapshot().State != playback.StateIdle {
					ctrl.Play("", nil)
					continue
				}
				ctrl.Play(arg, songs)
			case "pause":
				ctrl.Pause()
			case "next":
				ctrl.Next()
			case "prev":
				ctrl.Prev()
			case "seek":
				secs, err := strconv.ParseFloat(arg, 64)
				if err != nil {
					fmt.Println("usage: seek <seconds>")
					continue
				}
				ctrl.Seek(time.Duration(secs * float64(time.Second)))
			case "shuffle":
				ctrl.ToggleShuffle()
				fmt.Printf("shuffle: %s\n", ctrl.Shuffle())
			case "repeat":
				ctrl.ToggleRepeat()
				fmt.Printf("repeat: %s\n", ctrl.Repeat())
			case "stop":
				ctrl.Stop()
			case "status":
				printStatus(ctrl.Snapshot())
			case "songs":
				for _, s := range songs {
					fmt.Printf("%s  %s - %s (%s)\n", s.ID, s.Artist, s.Title, s.Album)
				}
			case "playlists":
				playlists, err := st.ListPlaylists(context.Background())
				if err != nil {
					fmt.Printf("playlists: %v\n", err)
					continue
				}
				for _, p := range playlists {
					fmt.Printf("%d  %s (%d songs)\n", p.ID, p.Name, len(p.SongIDs))
				}
			case "playlist":
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					fmt.Println("usage: playlist <id>")
					continue
				}
				if err := playPlaylist(ctrl, st, songs, id); err != nil {
					fmt.Printf("playlist: %v\n", err)
				}
			case "mkplaylist":
				if arg == "" {
					fmt.Println("usage: mkplaylist <name>")
					continue
				}
				id, err := st.CreatePlaylist(context.Background(), strings.Join(fields[1:], " "))
				if err != nil {
					fmt.Printf("mkplaylist: %v\n", err)
					continue
				}
				fmt.Printf("created playlist %d\n", id)
			case "setplaylist":
				if len(fields) < 2 {
					fmt.Println("usage: setplaylist <id> [songID...]")
					continue
				}
				id, err := strconv.ParseInt(fields[1], 10, 64)
				if err != nil {
					fmt.Println("usage: setplaylist <id> [songID...]")
					continue
				}
				if err := st.SetPlaylistSongs(context.Background(), id, fields[2:]); err != nil {
					fmt.Printf("setplaylist: %v\n", err)
				}
			case "rmplaylist":
				id, err := strconv.ParseInt(arg, 10, 64)
				if err != nil {
					fmt.Println("usage: rmplaylist <id>")
					continue
				}
				if err := st.DeletePlaylist(context.Background(), id); err != nil {
					fmt.Printf("rmplaylist: %v\n", err)
				}
			case "quit", "exit":
				ctrl.Stop()
				return nil
			default:
				fmt.Printf("unknown command %q\n", fields[0])
			}
		}
	}
}

// playPlaylist materializes a playlist against the library and hands it
// to the controller as the queue source. Dangling entries are dropped.
func playPlaylist(ctrl *playback.Controller, st *store.Store, songs []song.Song, id int64) error {
	playlists, err := st.ListPlaylists(context.Background())
	if err != nil {
		return err
	}
	for _, p := range playlists {
		if p.ID != id {
			continue
		}
		byID := make(map[string]song.Song, len(songs))
		for _, s := range songs {
			byID[s.ID] = s
		}
		materialized := p.Materialize(byID)
		if len(materialized) == 0 {
			return errors.Newf("playlist %q has no playable songs", p.Name)
		}
		ctrl.Play("", materialized)
		return nil
	}
	return store.ErrPlaylistNotFound
}

func printStatus(snap playback.Snapshot) {
	fmt.Printf("state=%s shuffle=%s repeat=%s queue=%d\n",
		snap.State, snap.Shuffle, snap.Repeat, len(snap.Queue))
	if cur := snap.Current(); cur != nil {
		fmt.Printf("now: %s - %s (%s) at %s\n",
			cur.Artist, cur.Title, cur.Album, snap.Position.Round(time.Second))
	}
}
