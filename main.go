// Command stairguard runs the depth-based terrain classifier for the
// CarryBot platform: a sampling loop over the depth sensor, a temporal
// smoother, and an HTTP API for tuning detection parameters while the robot
// is moving. Parameter changes arrive from the CLI, the config document and
// the network, and are merged through one race-free store.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/carrybot-robotics/stairguard/internal/depth"
	"github.com/carrybot-robotics/stairguard/internal/drivelink"
	"github.com/carrybot-robotics/stairguard/internal/eventdb"
	"github.com/carrybot-robotics/stairguard/internal/monitor"
	"github.com/carrybot-robotics/stairguard/internal/monitoring"
	"github.com/carrybot-robotics/stairguard/internal/params"
	"github.com/carrybot-robotics/stairguard/internal/render"
	"github.com/carrybot-robotics/stairguard/internal/sampling"
	"github.com/carrybot-robotics/stairguard/internal/sensor"
	"github.com/carrybot-robotics/stairguard/internal/version"
)

var (
	listen      = flag.String("listen", ":8000", "HTTP listen address")
	configPath  = flag.String("config", "config.json", "Path to the durable parameter document")
	auditPath   = flag.String("audit-log", "param_changes.log", "Path to the append-only audit log")
	dbPath      = flag.String("db", "stairguard.db", "Path to the event database (empty to disable)")
	scene       = flag.String("scene", sensor.SceneCorridor, "Synthetic scene when no hardware driver is wired (clear|wall|stairs_up|void|corridor)")
	seed        = flag.Int64("seed", 1, "Synthetic source RNG seed")
	drivePort   = flag.String("drive-port", "", "Serial device for drive controller announcements (empty to disable)")
	driveBaud   = flag.Int("drive-baud", 0, "Drive link baud rate (0 = default)")
	serverOnly  = flag.Bool("server-only", false, "Run the parameter API and file watcher without the sensor")
	headless    = flag.Bool("headless", false, "Run one classification cycle, save a debug image, then exit")
	headlessOut = flag.String("headless-out", "depth_frame.png", "Artifact path for -headless")
)

// setFlags collects repeated -set name=value overrides, the highest layer of
// the startup precedence.
type setFlags struct {
	values params.Set
}

func (s *setFlags) String() string { return "" }

func (s *setFlags) Set(arg string) error {
	name, value, ok := strings.Cut(arg, "=")
	if !ok {
		return fmt.Errorf("expected name=value, got %q", arg)
	}
	v, err := params.ParseOverride(name, value)
	if err != nil {
		return err
	}
	if s.values == nil {
		s.values = params.Set{}
	}
	s.values[name] = v
	return nil
}

func main() {
	var overrides setFlags
	flag.Var(&overrides, "set", "Override a parameter at startup, e.g. -set wall_dist_th=0.6 (repeatable)")
	flag.Parse()

	log.Printf("stairguard %s", version.String())
	if err := run(overrides.values); err != nil {
		log.Fatalf("stairguard: %v", err)
	}
}

func run(cliOverrides params.Set) error {
	// A .env beside the binary is a convenience for bench setups; absence is
	// fine.
	if err := godotenv.Load(); err == nil {
		log.Printf("loaded environment overrides from .env")
	}

	files := params.NewFileStore(*configPath)
	fileSet, err := files.Load()
	if err != nil {
		// Unreadable document: start from defaults, the write-through will
		// replace it on the first accepted update.
		monitoring.Logf("config document unreadable, continuing with defaults: %v", err)
		fileSet = params.Set{}
	}
	envSet, skipped := params.FromEnv()
	for _, name := range skipped {
		monitoring.Logf("ignoring invalid environment override %s", name)
	}

	// Precedence: defaults < document < environment < CLI.
	store := params.NewStore(fileSet, envSet, cliOverrides)

	audit, err := params.OpenAuditLog(*auditPath)
	if err != nil {
		return err
	}
	defer audit.Close()
	store.Observe(func(changes []params.Change) {
		if err := audit.Append(changes); err != nil {
			monitoring.Logf("audit append failed: %v", err)
		}
	})

	var db *eventdb.DB
	if *dbPath != "" {
		db, err = eventdb.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("open event database: %w", err)
		}
		defer db.Close()
		store.Observe(func(changes []params.Change) {
			if err := db.RecordParamChanges(changes); err != nil {
				monitoring.Logf("event db audit mirror failed: %v", err)
			}
		})
	}

	store.Observe(files.WriteThrough(store))

	publisher := sampling.NewPublisher()
	web := monitor.NewWebServer(monitor.WebServerConfig{
		Address:   *listen,
		Store:     store,
		Publisher: publisher,
		DB:        db,
	})
	publisher.Subscribe(web.Hub().Notify)

	var link drivelink.Announcer = drivelink.Disabled{}
	if *drivePort != "" && !*serverOnly && !*headless {
		l, err := drivelink.Open(*drivePort, *driveBaud)
		if err != nil {
			return fmt.Errorf("drive link: %w", err)
		}
		link = l
	}
	defer link.Close()

	// Stable-label transitions feed the event database and the drive
	// controller. The subscription runs on the sampling goroutine, so the
	// closure needs no lock.
	announce := drivelink.Notify(link)
	lastStable := depth.LabelUnknown
	publisher.Subscribe(func(pub sampling.Published) {
		if pub.StableLabel == lastStable {
			return
		}
		if db != nil {
			if err := db.RecordTransition(lastStable, pub.StableLabel, pub.Result, pub.Cycle, pub.Timestamp); err != nil {
				monitoring.Logf("record transition failed: %v", err)
			}
		}
		announce(pub.StableLabel)
		lastStable = pub.StableLabel
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *headless {
		return runHeadless(ctx, store, files, publisher)
	}
	if *serverOnly {
		return runServerOnly(ctx, store, files, web)
	}
	return runInteractive(ctx, stop, store, files, publisher, web)
}

// runInteractive is the normal mode: sampling loop plus HTTP server, with
// config document polling folded into the loop's cycle.
func runInteractive(ctx context.Context, stop context.CancelFunc, store *params.Store, files *params.FileStore, publisher *sampling.Publisher, web *monitor.WebServer) error {
	source, err := newSource()
	if err != nil {
		return err
	}
	defer source.Close()

	loop, err := sampling.NewLoop(sampling.Config{
		Source:    source,
		Store:     store,
		Files:     files,
		Publisher: publisher,
	})
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	var loopErr, srvErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := loop.Run(ctx); err != nil {
			loopErr = err
			log.Printf("sampling loop stopped: %v", err)
			// Sensor loss is fatal for the whole process; bring the server
			// down too.
			stop()
		}
		log.Print("sampling routine terminated")
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := web.Start(ctx); err != nil {
			srvErr = err
			stop()
		}
	}()

	wg.Wait()
	if loopErr != nil {
		return loopErr
	}
	if srvErr != nil {
		return srvErr
	}
	log.Printf("Graceful shutdown complete")
	return nil
}

// runServerOnly serves the parameter API and polls the config document on a
// low-frequency timer, for tuning without hardware attached.
func runServerOnly(ctx context.Context, store *params.Store, files *params.FileStore, web *monitor.WebServer) error {
	var wg sync.WaitGroup
	var srvErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				edited, err := files.PollExternalChange()
				if err != nil {
					monitoring.Logf("config poll failed: %v", err)
					continue
				}
				if edited != nil {
					res := store.UpdateValues(edited, params.SourceFile)
					monitoring.Logf("external config edit merged: %d applied, %d rejected",
						len(res.Applied), len(res.Rejected))
				}
			}
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		srvErr = web.Start(ctx)
	}()

	wg.Wait()
	return srvErr
}

// runHeadless exercises one acquisition and classification cycle, writes a
// heat-map artifact for offline inspection, then exits.
func runHeadless(ctx context.Context, store *params.Store, files *params.FileStore, publisher *sampling.Publisher) error {
	source, err := newSource()
	if err != nil {
		return err
	}
	defer source.Close()

	loop, err := sampling.NewLoop(sampling.Config{
		Source:    source,
		Store:     store,
		Files:     files,
		Publisher: publisher,
	})
	if err != nil {
		return err
	}
	if err := loop.Cycle(ctx); err != nil {
		return fmt.Errorf("headless cycle: %w", err)
	}

	pub := publisher.Latest()
	if err := render.SaveHeatmap(pub.Frame, pub.Result, *headlessOut); err != nil {
		return err
	}
	log.Printf("saved %s (label=%s stable=%s)", *headlessOut, pub.Result.Label, pub.StableLabel)
	return nil
}

// newSource returns the frame source. The hardware driver is an external
// collaborator; this binary ships with the synthetic source for bench work.
func newSource() (sensor.FrameSource, error) {
	return sensor.NewSynthetic(*scene, *seed)
}
