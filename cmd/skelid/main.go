package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/ayusman/skelid/internal/app"
	"github.com/ayusman/skelid/internal/config"
	"github.com/ayusman/skelid/internal/hook"
	"github.com/ayusman/skelid/internal/monitoring"
	"github.com/ayusman/skelid/internal/presence"
	"github.com/ayusman/skelid/internal/render"
	"github.com/ayusman/skelid/internal/responder"
	"github.com/ayusman/skelid/internal/sensor"
	"github.com/ayusman/skelid/internal/server"
	"github.com/ayusman/skelid/internal/session"
	"github.com/ayusman/skelid/internal/store"
	"github.com/ayusman/skelid/internal/tray"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML, JSON or TOML config file")
	flag.Parse()

	fmt.Println("Skelid - Skeleton Identification")

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	monitoring.SetLogger(log.Printf)

	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	st, err := store.New(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	tracker := presence.NewTracker()
	if client := presence.ConnectRedis(cfg.RedisAddr, cfg.RedisPassword); client != nil {
		defer client.Close()
		mirror := presence.NewRedisMirror(client, cfg.RedisKey)
		mirror.Attach(tracker)
		defer mirror.Wait()
		fmt.Printf("Mirroring presence to redis %s (key %s)\n", cfg.RedisAddr, cfg.RedisKey)
	}

	hooks := hook.NewManager(cfg.HookDir)
	if err := hooks.Discover(); err != nil {
		log.Printf("hook discovery failed: %v", err)
	}
	executor := hook.NewExecutor(cfg.HookTimeout())
	dispatcher := hook.NewDispatcher(hooks, executor)
	tracker.OnChange(dispatcher.Identified)

	sessionCfg, err := cfg.SessionConfig()
	if err != nil {
		log.Fatalf("Invalid session config: %v", err)
	}
	matcher, err := cfg.Matcher()
	if err != nil {
		log.Fatalf("Invalid matcher config: %v", err)
	}

	machine := session.New(sessionCfg, st.Templates(), session.NewConsolePrompter(os.Stdin, os.Stdout), tracker, matcher)
	machine.SetSampleRecorder(st.Samples())
	machine.OnEnrolled(dispatcher.Enrolled)

	src, err := sensor.New(cfg.SourceConfig())
	if err != nil {
		log.Fatalf("Failed to create frame source: %v", err)
	}
	pipeline := app.New(app.Config{
		Source:    src,
		Processor: machine,
		Lossless:  strings.EqualFold(cfg.Source, "replay"),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := pipeline.Start(ctx); err != nil {
		log.Fatalf("Failed to start pipeline: %v", err)
	}
	fmt.Printf("Reading frames from %s source\n", cfg.Source)

	resp := responder.New(tracker)
	go func() {
		if err := resp.ListenAndServe(ctx, cfg.ResponderAddr); err != nil {
			log.Printf("responder stopped: %v", err)
		}
	}()
	fmt.Printf("Answering %q on %s\n", responder.Query, cfg.ResponderAddr)

	srvCfg := server.Config{
		StaticDir:    cfg.StaticDir,
		Store:        st,
		Presence:     tracker,
		Machine:      machine,
		Pipeline:     pipeline,
		Hooks:        hooks,
		HookExecutor: executor,
	}
	if cfg.Render {
		srvCfg.Encoder = render.New(cfg.RenderWidth, cfg.RenderHeight).JPEG
	}
	httpServer := &http.Server{Addr: cfg.HTTPAddr, Handler: server.New(srvCfg)}
	go func() {
		fmt.Printf("Starting server on %s\n", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Server failed: %v", err)
			stop()
		}
	}()

	go func() {
		select {
		case <-ctx.Done():
		case <-pipeline.Done():
			fmt.Println("Frame source finished; still answering queries")
		}
	}()

	if cfg.Tray {
		runTray(ctx, stop, pipeline, tracker, machine, dashboardURL(cfg.HTTPAddr))
	} else {
		<-ctx.Done()
	}

	fmt.Println("Shutting down")
	pipeline.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	resp.Close()
	dispatcher.Wait()
}

// runTray blocks on the system tray until it is quit or ctx ends.
func runTray(ctx context.Context, stop context.CancelFunc, pipeline *app.App, tracker *presence.Tracker, machine *session.Machine, url string) {
	t := tray.New()
	t.OnToggle(pipeline.SetEnabled)
	t.OnDashboard(func() {
		if err := openBrowser(url); err != nil {
			log.Printf("open dashboard: %v", err)
		}
	})
	t.OnQuit(stop)
	tracker.OnChange(func(c presence.Change) { t.SetPresent(c.Name) })

	go func() {
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				t.Quit()
				return
			case <-ticker.C:
				t.SetState(machine.State().String())
			}
		}
	}()

	t.Run()
}

func dashboardURL(addr string) string {
	if strings.HasPrefix(addr, ":") {
		addr = "localhost" + addr
	}
	return "http://" + addr + "/"
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
