// Voxbridge is a voice-assistant bridge daemon. It answers voice-platform
// skill requests with spoken replies generated by a language model and
// synthesized to published audio, and optionally runs the authenticated
// home-automation action proxy.
//
// Usage:
//
//	voxbridge [flags]
//	voxbridge --config /path/to/voxbridge.yaml
//
// @title       voxbridge API
// @version     1.0
// @description Voice-assistant bridge: skill endpoint, health probes and the action dispatch proxy.
// @BasePath    /
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"

	_ "github.com/nadzzz/voxbridge/docs"
	"github.com/nadzzz/voxbridge/internal/artifact"
	"github.com/nadzzz/voxbridge/internal/config"
	"github.com/nadzzz/voxbridge/internal/dispatch"
	"github.com/nadzzz/voxbridge/internal/health"
	"github.com/nadzzz/voxbridge/internal/memory"
	"github.com/nadzzz/voxbridge/internal/paramstore"
	openaireply "github.com/nadzzz/voxbridge/internal/reply/openai"
	"github.com/nadzzz/voxbridge/internal/skill"
	"github.com/nadzzz/voxbridge/internal/transcode"
	"github.com/nadzzz/voxbridge/internal/transport"
	grpctransport "github.com/nadzzz/voxbridge/internal/transport/grpc"
	httptransport "github.com/nadzzz/voxbridge/internal/transport/http"
	"github.com/nadzzz/voxbridge/internal/tts"
	"github.com/nadzzz/voxbridge/internal/tts/elevenlabs"
	"github.com/nadzzz/voxbridge/internal/tts/piper"
)

// version is set at build time via ldflags.
var version = "dev"

func main() {
	showVersion := flag.Bool("version", false, "print version and exit")
	configFile := flag.String("config", "", "path to config file (e.g. configs/voxbridge.yaml)")
	flag.Parse()

	if *showVersion {
		fmt.Printf("voxbridge %s\n", version)
		os.Exit(0)
	}

	// Create root context with signal handling for graceful shutdown.
	ctx, cancel := signal.NotifyContext(context.Background(),
		syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := loadConfig(ctx, *configFile)
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	config.SetupLogging(cfg.Logging)
	slog.Info("voxbridge starting", "version", version)

	checker := health.New()

	skillHandler, synth, err := buildSkill(cfg)
	if err != nil {
		slog.Error("failed to initialize skill pipeline", "error", err)
		os.Exit(1)
	}
	defer synth.Close()

	transports := []transport.Transport{
		httptransport.New(httptransport.Options{
			Port:         cfg.Server.Port,
			SkillPath:    cfg.Skill.Path,
			StaticDir:    skillHandler.staticDir,
			StaticPrefix: skillHandler.staticPrefix,
		}, skillHandler.handler, checker),
	}

	if cfg.Proxy.Enabled {
		proxy, err := dispatch.New(cfg.Proxy)
		if err != nil {
			slog.Error("failed to initialize action proxy", "error", err)
			os.Exit(1)
		}
		transports = append(transports, httptransport.NewProxy(cfg.Proxy.Port, proxy, checker))
		slog.Info("action proxy enabled", "port", cfg.Proxy.Port, "downstream", cfg.Proxy.DownstreamURL)
	}
	if cfg.Transports.GRPC.Enabled {
		transports = append(transports, grpctransport.New(cfg.Transports.GRPC.Port, checker))
	}

	// Start all transports. A failing listener takes the daemon down.
	var wg conc.WaitGroup
	for _, t := range transports {
		wg.Go(func() {
			slog.Info("starting transport", "name", t.Name())
			if err := t.Listen(ctx); err != nil {
				slog.Error("transport failed", "name", t.Name(), "error", err)
				cancel()
			}
		})
	}

	// Mark as ready once all transports are started.
	checker.SetReady(true)
	slog.Info("voxbridge ready",
		"transports", len(transports),
		"port", cfg.Server.Port,
		"tts", synth.Name())

	// Block until shutdown signal.
	<-ctx.Done()
	slog.Info("shutdown signal received, draining...")
	checker.Shutdown()

	// Close all transports gracefully.
	for _, t := range transports {
		if err := t.Close(); err != nil {
			slog.Error("transport close error", "name", t.Name(), "error", err)
		}
	}

	wg.Wait()
	slog.Info("voxbridge stopped")
}

// loadConfig reads, resolves and validates the configuration.
func loadConfig(ctx context.Context, file string) (*config.Config, error) {
	cfg, err := config.Load(file)
	if err != nil {
		return nil, err
	}
	if cfg.Secrets.SSM.Enabled && cfg.HasSecretRefs() {
		store, err := paramstore.NewFromEnvironment(ctx)
		if err != nil {
			return nil, err
		}
		if err := cfg.ResolveSecrets(ctx, store); err != nil {
			return nil, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

type skillSetup struct {
	handler      *skill.Handler
	staticDir    string
	staticPrefix string
}

// buildSkill wires the conversational pipeline.
func buildSkill(cfg *config.Config) (*skillSetup, tts.Synthesizer, error) {
	var synth tts.Synthesizer
	var err error
	switch cfg.TTS.Backend {
	case "elevenlabs":
		synth, err = elevenlabs.New(cfg.TTS.ElevenLabs)
		slog.Info("using ElevenLabs TTS", "voice", cfg.TTS.ElevenLabs.VoiceID, "model", cfg.TTS.ElevenLabs.ModelID)
	case "piper":
		synth, err = piper.New(cfg.TTS.Piper)
		slog.Info("using Piper TTS", "endpoint", cfg.TTS.Piper.Endpoint, "voice", cfg.TTS.Piper.Voice)
	default:
		err = fmt.Errorf("unknown tts backend %q", cfg.TTS.Backend)
	}
	if err != nil {
		return nil, nil, err
	}

	publisher, err := artifact.New(cfg.Artifacts, cfg.Server.PublicBaseURL)
	if err != nil {
		return nil, nil, err
	}

	generator := openaireply.New(cfg.LLM)
	slog.Info("using OpenAI-compatible reply generator", "model", cfg.LLM.Model, "base_url", cfg.LLM.BaseURL)

	h, err := skill.NewHandler(cfg.Skill, skill.Deps{
		Memory: memory.New(
			memory.WithMaxTurns(cfg.Memory.MaxTurns),
			memory.WithMaxAge(cfg.Memory.MaxAge),
		),
		Generator:   generator,
		Synthesizer: synth,
		Transcoder:  transcode.New(cfg.Transcode),
		Publisher:   publisher,
	})
	if err != nil {
		return nil, nil, err
	}

	return &skillSetup{
		handler:      h,
		staticDir:    publisher.Dir(),
		staticPrefix: publisher.Directory(),
	}, synth, nil
}
