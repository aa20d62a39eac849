package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/ayusman/glance/internal/app"
	"github.com/ayusman/glance/internal/capture"
	"github.com/ayusman/glance/internal/config"
	"github.com/ayusman/glance/internal/detector"
	"github.com/ayusman/glance/internal/framestore"
	"github.com/ayusman/glance/internal/logger"
	"github.com/ayusman/glance/internal/reasoning"
	"github.com/ayusman/glance/internal/server"
	"github.com/ayusman/glance/internal/store"
	"github.com/ayusman/glance/internal/tracing"
)

type options struct {
	video    string
	question string
	serve    bool
	webDir   string
}

func main() {
	var opts options
	flag.StringVar(&opts.video, "video", "", "video file, stream URL or camera index to analyse")
	flag.StringVar(&opts.question, "question", "", "question about the video")
	flag.BoolVar(&opts.serve, "serve", false, "serve follow-up questions over HTTP")
	flag.StringVar(&opts.webDir, "web", "", "directory of static files to serve")
	flag.Parse()

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		flag.Usage()
		os.Exit(2)
	}

	if err := run(opts); err != nil {
		fmt.Fprintf(os.Stderr, "glance: %v\n", err)
		os.Exit(1)
	}
}

func (o options) validate() error {
	if o.video == "" && !o.serve {
		return errors.New("either -video or -serve is required")
	}
	if o.video != "" && o.question == "" {
		return errors.New("-question is required with -video")
	}
	return nil
}

func run(opts options) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.OTLPEndpoint != "" {
		tp, err := tracing.Init(ctx, cfg.OTLPEndpoint)
		if err != nil {
			return fmt.Errorf("init tracing: %w", err)
		}
		defer tp.Shutdown(context.Background())
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return fmt.Errorf("create data directory: %w", err)
	}
	st, err := store.New(cfg.DatabasePath())
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	frames, err := newFrameStore(ctx, cfg, st)
	if err != nil {
		return err
	}

	det, err := newDetector(cfg)
	if err != nil {
		return err
	}

	reasoner, err := reasoning.NewOpenAIClient(reasoning.Config{
		APIKey:          cfg.OpenAIKey,
		BaseURL:         cfg.OpenAIBaseURL,
		Model:           cfg.OpenAIModel,
		VisionModel:     cfg.OpenAIVisionModel,
		Temperature:     cfg.OpenAITemperature,
		MaxTokens:       cfg.OpenAIMaxTokens,
		VisionMaxTokens: cfg.OpenAIVisionMaxTokens,
	}, log)
	if err != nil {
		det.Close()
		return fmt.Errorf("create reasoning client: %w", err)
	}

	events := server.NewEventsHandler(log)
	a := app.New(app.Config{
		TargetFPS:     cfg.TargetFPS,
		UploadWorkers: cfg.UploadWorkers,
		UploadQueue:   cfg.UploadQueue,
		MaxFrames:     cfg.MaxFrames,
	}, det, frames, reasoner,
		app.WithLogger(log),
		app.WithRecorder(st.Runs()),
		app.WithEvents(events),
	)
	defer a.Close()

	log.Info("glance started",
		zap.String("detector", cfg.DetectorBackend),
		zap.String("storage", cfg.StorageBackend))

	if opts.video != "" {
		res, err := a.Run(ctx, opts.question, capture.NewSource(opts.video))
		if err != nil {
			return err
		}
		fmt.Println(res.Answer)
		if len(res.SelectedFrameIDs) > 0 {
			fmt.Printf("frames: %v\n", res.SelectedFrameIDs)
		}
	}

	if !opts.serve {
		return nil
	}

	srv := server.New(server.Config{
		StaticDir: findWebDir(opts.webDir),
		App:       a,
		Store:     st,
		Events:    events,
		Logger:    log,
	})
	return srv.ListenAndServe(ctx, cfg.HTTPAddr)
}

func newFrameStore(ctx context.Context, cfg *config.Config, st *store.Store) (framestore.FrameStore, error) {
	switch cfg.StorageBackend {
	case config.StorageS3:
		s3, err := framestore.NewS3Store(framestore.S3Config{
			Endpoint:  cfg.MinIOEndpoint,
			AccessKey: cfg.MinIOAccessKey,
			SecretKey: cfg.MinIOSecretKey,
			UseSSL:    cfg.MinIOUseSSL,
			Bucket:    cfg.MinIOBucket,
		})
		if err != nil {
			return nil, fmt.Errorf("create s3 frame store: %w", err)
		}
		if err := s3.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("ensure bucket: %w", err)
		}
		return s3, nil
	case config.StorageMemory:
		return framestore.NewMemoryStore(), nil
	default:
		return st.Frames(), nil
	}
}

func newDetector(cfg *config.Config) (detector.Detector, error) {
	if cfg.DetectorBackend == config.DetectorSubprocess {
		d, err := detector.NewSubprocessDetector(cfg.DetectorCommand, detector.DefaultIdleTimeout)
		if err != nil {
			return nil, fmt.Errorf("create subprocess detector: %w", err)
		}
		return d, nil
	}

	d, err := detector.NewYOLODetector(cfg.YOLOWeights, cfg.YOLOConfig, detector.Config{
		ConfThreshold: cfg.ConfThreshold,
		NMSThreshold:  cfg.NMSThreshold,
		InputSize:     detector.DefaultConfig().InputSize,
	})
	if err != nil {
		return nil, fmt.Errorf("create yolo detector: %w", err)
	}
	return d, nil
}

// findWebDir returns dir when set, otherwise the first existing "web"
// directory relative to the working directory, or "".
func findWebDir(dir string) string {
	if dir != "" {
		return dir
	}
	for _, p := range []string{"web", "../web"} {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			if abs, err := filepath.Abs(p); err == nil {
				return abs
			}
			return p
		}
	}
	return ""
}
