// OttoRead reads recipes aloud and takes voice commands between parts.
//
// Usage:
//
//	ottoread [-verbose] [-quiet] [-voice] [-api URL] [-recipe ID]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	stdlog "log"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/hammamikhairi/ottoread/internal/conversation"
	"github.com/hammamikhairi/ottoread/internal/display"
	"github.com/hammamikhairi/ottoread/internal/domain"
	"github.com/hammamikhairi/ottoread/internal/engine"
	"github.com/hammamikhairi/ottoread/internal/logger"
	"github.com/hammamikhairi/ottoread/internal/metrics"
	"github.com/hammamikhairi/ottoread/internal/recipe"
	"github.com/hammamikhairi/ottoread/internal/speech"
	"github.com/hammamikhairi/ottoread/internal/storage"
)

// EnvRecipeAPI names the env var holding the recipe provider base URL.
const EnvRecipeAPI = "OTTO_RECIPE_API"

func main() {
	_ = godotenv.Load()

	verbose := flag.Bool("verbose", false, "enable verbose/debug logging")
	quiet := flag.Bool("quiet", false, "disable all logging")
	logFile := flag.String("log-file", ".otto-logs/ottoread.log", "file to write logs to (use \"stderr\" to log to console)")
	noSpeech := flag.Bool("no-speech", false, "print narration instead of speaking it, even if Azure keys are set")
	diskCache := flag.Bool("disk-cache", true, "persist TTS audio cache to disk (reads from disk even when false)")
	cacheDir := flag.String("cache-dir", ".otto-cache", "directory for persistent TTS audio cache")
	voiceInput := flag.Bool("voice", false, "enable voice commands via local Whisper STT")
	whisperBin := flag.String("whisper-bin", "whisper-cli", "path to the whisper-cpp CLI binary")
	whisperModel := flag.String("whisper-model", "bin/ggml-small.bin", "path to the Whisper GGML model file")
	recordSecs := flag.Int("record-secs", 2, "seconds per voice recording chunk")
	silenceChunks := flag.Int("silence-chunks", 4, "silent chunks before listening restarts")
	api := flag.String("api", os.Getenv(EnvRecipeAPI), "recipe provider base URL (default: built-in recipes)")
	recipeID := flag.String("recipe", "", "recipe to load at startup")
	metricsAddr := flag.String("metrics-addr", "", "serve Prometheus metrics on this address, e.g. :9090")
	voicePoll := flag.Duration("voice-poll", 5*time.Minute, "how often to refresh the voice list")
	flag.Parse()

	// Configure logger.
	logLevel := logger.LevelNormal
	if *verbose {
		logLevel = logger.LevelVerbose
	}
	if *quiet {
		logLevel = logger.LevelOff
	}

	// Direct logs to a file by default so the prompt stays clean.
	var logOut io.Writer = os.Stderr
	if *logFile != "" && *logFile != "stderr" {
		dir := filepath.Dir(*logFile)
		if dir != "" && dir != "." {
			os.MkdirAll(dir, 0o755)
		}
		f, err := os.OpenFile(*logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "warning: could not open log file %s: %v (falling back to stderr)\n", *logFile, err)
		} else {
			logOut = f
			defer f.Close()
		}
	}

	// Redirect Go's default log package (used by third-party libs like
	// the whisper transcriber) to the same output so it doesn't spam
	// the terminal.
	stdlog.SetOutput(logOut)
	stdlog.SetFlags(stdlog.Ltime)

	log := logger.New(logLevel, logOut)

	// Set up context, cancelled when the UI quits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	queue := engine.NewQueue(engine.DefaultQueueSize)
	m := metrics.New()

	// Recipe source: remote provider behind a local cache, or the
	// built-in set.
	var (
		recipes    domain.RecipeSource
		invalidate func(ctx context.Context, id string) error
	)
	if *api != "" {
		remote := recipe.NewHTTPSource(*api, log.Named("recipes"))
		cached := recipe.NewCachedSource(remote, storage.NewMemoryStore(log.Named("store")), log.Named("recipes"))
		recipes, invalidate = cached, cached.Invalidate
		log.Info("recipes from %s", *api)
	} else {
		recipes = recipe.NewMemorySource(log.Named("recipes"))
	}

	var eng *engine.Engine
	ui := display.NewUI(func() domain.Status {
		if eng == nil {
			return domain.Status{}
		}
		return eng.Status()
	})
	notifier := conversation.NewCLINotifier(log, ui.PrintChat, ui.PrintUrgent)

	// Speech output: Azure TTS through the speaker, or printed text.
	var (
		synth  domain.Synthesizer
		lister domain.VoiceLister
	)
	azureKey := os.Getenv(speech.EnvAzureSpeechKey)
	azureRegion := os.Getenv(speech.EnvAzureSpeechRegion)

	if azureKey != "" && azureRegion != "" && !*noSpeech {
		ttsClient := speech.NewAzureClient(azureKey, azureRegion, log.Named("azure"))

		speaker, err := speech.NewSpeaker(log.Named("speaker"))
		if err != nil {
			log.Error("audio output init failed, speech disabled: %v", err)
		} else {
			mouth := speech.NewMouth(ttsClient, speaker, queue, log.Named("mouth"),
				speech.WithCacheDir(*cacheDir),
				speech.WithDiskWrite(*diskCache),
			)
			mouth.Start(ctx)
			synth = mouth
			lister = ttsClient
			log.Info("TTS enabled (voice=%s, region=%s)", ttsClient.Voice(), azureRegion)
		}
	} else if !*noSpeech {
		log.Info("TTS disabled: set %s and %s env vars to enable", speech.EnvAzureSpeechKey, speech.EnvAzureSpeechRegion)
	}
	if synth == nil {
		tm := speech.NewTextMouth(nil, queue, log.Named("text"))
		tm.Start(ctx)
		synth = tm
	}

	// Speech input: whisper chunks through the Ear. Without it the engine
	// runs in speech-output-only mode.
	var (
		recognition domain.RecognitionCapability
		engOpts     []engine.Option
	)
	if *voiceInput {
		if _, err := os.Stat(*whisperModel); err != nil {
			fmt.Fprintf(os.Stderr, "error: whisper model not found at %s\n", *whisperModel)
			os.Exit(1)
		}
		os.MkdirAll(".otto-stt", 0o755)
		transcriber := speech.NewWhisperTranscriber(*whisperBin, *whisperModel, ".otto-stt", log.Named("whisper"))
		recognition = speech.NewEar(transcriber, echoPhrases(queue, ui), log.Named("ear"),
			speech.WithRecordDuration(time.Duration(*recordSecs)*time.Second),
			speech.WithSilenceChunks(*silenceChunks),
		)
		engOpts = append(engOpts, engine.WithMicrophone(speech.NewMicrophone(log.Named("mic"))))
		log.Info("voice input enabled (bin=%s, model=%s, chunk=%ds)", *whisperBin, *whisperModel, *recordSecs)
	}

	engOpts = append(engOpts,
		engine.WithNotifier(notifier),
		engine.WithMetrics(m),
	)
	eng = engine.New(queue, recipes, &echoSynth{next: synth, ui: ui}, recognition, log.Named("engine"), engOpts...)

	if lister != nil {
		watcher := speech.NewVoiceWatcher(lister, queue, log.Named("voices"), speech.WithPollInterval(*voicePoll))
		go watcher.Run(ctx)
	}

	if *metricsAddr != "" {
		go serveMetrics(ctx, *metricsAddr, m, log)
	}

	go func() {
		if err := eng.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("engine: %v", err)
		}
	}()

	app := &cliApp{
		engine:     eng,
		log:        log,
		ui:         ui,
		voiceOn:    recognition != nil,
		preload:    *recipeID,
		invalidate: invalidate,
	}

	fmt.Println(display.RenderBanner())
	if recognition != nil {
		fmt.Println(display.BannerStyle.Render("  Voice mode ON: say play, continue, repeat, start over or stop."))
	}
	fmt.Println(display.BannerStyle.Render("  Type 'help' for commands, 'quit' to exit."))
	fmt.Println()

	// Run app logic in a background goroutine.
	go func() {
		ui.WaitReady()
		app.run(ctx)
		ui.Quit()
	}()

	// Bubble Tea owns the terminal and blocks until quit.
	if err := ui.Run(); err != nil {
		log.Error("display: %v", err)
	}
	cancel()
	eng.Close()
}

// serveMetrics exposes the Prometheus registry until ctx is cancelled.
func serveMetrics(ctx context.Context, addr string, m *metrics.Metrics, log *logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Info("metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("metrics server: %v", err)
	}
}

// echoPhrases forwards recognition events to the engine queue and shows
// every final phrase in the scrollback.
func echoPhrases(next domain.Emitter, ui *display.UI) domain.Emitter {
	return domain.EmitterFunc(func(ev domain.Event) {
		if p, ok := ev.(domain.PhraseRecognized); ok && p.Final {
			ui.PrintVoice(p.Text)
		}
		next.Emit(ev)
	})
}

// echoSynth prints each utterance as it is handed to the synthesizer.
type echoSynth struct {
	next domain.Synthesizer
	ui   *display.UI
}

func (s *echoSynth) Speak(u domain.Utterance) {
	switch u.Kind {
	case domain.UtteranceSegment:
		s.ui.PrintNarration(u.Text)
	case domain.UtterancePrompt:
		s.ui.PrintHint(u.Text)
	default:
		s.ui.PrintChat(u.Text)
	}
	s.next.Speak(u)
}

func (s *echoSynth) CancelAll() { s.next.CancelAll() }

func (s *echoSynth) Prefetch(ctx context.Context, voiceID string, rate float64, texts ...string) {
	if p, ok := s.next.(domain.Prefetcher); ok {
		p.Prefetch(ctx, voiceID, rate, texts...)
	}
}

// ── CLI app ──────────────────────────────────────────────────────

type cliApp struct {
	engine  *engine.Engine
	log     *logger.Logger
	ui      *display.UI
	voiceOn bool   // false when voice commands are unavailable
	preload string // recipe to load before the first prompt

	// invalidate drops a cached recipe; nil for the built-in set.
	invalidate func(ctx context.Context, id string) error
}

// voicePresets maps the typed region names to voice locales.
var voicePresets = map[string]string{
	"uk": "en-GB",
	"us": "en-US",
	"au": "en-AU",
}

func (a *cliApp) run(ctx context.Context) {
	a.ui.PrintChat(speech.LineWelcome())
	if !a.voiceOn {
		a.ui.PrintHint(speech.LineVoiceDisabled())
	}
	a.showRecipes(ctx)
	if a.preload != "" {
		a.load(ctx, a.preload)
	}

	uiCh := a.ui.InputChan()
	for {
		select {
		case <-ctx.Done():
			return
		case input, ok := <-uiCh:
			if !ok {
				return
			}
			if !a.handle(ctx, strings.TrimSpace(input)) {
				a.ui.PrintChat(speech.LineBye())
				return
			}
		}
	}
}

// handle runs one typed line. It returns false when the user quits.
func (a *cliApp) handle(ctx context.Context, input string) bool {
	if input == "" {
		return true
	}
	fields := strings.Fields(strings.ToLower(input))

	switch fields[0] {
	case "quit", "exit", "q":
		return false
	case "help", "h", "?":
		a.ui.PrintHint(speech.LineHelp())
	case "+", "faster":
		a.changeRate(ctx, a.engine.IncreaseRate)
	case "-", "slower":
		a.changeRate(ctx, a.engine.DecreaseRate)
	case "recipes", "list":
		a.showRecipes(ctx)
	case "voices":
		st := a.engine.Status()
		a.ui.PrintHint(speech.LineVoiceList(st.Voices, st.Voice))
	case "load":
		if len(fields) < 2 {
			a.ui.PrintHint("Usage: load <recipe id>")
			return true
		}
		a.load(ctx, fields[1])
	case "reload":
		if len(fields) < 2 {
			a.ui.PrintHint("Usage: reload <recipe id>")
			return true
		}
		if a.invalidate != nil {
			if err := a.invalidate(ctx, fields[1]); err != nil {
				a.log.Warn("reload %s: %v", fields[1], err)
			}
		}
		a.load(ctx, fields[1])
	case "voice":
		a.selectVoice(ctx, fields[1:])
	default:
		cmd, err := a.engine.HandleInput(ctx, input)
		if err != nil {
			a.log.Error("input: %v", err)
			return true
		}
		if cmd == domain.CommandNone {
			a.ui.PrintHint(speech.LineUnknown(input))
		}
	}
	return true
}

func (a *cliApp) changeRate(ctx context.Context, fn func(context.Context) (float64, error)) {
	rate, err := fn(ctx)
	if err != nil {
		a.log.Error("rate: %v", err)
		return
	}
	a.ui.PrintHint(speech.LineRate(rate))
}

func (a *cliApp) selectVoice(ctx context.Context, args []string) {
	if len(args) != 2 {
		a.ui.PrintHint("Usage: voice <uk|us|au> <male|female>")
		return
	}
	locale, ok := voicePresets[args[0]]
	if !ok || (args[1] != "male" && args[1] != "female") {
		a.ui.PrintHint("Usage: voice <uk|us|au> <male|female>")
		return
	}

	v, ok := a.engine.SelectVoice(ctx, locale, args[1])
	if !ok {
		a.ui.PrintHint(speech.LineNoVoice(locale, args[1]))
		return
	}
	a.ui.PrintHint(speech.LineVoiceSelected(v))
}

func (a *cliApp) load(ctx context.Context, id string) {
	if err := a.engine.LoadRecipe(ctx, id); err != nil {
		a.log.Warn("load %s: %v", id, err)
		if errors.Is(err, domain.ErrNotFound) {
			err = domain.ErrNotFound
		}
		a.ui.PrintUrgent(speech.LineRecipeFailed(id, err))
		return
	}
	st := a.engine.Status()
	a.ui.PrintChat(speech.LineRecipeLoaded(st.RecipeName, st.Total))
}

func (a *cliApp) showRecipes(ctx context.Context) {
	list, err := a.engine.ListRecipes(ctx)
	if err != nil {
		a.ui.PrintUrgent(fmt.Sprintf("Could not list recipes: %v", err))
		return
	}
	a.ui.PrintHint(speech.LineRecipeList(list))
}
