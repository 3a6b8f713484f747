package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/g960059/exile-onboard/internal/api"
	"github.com/g960059/exile-onboard/internal/appclient"
	"github.com/g960059/exile-onboard/internal/config"
	"github.com/g960059/exile-onboard/internal/doctor"
	"github.com/g960059/exile-onboard/internal/metrics"
	"github.com/g960059/exile-onboard/internal/onboard"
	"github.com/g960059/exile-onboard/internal/render"
	"github.com/g960059/exile-onboard/internal/route"
	"github.com/g960059/exile-onboard/internal/tui"
)

type service interface {
	onboard.Service
	Health(ctx context.Context) (api.HealthResponse, error)
}

// runTUI is replaced in tests; the real program needs a terminal.
var runTUI = func(ctx context.Context, m tui.Model, out io.Writer) error {
	return tui.Run(ctx, m, os.Stdin, out)
}

const usageLine = "usage: onboard [--api-base <url>] [--request-timeout <duration>] [tui|characters|run|show|interest|doctor] ..."

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.Load(".env")
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	apiBase, timeout, rest, err := parseGlobalArgs(os.Args[1:], cfg.APIBase, cfg.RequestTimeout)
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(2)
	}
	cfg.APIBase = apiBase
	cfg.RequestTimeout = timeout

	client := appclient.New(cfg.APIBase).WithUnaryTimeout(cfg.RequestTimeout)
	os.Exit(run(ctx, rest, os.Stdout, os.Stderr, client, cfg))
}

func parseGlobalArgs(args []string, defaultBase string, defaultTimeout time.Duration) (string, time.Duration, []string, error) {
	base := defaultBase
	timeout := defaultTimeout
	i := 0
	for i < len(args) {
		name, value, hasValue := strings.Cut(args[i], "=")
		if name != "--api-base" && name != "--request-timeout" {
			break
		}
		step := 1
		if !hasValue {
			if i+1 >= len(args) {
				return "", 0, nil, fmt.Errorf("%s requires value", name)
			}
			value = args[i+1]
			step = 2
		}
		switch name {
		case "--api-base":
			if strings.TrimSpace(value) == "" {
				return "", 0, nil, fmt.Errorf("--api-base requires value")
			}
			base = strings.TrimSpace(value)
		case "--request-timeout":
			d, err := parseTimeout(value)
			if err != nil {
				return "", 0, nil, err
			}
			timeout = d
		}
		i += step
	}
	return base, timeout, args[i:], nil
}

func parseTimeout(raw string) (time.Duration, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return 0, fmt.Errorf("--request-timeout requires value")
	}
	timeout, err := time.ParseDuration(value)
	if err != nil || timeout < 0 {
		return 0, fmt.Errorf("--request-timeout must be a valid non-negative duration")
	}
	return timeout, nil
}

func run(ctx context.Context, args []string, out, errOut io.Writer, svc service, cfg config.Config) int {
	if out == nil {
		out = os.Stdout
	}
	if errOut == nil {
		errOut = os.Stderr
	}
	if len(args) == 0 || args[0] == "tui" || strings.HasPrefix(args[0], "-") {
		rest := args
		if len(rest) > 0 && rest[0] == "tui" {
			rest = rest[1:]
		}
		return runInteractive(ctx, rest, out, errOut, svc, cfg)
	}

	switch args[0] {
	case "characters":
		return runCharacters(ctx, args[1:], out, errOut, svc)
	case "run":
		return runCreate(ctx, args[1:], out, errOut, svc)
	case "show":
		return runShow(ctx, args[1:], out, errOut, svc)
	case "interest":
		return runInterest(ctx, args[1:], out, errOut, svc)
	case "doctor":
		return runDoctor(ctx, args[1:], out, errOut, svc, cfg)
	default:
		printUsage(errOut)
		return 2
	}
}

func runInteractive(ctx context.Context, args []string, out, errOut io.Writer, svc service, cfg config.Config) int {
	fs := flag.NewFlagSet("tui", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	location := fs.String("location", route.HomeFragment, "starting fragment, e.g. '#/results?run_id=7'")
	realm := fs.String("realm", api.RealmPC, "starting realm: pc|sony|xbox")
	exportDir := fs.String("export-dir", "", "directory for HTML snapshots (ctrl+e)")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintln(errOut, "usage: onboard tui [--location <fragment>] [--realm pc|sony|xbox] [--export-dir <dir>]")
		return 2
	}
	if !api.ValidRealm(*realm) {
		_, _ = fmt.Fprintf(errOut, "error: invalid realm %q\n", *realm)
		return 2
	}

	logger, closeLog, err := openLogger(cfg.LogFile)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	defer closeLog()

	reg := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(reg)

	g, gctx := errgroup.WithContext(ctx)
	uiCtx, stopUI := context.WithCancel(gctx)
	defer stopUI()

	var metricsSrv *http.Server
	if cfg.MetricsAddr != "" {
		metricsSrv = &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           metrics.Handler(reg),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			logger.Info("metrics listening", "addr", cfg.MetricsAddr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("serve metrics: %w", err)
			}
			return nil
		})
	}

	m := tui.New(svc, tui.Options{
		Controller: onboard.Options{
			Debounce:         cfg.LookupDebounce,
			MinAccountLength: cfg.MinAccountLength,
			Realm:            *realm,
			Location:         *location,
			Context:          uiCtx,
			Recorder:         recorder,
			Logger:           logger,
		},
		ExportDir: *exportDir,
	})
	g.Go(func() error {
		defer func() {
			if metricsSrv == nil {
				return
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			_ = metricsSrv.Shutdown(shutdownCtx)
		}()
		return runTUI(uiCtx, m, out)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, tea.ErrProgramKilled) {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}

func runCharacters(ctx context.Context, args []string, out, errOut io.Writer, svc service) int {
	fs := flag.NewFlagSet("characters", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	account := fs.String("account", "", "account name")
	realm := fs.String("realm", api.RealmPC, "realm: pc|sony|xbox")
	jsonOut := fs.Bool("json", false, "output JSON")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	if fs.NArg() > 0 || strings.TrimSpace(*account) == "" {
		_, _ = fmt.Fprintln(errOut, "usage: onboard characters --account <name> [--realm pc|sony|xbox] [--json]")
		return 2
	}
	env, err := svc.ListCharacters(ctx, strings.TrimSpace(*account), *realm)
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	if *jsonOut {
		return writeJSONResponse(out, errOut, env)
	}
	if len(env.Characters) == 0 {
		_, _ = fmt.Fprintln(out, onboard.MsgLookupNone)
		return 0
	}
	for _, c := range env.Characters {
		if _, err := fmt.Fprintln(out, render.Clean(render.OptionLabel(c))); err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			return 1
		}
	}
	return 0
}

func runCreate(ctx context.Context, args []string, out, errOut io.Writer, svc service) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	account := fs.String("account", "", "account name")
	realm := fs.String("realm", api.RealmPC, "realm: pc|sony|xbox")
	character := fs.String("character", "", "character name, newest when empty")
	contact := fs.String("contact", "", "contact for follow-up")
	intent := fs.String("intent", "", "trading intent")
	jsonOut := fs.Bool("json", false, "output JSON")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	if fs.NArg() > 0 || strings.TrimSpace(*account) == "" {
		_, _ = fmt.Fprintln(errOut, "usage: onboard run --account <name> [--realm pc|sony|xbox] [--character <name>] [--contact <c>] [--intent <i>] [--json]")
		return 2
	}

	if !api.ValidRealm(*realm) {
		_, _ = fmt.Fprintf(errOut, "error: invalid realm %q\n", *realm)
		return 2
	}

	var loaded api.RunResult
	capture := capturingService{Service: svc, onGet: func(r api.RunResult) { loaded = r }}
	m := onboard.Start(onboard.New(capture, onboard.Options{
		Realm:    *realm,
		Location: route.HomeFragment,
		Context:  ctx,
	}))
	// The account change only schedules a debounced lookup; the command line
	// never runs it.
	m, _ = m.Update(onboard.AccountChangedMsg{Value: *account})
	m = onboard.Drive(m,
		onboard.FieldChangedMsg{Field: onboard.FieldCharacter, Value: *character},
		onboard.FieldChangedMsg{Field: onboard.FieldContact, Value: *contact},
		onboard.FieldChangedMsg{Field: onboard.FieldIntent, Value: *intent},
		onboard.SubmitRunMsg{},
	)
	return printRun(m, loaded, showText(*jsonOut), out, errOut)
}

type showFormat int

const (
	formatText showFormat = iota
	formatJSON
	formatHTML
)

func showText(jsonOut bool) showFormat {
	if jsonOut {
		return formatJSON
	}
	return formatText
}

func runShow(ctx context.Context, args []string, out, errOut io.Writer, svc service) int {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	runID := fs.String("run-id", "", "run id")
	location := fs.String("location", "", "results fragment, e.g. '#/results?run_id=7'")
	htmlOut := fs.Bool("html", false, "output an HTML document")
	jsonOut := fs.Bool("json", false, "output JSON")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	hasID := strings.TrimSpace(*runID) != ""
	hasLocation := strings.TrimSpace(*location) != ""
	if fs.NArg() > 0 || hasID == hasLocation || (*htmlOut && *jsonOut) {
		_, _ = fmt.Fprintln(errOut, "usage: onboard show (--run-id <id>|--location <fragment>) [--html|--json]")
		return 2
	}
	fragment := strings.TrimSpace(*location)
	if hasID {
		fragment = route.ResultsFragment(strings.TrimSpace(*runID))
	}
	format := showText(*jsonOut)
	if *htmlOut {
		format = formatHTML
	}
	return show(ctx, fragment, format, out, errOut, svc)
}

// show loads fragment through the controller so the command line sees the
// same routing and failure handling as the interactive client.
func show(ctx context.Context, fragment string, format showFormat, out, errOut io.Writer, svc service) int {
	if st := route.Parse(fragment); st.View != route.ViewResults {
		_, _ = fmt.Fprintf(errOut, "error: %q is not a results location\n", fragment)
		return 2
	}
	var loaded api.RunResult
	capture := capturingService{Service: svc, onGet: func(r api.RunResult) { loaded = r }}
	m := onboard.Start(onboard.New(capture, onboard.Options{Location: fragment, Context: ctx}))
	return printRun(m, loaded, format, out, errOut)
}

func printRun(m onboard.Model, loaded api.RunResult, format showFormat, out, errOut io.Writer) int {
	v := m.View()
	if v.Panels == nil {
		_, _ = fmt.Fprintf(errOut, "error: %s\n", render.Clean(v.Status.Text))
		return 1
	}

	switch format {
	case formatJSON:
		return writeJSONResponse(out, errOut, loaded)
	case formatHTML:
		if err := render.HTML(out, *v.Panels); err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
			return 1
		}
		return 0
	}
	if _, err := fmt.Fprintf(out, "run %s\n%s", render.Clean(v.Panels.RunID), render.Text(*v.Panels)); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}

// capturingService records the raw backend responses the controller
// consumed, for --json output.
type capturingService struct {
	onboard.Service
	onGet  func(api.RunResult)
	onSave func(api.InterestResponse)
}

func (c capturingService) GetRun(ctx context.Context, runID string) (api.RunResult, error) {
	r, err := c.Service.GetRun(ctx, runID)
	if err == nil && c.onGet != nil {
		c.onGet(r)
	}
	return r, err
}

func (c capturingService) SaveInterest(ctx context.Context, req api.InterestRequest) (api.InterestResponse, error) {
	resp, err := c.Service.SaveInterest(ctx, req)
	if err == nil && c.onSave != nil {
		c.onSave(resp)
	}
	return resp, err
}

func runInterest(ctx context.Context, args []string, out, errOut io.Writer, svc service) int {
	fs := flag.NewFlagSet("interest", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	runID := fs.String("run-id", "", "run id")
	contact := fs.String("contact", "", "contact")
	rating := fs.String("rating", "", "rating 1-5")
	intent := fs.String("intent", "", "intent")
	notes := fs.String("notes", "", "notes")
	jsonOut := fs.Bool("json", false, "output JSON")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	if fs.NArg() > 0 || strings.TrimSpace(*runID) == "" {
		_, _ = fmt.Fprintln(errOut, "usage: onboard interest --run-id <id> [--rating 1-5] [--contact <c>] [--intent <i>] [--notes <text>] [--json]")
		return 2
	}
	if r := strings.TrimSpace(*rating); r != "" {
		if _, err := strconv.Atoi(r); err != nil {
			_, _ = fmt.Fprintf(errOut, "error: %s\n", onboard.MsgInterestBadNum)
			return 2
		}
	}

	// Interest is only recorded against a run the controller loaded
	// successfully; the active run supplies the run id.
	var saved api.InterestResponse
	capture := capturingService{Service: svc, onSave: func(r api.InterestResponse) { saved = r }}
	m := onboard.Start(onboard.New(capture, onboard.Options{
		Location: route.ResultsFragment(strings.TrimSpace(*runID)),
		Context:  ctx,
	}))
	if m.View().Panels == nil {
		_, _ = fmt.Fprintf(errOut, "error: %s\n", render.Clean(m.View().Status.Text))
		return 1
	}
	m = onboard.Drive(m, onboard.SubmitInterestMsg{
		Contact: *contact,
		Rating:  *rating,
		Intent:  *intent,
		Notes:   *notes,
	})
	st := m.View().Status
	if st.Kind == onboard.StatusError {
		_, _ = fmt.Fprintf(errOut, "error: %s\n", render.Clean(st.Text))
		return 1
	}
	if *jsonOut {
		return writeJSONResponse(out, errOut, saved)
	}
	if _, err := fmt.Fprintln(out, st.Text); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}

func runDoctor(ctx context.Context, args []string, out, errOut io.Writer, svc service, cfg config.Config) int {
	fs := flag.NewFlagSet("doctor", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	exportDir := fs.String("export-dir", "", "snapshot directory to check")
	jsonOut := fs.Bool("json", false, "output JSON")
	if err := fs.Parse(args); err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 2
	}
	if fs.NArg() > 0 {
		_, _ = fmt.Fprintln(errOut, "usage: onboard doctor [--export-dir <dir>] [--json]")
		return 2
	}
	res := doctor.Run(ctx, svc, doctor.Options{Config: cfg, ExportDir: strings.TrimSpace(*exportDir)})
	if *jsonOut {
		if code := writeJSONResponse(out, errOut, res); code != 0 {
			return code
		}
	} else {
		for _, c := range res.Checks {
			line := fmt.Sprintf("[%s] %s: %s", c.Status, c.Name, c.Message)
			if c.Path != "" {
				line += " (" + c.Path + ")"
			}
			if _, err := fmt.Fprintln(out, line); err != nil {
				_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
				return 1
			}
		}
	}
	if !res.OK {
		return 1
	}
	return 0
}

// openLogger writes to path when set. The terminal belongs to the TUI, so
// logs are discarded otherwise.
func openLogger(path string) (*slog.Logger, func(), error) {
	if strings.TrimSpace(path) == "" {
		return slog.New(slog.NewTextHandler(io.Discard, nil)), func() {}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	logger := slog.New(slog.NewJSONHandler(f, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return logger, func() { _ = f.Close() }, nil
}

func printUsage(w io.Writer) {
	_, _ = fmt.Fprintln(w, usageLine)
	_, _ = fmt.Fprintln(w, "       onboard tui [--location <fragment>] [--realm pc|sony|xbox] [--export-dir <dir>]")
	_, _ = fmt.Fprintln(w, "       onboard characters --account <name> [--realm ...] [--json]")
	_, _ = fmt.Fprintln(w, "       onboard run --account <name> [--realm ...] [--character ...] [--contact ...] [--intent ...] [--json]")
	_, _ = fmt.Fprintln(w, "       onboard show (--run-id <id>|--location <fragment>) [--html|--json]")
	_, _ = fmt.Fprintln(w, "       onboard interest --run-id <id> [--rating 1-5] [--contact ...] [--intent ...] [--notes ...] [--json]")
	_, _ = fmt.Fprintln(w, "       onboard doctor [--export-dir <dir>] [--json]")
}

func writeJSONResponse(out, errOut io.Writer, payload any) int {
	b, err := json.Marshal(payload)
	if err == nil {
		_, err = fmt.Fprintln(out, string(b))
	}
	if err != nil {
		_, _ = fmt.Fprintf(errOut, "error: %v\n", err)
		return 1
	}
	return 0
}
