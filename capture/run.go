// Package capture implements capture command: a document is loaded, subtree
// selected by CSS selector is snapshotted and exported as PDF.
package capture

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"htmlsnap/archive"
	"htmlsnap/common"
	"htmlsnap/config"
	"htmlsnap/dom"
	"htmlsnap/export"
	"htmlsnap/fonts"
	"htmlsnap/host/browser"
	"htmlsnap/host/static"
	"htmlsnap/misc"
	"htmlsnap/snapshot"
	"htmlsnap/state"
	"htmlsnap/utils/debug"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("capture")

	src := cmd.Args().Get(0)
	if len(src) == 0 {
		return errors.New("no input source has been specified")
	}

	dst := cmd.Args().Get(1)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > 2 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[2:]))
	}

	if sel := cmd.String("selector"); sel != "" {
		env.Cfg.Capture.Selector = sel
	}
	if name := cmd.String("host"); name != "" {
		kind, err := common.ParseHostKind(name)
		if err != nil {
			log.Warn("Unknown host requested, using configured one", zap.String("host", name), zap.Error(err))
		} else {
			env.Cfg.Capture.Host = kind
		}
	}
	env.Overwrite, env.Open = cmd.Bool("overwrite"), cmd.Bool("open")

	log.Info("Processing starting",
		zap.String("source", src),
		zap.String("destination", dst),
		zap.String("selector", env.Cfg.Capture.Selector),
		zap.Stringer("host", env.Cfg.Capture.Host))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	_, err = process(ctx, src, dst, env, log)
	return err
}

// process handles capture independently of CLI framework and returns
// pipeline result which has already been written to the output file.
func process(ctx context.Context, src, dst string, env *state.LocalEnv, log *zap.Logger) (_ *snapshot.Result, rerr error) {
	cfg := env.Cfg
	fetcher := &archive.Fetcher{
		Next: &fonts.HTTPFetcher{UserAgent: misc.GetUserAgent(), Timeout: cfg.Fonts.Timeout},
	}

	source, err := loadSource(ctx, src, fetcher)
	if err != nil {
		return nil, err
	}
	root, err := dom.Select(source.Doc, cfg.Capture.Selector)
	if err != nil {
		return nil, err
	}

	host, closeHost, err := newHost(ctx, source, cfg, fetcher, log)
	if err != nil {
		return nil, fmt.Errorf("unable to prepare %s host: %w", cfg.Capture.Host, err)
	}
	defer func() {
		if err := closeHost(); err != nil {
			rerr = multierr.Append(rerr, fmt.Errorf("unable to close host: %w", err))
		}
	}()

	title := cfg.Export.Title
	if title == "" {
		title = dom.Title(source.Doc)
	}

	pipeline := snapshot.New(host, snapshot.Options{
		Log:         log,
		TokenPrefix: cfg.Capture.TokenPrefix,
		Placeholder: cfg.Capture.Placeholder,
		Fonts:       fonts.NewInliner(fetcher, cfg.Fonts.Mode, cfg.Fonts.Concurrency, log),
		Scale:       cfg.Export.Scale,
		Orientation: cfg.Export.Orientation,
		JPEGQuality: cfg.Export.JPEGQuality,
		Paginator: export.NewPDFFactory(export.PDFOptions{
			Title:        title,
			Creator:      misc.GetAppName() + " " + misc.GetVersion(),
			CreationDate: time.Now(),
		}),
	})

	events, wait := pipeline.Stream(ctx, root)
	for p := range events {
		if p.Stage == snapshot.StageCapture && p.Done < p.Total {
			log.Debug(p.String())
			continue
		}
		log.Info(p.String())
	}
	res, err := wait()
	if err != nil {
		return nil, fmt.Errorf("unable to capture %q: %w", cfg.Capture.Selector, err)
	}

	outputName := buildOutputPath(dst, Values{
		Title:      title,
		SourceFile: source.Name,
		Selector:   cfg.Capture.Selector,
		RunID:      env.RunID,
	}, env)

	if err := prepareOutput(outputName, env.Overwrite, log); err != nil {
		return nil, err
	}
	if err := writeDocument(outputName, res.Document); err != nil {
		return nil, err
	}
	log.Info("Document written",
		zap.String("file", outputName),
		zap.Int("width", res.Width),
		zap.Int("height", res.Height),
		zap.Int("elements", res.Pairs))

	if env.Rpt != nil {
		storeArtifacts(env.Rpt, host, res)
		env.Rpt.Store("result"+outputExt, outputName)
	}

	if env.Open {
		if err := config.OpenWithViewer(outputName); err != nil {
			log.Warn("Unable to open result", zap.String("file", outputName), zap.Error(err))
		}
	}
	return res, nil
}

func newHost(ctx context.Context, source *Source, cfg *config.Config, fetcher fonts.Fetcher, log *zap.Logger) (dom.Host, func() error, error) {
	switch cfg.Capture.Host {
	case common.HostKindBrowser:
		h, err := browser.New(ctx, source.Doc, browser.Options{
			Log:            log,
			BaseURL:        source.BaseURL,
			RemoteURL:      string(cfg.Browser.RemoteURL),
			Bin:            cfg.Browser.Bin,
			Headless:       cfg.Browser.Headless,
			ViewportWidth:  cfg.Capture.ViewportWidth,
			ViewportHeight: cfg.Capture.ViewportHeight,
		})
		if err != nil {
			return nil, nil, err
		}
		return h, h.Close, nil
	default:
		h, err := static.New(ctx, source.Doc, static.Options{
			Log:            log,
			BaseURL:        source.BaseURL,
			ViewportWidth:  cfg.Capture.ViewportWidth,
			ViewportHeight: cfg.Capture.ViewportHeight,
			Fetcher:        fetcher,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Debug("Using offline host", zap.Stringer("host", h))
		return h, func() error { return nil }, nil
	}
}

func prepareOutput(outputName string, overwrite bool, log *zap.Logger) error {
	if _, err := os.Stat(outputName); err == nil {
		if !overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		return os.Remove(outputName)
	} else if !os.IsNotExist(err) {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}
	return nil
}

func writeDocument(outputName string, doc export.Paginator) (err error) {
	f, err := os.Create(outputName)
	if err != nil {
		return fmt.Errorf("unable to create output file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = multierr.Append(err, fmt.Errorf("unable to close output file: %w", cerr))
		}
	}()
	if _, err := doc.WriteTo(f); err != nil {
		return fmt.Errorf("unable to write output file: %w", err)
	}
	return nil
}

// storeArtifacts puts intermediate results of the run into debug report.
func storeArtifacts(rpt *config.Report, host dom.Host, res *snapshot.Result) {
	rpt.StoreText("capture/stylesheet.css", res.Stylesheet)
	rpt.StoreText("capture/markup.xhtml", res.Markup)
	rpt.StoreData("capture/envelope.svg", res.Envelope)
	if res.Raster != nil {
		rpt.StoreData("capture/raster.png", res.Raster.PNG)
	}
	tw := debug.NewTreeWriter()
	tw.Node(0, res.Clone)
	rpt.StoreText("capture/tree.txt", tw.String())

	// offline host can show stylesheets the way its cascade sees them
	if wt, ok := host.(io.WriterTo); ok {
		var sb strings.Builder
		if _, err := wt.WriteTo(&sb); err == nil {
			rpt.StoreText("capture/sources.css", sb.String())
		}
	}
}
