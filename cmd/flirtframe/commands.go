package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/theimaginaryfoundation/flirtframe/opener"
	"github.com/theimaginaryfoundation/flirtframe/opener/analytics"
	"github.com/theimaginaryfoundation/flirtframe/opener/analyzer"
	"github.com/theimaginaryfoundation/flirtframe/opener/fileutils"
	"github.com/theimaginaryfoundation/flirtframe/opener/provider"
	"github.com/theimaginaryfoundation/flirtframe/opener/store"
)

const saveTimeout = 10 * time.Second

func newAnalyzeCmd(a *app) *cobra.Command {
	var imagePath, outPath string
	cmd := &cobra.Command{
		Use:   "analyze --image photo.jpg",
		Short: "Analyze a photo into an analysis record",
		Long: `Validates the image, sends it to the vision model and writes the detected
elements and scene context as JSON. Analysis always uses OpenAI, whatever
--provider selects for text generation.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if imagePath == "" {
				return errors.New("missing --image")
			}
			data, err := os.ReadFile(imagePath)
			if err != nil {
				return fmt.Errorf("read image: %w", err)
			}

			pcfg := a.cfg.providerConfig(provider.OpenAI, a.cfg.VisionModel)
			if err := pcfg.Validate(); err != nil {
				return fmt.Errorf("analyze: %w", err)
			}
			an, err := analyzer.NewVisionAnalyzer(provider.NewOpenAI(pcfg),
				analyzer.WithLogger(a.logger),
				analyzer.WithSink(a.sink),
			)
			if err != nil {
				return err
			}

			rec, err := an.Analyze(cmd.Context(), data)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", imagePath, err)
			}
			if outPath == "" {
				return a.writeJSON(rec)
			}
			if err := fileutils.WriteJSONFileAtomic(outPath, rec, a.cfg.Pretty); err != nil {
				return fmt.Errorf("write analysis: %w", err)
			}
			a.logger.Info("analysis written",
				zap.String("path", outPath),
				zap.String("image_id", rec.ImageID),
				zap.Int("elements", len(rec.Elements)),
			)
			return nil
		},
	}
	cmd.Flags().StringVar(&imagePath, "image", "", "Image file (jpeg, png, gif or webp)")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the analysis here instead of stdout")
	cmd.Flags().StringVar(&a.flags.VisionModel, "vision-model", a.flags.VisionModel, "OpenAI model used for image analysis")
	return cmd
}

func newGenerateCmd(a *app) *cobra.Command {
	var profileHandle string
	cmd := &cobra.Command{
		Use:   "generate analysis.json...",
		Short: "Generate openers for one or more analysis records",
		Long: `Restores the session, generates openers for each analysis file (in
parallel up to --concurrency), prints the results as JSON and saves the
session. With --profile, the public profile is fetched once and shared by
every request.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			reqs, err := a.readRequests(args)
			if err != nil {
				return err
			}
			if profileHandle != "" {
				p, err := a.profileSource().Fetch(ctx, profileHandle)
				if err != nil {
					return fmt.Errorf("generate: profile %s: %w", profileHandle, err)
				}
				for i := range reqs {
					reqs[i].Profile = p
				}
			}

			name, err := provider.ParseName(a.cfg.Provider)
			if err != nil {
				return err
			}
			gen, err := provider.New(ctx, a.cfg.providerConfig(name, a.cfg.Model))
			if err != nil {
				return err
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			mem, err := a.loadSession(ctx, st)
			if err != nil {
				return err
			}

			ecfg := opener.DefaultEngineConfig()
			ecfg.Count = a.cfg.Count
			eng, err := opener.NewEngine(gen, mem,
				opener.WithLogger(a.logger),
				opener.WithSink(a.sink),
				opener.WithEngineConfig(ecfg),
			)
			if err != nil {
				return err
			}

			var saver *store.Autosaver
			if a.cfg.Autosave != "" {
				saver, err = store.NewAutosaver(st, a.cfg.Session, mem, a.cfg.Autosave, a.logger)
				if err != nil {
					return err
				}
				saver.Start()
			}

			results, genErr := eng.GenerateBatch(ctx, reqs, a.cfg.Concurrency)

			// Whatever was stored before a failure is still worth keeping.
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), saveTimeout)
			defer cancel()
			var saveErr error
			if saver != nil {
				saveErr = saver.Stop(saveCtx)
			} else {
				saveErr = a.saveSession(saveCtx, st, mem)
			}

			// Stored openers are printed even when siblings failed so their
			// ids can still be rated.
			done := make([]opener.OpenerResult, 0, len(results))
			for _, r := range results {
				if len(r.Openers) > 0 {
					done = append(done, r)
				}
			}
			if genErr == nil || len(done) > 0 {
				if err := a.writeJSON(done); err != nil {
					return err
				}
			}
			if genErr != nil {
				a.logger.Warn("batch partially failed",
					zap.Int("succeeded", len(done)),
					zap.Int("requested", len(reqs)))
			}
			return errors.Join(genErr, saveErr)
		},
	}
	f := cmd.Flags()
	f.StringVar(&a.flags.Style, "style", "", "Opener style: "+joinStyles())
	f.IntVar(&a.flags.Count, "count", a.flags.Count, "Openers per analysis")
	f.IntVar(&a.flags.Concurrency, "concurrency", a.flags.Concurrency, "Max analyses processed in parallel (0 = unlimited)")
	f.StringVar(&profileHandle, "profile", "", "Instagram handle or profile URL to personalize openers")
	f.StringVar(&a.flags.ProfilesDir, "profiles", "", "Read profiles from <dir>/<handle>.json instead of the network")
	f.StringVar(&a.flags.Autosave, "autosave", "", `Save the session on a cron schedule while generating (e.g. "@every 30s")`)
	return cmd
}

// readRequests loads one request per analysis file. Records without an image
// id are named after their file.
func (a *app) readRequests(paths []string) ([]opener.GenerateRequest, error) {
	style, err := opener.ParseStyle(a.cfg.Style)
	if err != nil {
		return nil, err
	}
	reqs := make([]opener.GenerateRequest, 0, len(paths))
	for _, p := range paths {
		var rec opener.AnalysisRecord
		if err := fileutils.ReadJSONFile(p, &rec); err != nil {
			return nil, fmt.Errorf("read analysis %s: %w", p, err)
		}
		if rec.ImageID == "" {
			rec.ImageID = strings.TrimSuffix(filepath.Base(p), filepath.Ext(p))
		}
		reqs = append(reqs, opener.GenerateRequest{Analysis: rec, Style: style, Count: a.cfg.Count})
	}
	return reqs, nil
}

func newRateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rate <opener-id> <1-5>",
		Short: "Rate a generated opener",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			id := args[0]
			rating, err := strconv.Atoi(args[1])
			if err != nil || rating < 1 || rating > 5 {
				return fmt.Errorf("rating must be an integer from 1 to 5, got %q", args[1])
			}

			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			mem, err := a.loadSession(ctx, st)
			if err != nil {
				return err
			}

			if !mem.RateOpener(id, rating) {
				return fmt.Errorf("opener %q not found in session %q", id, a.cfg.Session)
			}
			if ev, err := analytics.NewOpenerRated(id, rating); err == nil {
				a.sink.Record(ctx, ev)
			}
			if err := a.saveSession(ctx, st, mem); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "rated %s: %d\n", id, rating)
			return nil
		},
	}
}

func newStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Print session statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := a.openStore()
			if err != nil {
				return err
			}
			defer st.Close()
			mem, err := a.loadSession(cmd.Context(), st)
			if err != nil {
				return err
			}
			return a.writeJSON(mem.Stats())
		},
	}
}

type profileReport struct {
	Profile *opener.Profile `json:"profile"`
	Matches []opener.Match  `json:"matches,omitempty"`
}

func newProfileCmd(a *app) *cobra.Command {
	var analysisPath string
	cmd := &cobra.Command{
		Use:   "profile <handle-or-url>",
		Short: "Fetch a public profile and show derived interests",
		Long: `Fetches the profile, derives interests and personality, and with --analysis
lists the elements of that photo that relate to the profile.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.profileSource().Fetch(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("profile %s: %w", args[0], err)
			}
			report := profileReport{Profile: p}
			if analysisPath != "" {
				var rec opener.AnalysisRecord
				if err := fileutils.ReadJSONFile(analysisPath, &rec); err != nil {
					return fmt.Errorf("read analysis %s: %w", analysisPath, err)
				}
				report.Matches = opener.FindMatchingElements(*p, rec)
			}
			return a.writeJSON(report)
		},
	}
	cmd.Flags().StringVar(&analysisPath, "analysis", "", "Analysis file to match against the profile")
	cmd.Flags().StringVar(&a.flags.ProfilesDir, "profiles", "", "Read profiles from <dir>/<handle>.json instead of the network")
	return cmd
}

func joinStyles() string {
	names := make([]string, 0, len(opener.Styles()))
	for _, s := range opener.Styles() {
		names = append(names, string(s))
	}
	return strings.Join(names, ", ")
}
