package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"talentscan/cv-screener/internal/models"
	"talentscan/cv-screener/internal/services"
)

const (
	PromptYes = "Yes"
	PromptNo  = "No"
)

var errAborted = errors.New("screening aborted")

type screenOptions struct {
	jobTitle string
	jdFile   string
	out      string
	top      int
	yes      bool
}

func newScreenCommand(v *viper.Viper) *cobra.Command {
	opts := &screenOptions{}

	cmd := &cobra.Command{
		Use:   "screen <resume-dir>",
		Short: "Screen every résumé in a directory and export a ranked shortlist",
		Long: `Screen every PDF, DOCX and TXT résumé in a directory against a job description.

Example:
  talentscan screen ./cvs --job-title "Backend Engineer" --jd-file jd.txt --out shortlist.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScreen(cmd, v, opts, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.jobTitle, "job-title", "", "job title the résumés are screened for")
	cmd.Flags().StringVar(&opts.jdFile, "jd-file", "", "file holding the job description")
	cmd.Flags().StringVarP(&opts.out, "out", "o", "shortlist.csv", "export file, .csv or .xlsx")
	cmd.Flags().IntVar(&opts.top, "top", 10, "rows printed to the terminal, 0 prints everyone")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask for confirmation")
	cmd.Flags().Int("page-limit", 0, "pages read per PDF (default 3)")

	mustBind(v.BindPFlag("screening.page-limit", cmd.Flags().Lookup("page-limit")))
	_ = cmd.MarkFlagRequired("job-title")
	_ = cmd.MarkFlagRequired("jd-file")

	return cmd
}

func runScreen(cmd *cobra.Command, v *viper.Viper, opts *screenOptions, dir string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log, err := newLogger(v)
	if err != nil {
		return fmt.Errorf("creating a logger: %w", err)
	}
	defer func() { _ = log.Sync() }()

	jd, err := os.ReadFile(opts.jdFile)
	if err != nil {
		return fmt.Errorf("reading job description: %w", err)
	}
	jobDescription := strings.TrimSpace(string(jd))
	if strings.TrimSpace(opts.jobTitle) == "" || jobDescription == "" {
		return errors.New("job title and job description must not be empty")
	}

	format, err := formatForPath(opts.out)
	if err != nil {
		return err
	}

	uploads, skipped, err := collectResumes(dir)
	if err != nil {
		return err
	}
	for _, s := range skipped {
		log.Info("skipping file", zap.String("file", s))
	}
	if len(uploads) == 0 {
		return fmt.Errorf("no supported résumés found in %s", dir)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Found %d résumés for %q.\n", len(uploads), opts.jobTitle)

	if !opts.yes {
		if err := confirm(fmt.Sprintf("Screen %d résumés with Gemini?", len(uploads))); err != nil {
			return err
		}
	}

	gemCfg := geminiConfig(v)
	if err := validateGemini(gemCfg); err != nil {
		return err
	}

	gemini, err := services.NewGeminiService(ctx, gemCfg, v.GetInt("screening.log-preview"), log)
	if err != nil {
		return err
	}

	screener := services.NewScreenerService(
		nil, nil, nil, nil,
		services.NewTextExtractor(pageLimit(v)),
		gemini,
		nil, nil,
		services.ScreenerOptions{
			RequestDelay:     v.GetDuration("screening.delay"),
			RateLimitBackoff: v.GetDuration("screening.backoff"),
		},
		log,
	)

	done := 0
	candidates, err := screener.ScreenDocuments(ctx, opts.jobTitle, jobDescription, uploads, func(r services.ScreenResult) {
		done++
		if r.Err != nil {
			fmt.Fprintf(out, "[%d/%d] %s: skipped (%v)\n", done, len(uploads), r.SourceFile, r.Err)
			return
		}
		fmt.Fprintf(out, "[%d/%d] %s: %s scored %d\n", done, len(uploads), r.SourceFile, r.Candidate.CandidateName, r.Candidate.Score)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if len(candidates) == 0 {
		return errors.New("no résumé could be screened")
	}

	ranked := services.RankCandidates(candidates)
	if err := printRanking(out, services.Shortlist(ranked, opts.top)); err != nil {
		return err
	}

	if err := writeExport(opts.out, format, opts.jobTitle, ranked); err != nil {
		return err
	}
	fmt.Fprintf(out, "Exported %d candidates to %s\n", len(ranked), opts.out)

	return nil
}

func pageLimit(v *viper.Viper) int {
	if n := v.GetInt("screening.page-limit"); n > 0 {
		return n
	}
	return 3
}

func confirm(label string) error {
	prompt := promptui.Select{
		Label: label,
		Items: []string{PromptYes, PromptNo},
	}
	_, answer, err := prompt.Run()
	if err != nil {
		return fmt.Errorf("prompt failed: %w", err)
	}
	if answer != PromptYes {
		return errAborted
	}
	return nil
}

// collectResumes reads the supported files of dir in name order; other entries are reported as skipped.
func collectResumes(dir string) ([]services.Upload, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("reading résumé directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	var uploads []services.Upload
	var skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := services.MimeTypeFor(e.Name()); err != nil {
			skipped = append(skipped, e.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("reading %s: %w", e.Name(), err)
		}
		uploads = append(uploads, services.Upload{Name: e.Name(), Data: data})
	}

	return uploads, skipped, nil
}

func formatForPath(path string) (services.ExportFormat, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), ".")
	if ext == "" {
		return "", fmt.Errorf("export file %q needs a .csv or .xlsx extension", path)
	}
	return services.ParseExportFormat(ext)
}

func writeExport(path string, format services.ExportFormat, jobTitle string, ranked []models.RankedCandidate) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := services.Export(f, format, jobTitle, ranked); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}

func printRanking(w io.Writer, ranked []models.RankedCandidate) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tCANDIDATE\tSCORE\tBAND\tVERDICT")
	for _, r := range ranked {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%s\t%s\n", r.Rank, r.CandidateName, r.Score, services.ScoreBand(r.Score), r.Verdict)
	}
	return tw.Flush()
}
