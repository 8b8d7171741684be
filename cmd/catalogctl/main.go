// Command catalogctl runs catalog maintenance jobs against the storefront
// database. Every command is a dry run unless --apply is given.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"storefront-service/internal/app"
	"storefront-service/internal/compliance"
	"storefront-service/internal/config"
	"storefront-service/internal/models"
	"storefront-service/internal/reports"
	"storefront-service/internal/rules"
	"storefront-service/internal/services"
)

const usage = `usage: catalogctl <command> [flags]

commands:
  match-content     match products missing content to Airtable records
  sync-zoho         run one Zoho Inventory sync phase
  classify          classify products that were never classified
  audit-compliance  audit active products against the compliance rules
  seed-compliance   seed the regulated category rules

every command accepts --apply to write changes and --dry-run to force a
preview; without --apply nothing is written.
run "catalogctl <command> -h" for command flags`

type command func(ctx context.Context, a *app.App, args []string) error

var commands = map[string]command{
	"match-content":    runMatchContent,
	"sync-zoho":        runSyncZoho,
	"classify":         runClassify,
	"audit-compliance": runAuditCompliance,
	"seed-compliance":  runSeedCompliance,
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}
	run, ok := commands[os.Args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n%s\n", os.Args[1], usage)
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}
	cfg := config.Load()

	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if os.Getenv("DEBUG") != "" {
		logger.SetLevel(logrus.DebugLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := config.InitDB(cfg)
	if err != nil {
		logger.WithError(err).Error("Failed to connect to database")
		os.Exit(1)
	}

	a := app.New(cfg, db, connectRedis(ctx, cfg, logger), nil, logger)
	err = run(ctx, a, os.Args[2:])
	a.Close()
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		logger.WithError(err).Errorf("%s failed", os.Args[1])
		os.Exit(1)
	}
}

// connectRedis returns nil when Redis is unreachable; the token and suggestion
// caches fall back to direct calls.
func connectRedis(ctx context.Context, cfg *config.Config, logger *logrus.Logger) *redis.Client {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.WithError(err).Debug("Invalid REDIS_URL, running without cache")
		return nil
	}
	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		logger.WithError(err).Debug("Redis unreachable, running without cache")
		_ = client.Close()
		return nil
	}
	return client
}

func newFlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	return fs
}

// writeMode registers --apply and --dry-run on fs. The returned func reports
// whether writes are allowed; --dry-run wins over --apply.
func writeMode(fs *flag.FlagSet) func() bool {
	apply := fs.Bool("apply", false, "write changes (default is a dry run)")
	dryRun := fs.Bool("dry-run", false, "preview only, overrides --apply")
	return func() bool { return *apply && !*dryRun }
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeJSONFile(path string, v interface{}) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := printJSON(f, v); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func logDryRun(logger *logrus.Logger, apply bool) {
	if !apply {
		logger.Info("Dry run: nothing was written, re-run with --apply to write")
	}
}

// ============================================================================
// match-content
// ============================================================================

type matchContentOptions struct {
	services.ContentSyncOptions
	output string
	report string
}

func parseMatchContent(args []string, defaultThreshold float64) (*matchContentOptions, error) {
	fs := newFlagSet("match-content")
	opts := &matchContentOptions{}
	fs.Float64Var(&opts.Threshold, "threshold", defaultThreshold, "minimum match score (0..1)")
	fs.StringVar(&opts.output, "output", "", "write the match summary as JSON to this path")
	fs.StringVar(&opts.report, "report", "", "write an xlsx match report to this path")
	fs.BoolVar(&opts.Force, "force", false, "overwrite populated images and descriptions")
	fs.IntVar(&opts.Limit, "limit", 0, "max products to consider (0 = all)")
	fs.StringVar(&opts.FilterByFormula, "filter", "", "Airtable filterByFormula expression")
	apply := writeMode(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if opts.Threshold <= 0 || opts.Threshold > 1 {
		return nil, fmt.Errorf("--threshold must be in (0, 1], got %v", opts.Threshold)
	}
	opts.Apply = apply()
	return opts, nil
}

func runMatchContent(ctx context.Context, a *app.App, args []string) error {
	opts, err := parseMatchContent(args, a.Config.MatchThreshold)
	if err != nil {
		return err
	}
	if err := a.Config.AirtableMissing(); err != nil {
		return err
	}

	out, err := a.ContentSync.Run(ctx, opts.ContentSyncOptions)
	if err != nil {
		return err
	}

	if opts.output != "" {
		if err := writeJSONFile(opts.output, out.Summary); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.output, err)
		}
	}
	if opts.report != "" {
		if err := reports.WriteMatchReport(opts.report, out.Match); err != nil {
			return fmt.Errorf("failed to write %s: %w", opts.report, err)
		}
	}
	for _, e := range out.Errors {
		a.Logger.Warn(e)
	}
	logDryRun(a.Logger, opts.Apply)
	return printJSON(os.Stdout, out.Summary)
}

// ============================================================================
// sync-zoho
// ============================================================================

type syncZohoOptions struct {
	phase models.SyncPhase
	req   models.ZohoSyncRequest
}

func parseSyncZoho(args []string) (*syncZohoOptions, error) {
	fs := newFlagSet("sync-zoho")
	opts := &syncZohoOptions{}
	phase := fs.String("phase", string(models.SyncPhaseProducts), "categories|products|stock")
	fs.StringVar(&opts.req.StartFromID, "start-from", "", "resume after this Zoho id")
	fs.BoolVar(&opts.req.FullSync, "full", false, "also refresh name, description, brand and category")
	fs.IntVar(&opts.req.Limit, "limit", 0, "max records to process (0 = all)")
	apply := writeMode(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.phase = models.SyncPhase(*phase)
	if !opts.phase.Valid() {
		return nil, fmt.Errorf("unknown phase %q", *phase)
	}
	opts.req.DryRun = !apply()
	return opts, nil
}

func runSyncZoho(ctx context.Context, a *app.App, args []string) error {
	opts, err := parseSyncZoho(args)
	if err != nil {
		return err
	}
	if err := a.Config.ZohoMissing(); err != nil {
		return err
	}

	resp, err := a.Sync.Run(ctx, opts.phase, opts.req)
	if resp != nil {
		if perr := printJSON(os.Stdout, resp); perr != nil && err == nil {
			err = perr
		}
	}
	if err != nil && resp != nil && resp.Stats != nil && resp.Stats.LastProcessedID != "" {
		a.Logger.Infof("Resume with --start-from=%s", resp.Stats.LastProcessedID)
	}
	logDryRun(a.Logger, !opts.req.DryRun)
	return err
}

// ============================================================================
// classify
// ============================================================================

type classifyOptions struct {
	limit int
	apply bool
}

func parseClassify(args []string) (*classifyOptions, error) {
	fs := newFlagSet("classify")
	opts := &classifyOptions{}
	fs.IntVar(&opts.limit, "limit", 100, "max products to classify")
	apply := writeMode(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.apply = apply()
	return opts, nil
}

// classify waits for each product in turn so the run ends when the work does
func runClassify(ctx context.Context, a *app.App, args []string) error {
	opts, err := parseClassify(args)
	if err != nil {
		return err
	}

	products, err := a.Products.ListUnclassifiedProducts(ctx, opts.limit)
	if err != nil {
		return fmt.Errorf("failed to list unclassified products: %w", err)
	}
	a.Logger.WithField("count", len(products)).Info("Classifying products")

	var hidden, failed int
	for i := range products {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := &products[i]
		if !opts.apply {
			d := a.Classifier.Evaluate(ctx, p)
			if d.Hide {
				hidden++
			}
			fmt.Fprintf(os.Stdout, "%s\t%s\thide=%t\t%s\t%s\n", p.ID, p.Name, d.Hide, d.Source, d.Reason)
			continue
		}
		d, err := a.Classifier.Classify(ctx, p.ID)
		if err != nil {
			failed++
			a.Logger.WithError(err).WithField("product_id", p.ID).Warn("Classification failed")
			continue
		}
		if d.Hide {
			hidden++
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%s\n", p.ID, p.Name, d.State, d.Reason)
	}

	a.Logger.WithFields(logrus.Fields{
		"total":   len(products),
		"hidden":  hidden,
		"failed":  failed,
		"dry_run": !opts.apply,
	}).Info("Classification finished")
	return nil
}

// ============================================================================
// audit-compliance
// ============================================================================

type auditOptions struct {
	limit int
	apply bool
}

func parseAuditCompliance(args []string) (*auditOptions, error) {
	fs := newFlagSet("audit-compliance")
	opts := &auditOptions{}
	fs.IntVar(&opts.limit, "limit", 100, "max regulated products to audit")
	apply := writeMode(fs)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	opts.apply = apply()
	return opts, nil
}

// audit-compliance covers every product with a compliance assignment, including
// the ones the classifier hid; --apply records violations in the audit log
func runAuditCompliance(ctx context.Context, a *app.App, args []string) error {
	opts, err := parseAuditCompliance(args)
	if err != nil {
		return err
	}

	audited, err := a.Compliance.AuditRegulatedProducts(ctx, opts.limit, opts.apply)
	if err != nil {
		return err
	}

	flagged := nonCompliant(audited)
	violations := 0
	for _, r := range flagged {
		violations += len(r.Violations)
	}
	a.Logger.WithFields(logrus.Fields{
		"audited":       len(audited),
		"non_compliant": len(flagged),
		"violations":    violations,
		"dry_run":       !opts.apply,
	}).Info("Compliance audit finished")
	return printJSON(os.Stdout, flagged)
}

func nonCompliant(audited []*models.ProductAuditReport) []*models.ProductAuditReport {
	out := make([]*models.ProductAuditReport, 0, len(audited))
	for _, r := range audited {
		if !r.Compliant {
			out = append(out, r)
		}
	}
	return out
}

// ============================================================================
// seed-compliance
// ============================================================================

func parseSeedCompliance(args []string) (bool, error) {
	fs := newFlagSet("seed-compliance")
	apply := writeMode(fs)
	if err := fs.Parse(args); err != nil {
		return false, err
	}
	return apply(), nil
}

// seedPreview prints the rules a seed would upsert
func seedPreview(w io.Writer) error {
	preview := make([]models.ComplianceRule, 0, len(rules.Categories))
	for _, cr := range rules.Categories {
		preview = append(preview, compliance.RuleFromTable(cr))
	}
	return printJSON(w, preview)
}

func runSeedCompliance(ctx context.Context, a *app.App, args []string) error {
	apply, err := parseSeedCompliance(args)
	if err != nil {
		return err
	}
	if !apply {
		logDryRun(a.Logger, false)
		return seedPreview(os.Stdout)
	}
	n, err := a.Compliance.SeedRules(ctx)
	if err != nil {
		return err
	}
	a.Logger.WithField("rules", n).Info("Compliance rules seeded")
	return nil
}
