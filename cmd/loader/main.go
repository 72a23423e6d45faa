// Command loader runs extractions from the command line, for schedulers and
// one-off backfills. Unlike the server it exits nonzero when any attempted
// report fails, so a cron wrapper can alert on the exit code.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/ignite/ga4-loader/internal/archive"
	"github.com/ignite/ga4-loader/internal/config"
	"github.com/ignite/ga4-loader/internal/ga4"
	"github.com/ignite/ga4-loader/internal/pipeline"
	"github.com/ignite/ga4-loader/internal/pkg/logger"
	"github.com/ignite/ga4-loader/internal/report"
	"github.com/ignite/ga4-loader/internal/secrets"
	"github.com/ignite/ga4-loader/internal/warehouse"
)

func main() {
	var (
		configPath = flag.String("config", "config/config.yaml", "path to config file")
		initTables = flag.Bool("init-tables", false, "create the dataset and report tables, then exit unless --extract is also set")
		extract    = flag.Bool("extract", false, "run an extraction")
		keys       = flag.String("keys", "", "comma-separated report keys (default: all)")
		property   = flag.String("property", "", "GA4 property ID (default: from config)")
		start      = flag.String("start", "", "start date YYYY-MM-DD (default: yesterday in the configured timezone)")
		end        = flag.String("end", "", "end date YYYY-MM-DD (default: same as start)")
		dryRun     = flag.Bool("dry-run", false, "fetch and transform but skip the warehouse load")
	)
	flag.Parse()

	if !*initTables && !*extract {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	logger.SetLevel(logger.ParseLevel(cfg.Logging.Level))
	logger.SetRedactSecrets(cfg.Logging.RedactSecrets())

	ctx := context.Background()
	catalog := report.DefaultCatalog()

	reportKeys := splitKeys(*keys)
	for _, k := range reportKeys {
		if _, err := catalog.Get(k); err != nil {
			log.Fatalf("Unknown report key: %v", err)
		}
	}

	var sink *warehouse.Sink
	if !*dryRun {
		sink, err = warehouse.Open(cfg.Warehouse)
		if err != nil {
			log.Fatalf("Failed to open warehouse: %v", err)
		}
		defer sink.Close()
	}

	if *initTables {
		if *dryRun {
			log.Fatal("--init-tables and --dry-run are mutually exclusive")
		}
		if err := sink.InitTables(ctx, catalog, cfg.Warehouse.TablePrefix); err != nil {
			log.Fatalf("Failed to initialize tables: %v", err)
		}
		logger.Info("tables initialized", "count", catalog.Len(), "dataset", sink.Dataset())
		if !*extract {
			return
		}
	}

	propertyID := *property
	if propertyID == "" {
		propertyID = cfg.GA4.PropertyID
	}
	if propertyID == "" {
		log.Fatal("No property: pass --property or set ga4.property_id / GA4_PROPERTY_ID")
	}

	var secretStore ga4.SecretGetter
	if cfg.Secrets.Enabled {
		store, err := secrets.New(ctx, cfg.Secrets)
		if err != nil {
			log.Fatalf("Failed to initialize secrets store: %v", err)
		}
		secretStore = store
	}
	tokens, err := ga4.Credentials(ctx, cfg.GA4, cfg.Secrets.CredentialsSecretID, secretStore)
	if err != nil {
		log.Fatalf("Failed to resolve analytics credentials: %v", err)
	}
	source := ga4.NewSource(ga4.NewClient(cfg.GA4, tokens))

	var archiver pipeline.Archiver
	if cfg.Archive.Enabled && !*dryRun {
		s3arch, err := archive.New(ctx, cfg.Archive)
		if err != nil {
			log.Fatalf("Failed to initialize archive: %v", err)
		}
		archiver = s3arch
	}

	var dest pipeline.Sink = discardSink{}
	if !*dryRun {
		dest = sink
	}

	pipe := pipeline.New(catalog, source, dest, archiver, pipeline.Options{
		Timezone:    cfg.GA4.Location(),
		DaysBack:    cfg.GA4.DaysBack,
		TablePrefix: cfg.Warehouse.TablePrefix,
	})

	startDate, endDate := *start, *end
	if startDate != "" && endDate == "" {
		endDate = startDate
	}

	result := pipe.RunAll(ctx, propertyID, reportKeys, startDate, endDate)

	out, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(out))

	if result.Summary.Failed > 0 {
		os.Exit(1)
	}
}

func splitKeys(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	keys := make([]string, 0, len(parts))
	for _, p := range parts {
		if k := strings.TrimSpace(p); k != "" {
			keys = append(keys, k)
		}
	}
	return keys
}

// discardSink satisfies the pipeline's sink on --dry-run: schema checks
// pass, deletes pretend to succeed, inserts report what would have loaded.
type discardSink struct{}

func (discardSink) EnsureDataset(ctx context.Context) error                      { return nil }
func (discardSink) EnsureTable(ctx context.Context, spec report.TableSpec) error { return nil }
func (discardSink) DeletePartition(ctx context.Context, table, date string) bool { return true }

func (discardSink) InsertRows(ctx context.Context, table string, columns []report.ColumnSpec, rows []report.Row) report.LoadResult {
	return report.LoadResult{
		Status:       report.StatusSuccess,
		Message:      fmt.Sprintf("dry run, %d rows not loaded", len(rows)),
		Table:        table,
		RowsInserted: len(rows),
	}
}
