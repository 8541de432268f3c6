// Package main implements the census binary.
// It manages a person directory backed by SQLite: schema management, bulk
// synthetic data generation, filtered queries, and an index-effect benchmark.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"github.com/censusdb/census/internal/bench"
	"github.com/censusdb/census/internal/config"
	"github.com/censusdb/census/internal/directory"
	"github.com/censusdb/census/internal/errors"
	"github.com/censusdb/census/internal/generate"
	"github.com/censusdb/census/internal/load"
	"github.com/censusdb/census/internal/snapshot"
	"github.com/censusdb/census/internal/storage"
	"github.com/censusdb/census/pkg/types"
)

var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	var (
		configFile  string
		dataDir     string
		count       int
		seed        int64
		batchSize   int
		showVersion bool
		showHelp    bool
	)

	flag.StringVar(&configFile, "config", "", "Path to configuration file (YAML or JSON)")
	flag.StringVar(&dataDir, "data-dir", "", "Base directory for all data files")
	flag.IntVar(&count, "count", 0, "Number of random records for the generate mode")
	flag.Int64Var(&seed, "seed", 0, "Random seed for the generate mode (0 = time-based)")
	flag.IntVar(&batchSize, "batch-size", 0, "Records per insert batch for the generate mode")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showHelp, "help", false, "Show help message")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Census - Person Directory and Index Benchmark\n\n")
		fmt.Fprintf(os.Stderr, "Usage: census [options] <mode> [arguments]\n\n")
		fmt.Fprintf(os.Stderr, "Modes:\n")
		fmt.Fprintf(os.Stderr, "  create-schema                            Create the people table\n")
		fmt.Fprintf(os.Stderr, "  add-one <full_name> <birth_date> <gender>  Add a single person\n")
		fmt.Fprintf(os.Stderr, "  list                                     Display all distinct people\n")
		fmt.Fprintf(os.Stderr, "  generate                                 Generate and bulk-load random records\n")
		fmt.Fprintf(os.Stderr, "  query-filter                             Query male people with F surnames\n")
		fmt.Fprintf(os.Stderr, "  optimize-and-compare                     Benchmark the query before and after indexing\n")
		fmt.Fprintf(os.Stderr, "  reset-schema                             Destroy and recreate all data (asks for confirmation)\n")
		fmt.Fprintf(os.Stderr, "  snapshot                                 Export the directory to archive storage\n")
		fmt.Fprintf(os.Stderr, "\nOptions:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  census create-schema\n")
		fmt.Fprintf(os.Stderr, "  census add-one \"Fisher Alexander Sergeevich\" 1985-03-12 Male\n")
		fmt.Fprintf(os.Stderr, "  census -count 1000000 generate\n")
		fmt.Fprintf(os.Stderr, "\nEnvironment Variables:\n")
		fmt.Fprintf(os.Stderr, "  CENSUS_DATA_DIR       Base directory for data files\n")
		fmt.Fprintf(os.Stderr, "  CENSUS_BATCH_SIZE     Records per insert batch\n")
		fmt.Fprintf(os.Stderr, "  CENSUS_GENERATE_COUNT Random records per generate run\n")
		fmt.Fprintf(os.Stderr, "  CENSUS_STORAGE_TYPE   Archive storage type (local, s3)\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("census version %s (commit: %s)\n", version, commit)
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := loadConfig(configFile, dataDir, count, seed, batchSize)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	if err := cfg.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to create data directories: %v", err)
	}

	store, err := directory.Open(cfg.DirectoryPath())
	if err != nil {
		log.Fatalf("Failed to open directory database: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	mode := flag.Arg(0)
	args := flag.Args()[1:]

	if err := run(ctx, mode, args, cfg, store); err != nil {
		if errors.GetCategory(err) == errors.ErrCategoryArgument {
			fmt.Fprintf(os.Stderr, "\n[ERROR] %v\n\n", err)
			flag.Usage()
			os.Exit(2)
		}
		log.Fatalf("[ERROR] %v", err)
	}
}

func run(ctx context.Context, mode string, args []string, cfg *config.Config, store *directory.Store) error {
	switch mode {
	case "create-schema":
		return runCreateSchema(ctx, store)
	case "add-one":
		return runAddOne(ctx, store, args)
	case "list":
		return runList(ctx, store)
	case "generate":
		return runGenerate(ctx, cfg, store)
	case "query-filter":
		return runQueryFilter(ctx, cfg, store)
	case "optimize-and-compare":
		return runOptimizeAndCompare(ctx, cfg, store)
	case "reset-schema":
		return runResetSchema(ctx, store, os.Stdin)
	case "snapshot":
		return runSnapshot(ctx, cfg, store)
	default:
		return errors.NewArgumentError(errors.CodeInvalidArgument,
			fmt.Sprintf("unknown mode %q", mode))
	}
}

func runCreateSchema(ctx context.Context, store *directory.Store) error {
	if err := store.CreateSchema(ctx); err != nil {
		return err
	}
	fmt.Printf("\n[SUCCESS] People table created successfully\n\n")
	return nil
}

func runAddOne(ctx context.Context, store *directory.Store, args []string) error {
	if len(args) < 3 {
		return errors.NewArgumentError(errors.CodeMissingArgument,
			"add-one requires <full_name> <birth_date> <gender>")
	}

	p, err := buildPerson(args[0], args[1], args[2])
	if err != nil {
		return err
	}

	id, err := store.InsertOne(ctx, p)
	if err != nil {
		return err
	}
	fmt.Printf("\n[SUCCESS] Person %q added successfully (id %d)\n\n", p.FullName, id)
	return nil
}

func runList(ctx context.Context, store *directory.Store) error {
	people, err := store.ListDistinct(ctx)
	if err != nil {
		return err
	}

	if len(people) == 0 {
		fmt.Printf("\n[INFO] No records found\n\n")
		return nil
	}

	printHeader("PERSON DIRECTORY")
	today := time.Now()
	for _, p := range people {
		printPersonRow(p.FullName, p.BirthDate, string(p.Gender), today)
	}
	fmt.Println(strings.Repeat("=", 80) + "\n")
	return nil
}

func runGenerate(ctx context.Context, cfg *config.Config, store *directory.Store) error {
	if err := store.CreateSchema(ctx); err != nil {
		return err
	}

	seed := cfg.Load.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gen := generate.New(seed, generate.WithTargetLetter(cfg.Load.TargetLetter))
	loader := load.NewLoader(store, cfg.Load.BatchSize)

	fmt.Printf("\n[INFO] Generating %d random people...\n\n", cfg.Load.GenerateCount)
	start := time.Now()
	result, err := loader.Load(ctx, gen.Generate(cfg.Load.GenerateCount))
	if err != nil {
		fmt.Printf("\n[ERROR] Load aborted after %d rows (%d batches, session %s)\n\n",
			result.Inserted, result.Batches, result.SessionID)
		return err
	}
	fmt.Printf("[INFO] Loaded %d rows in %d batches (session %s, %.2fs)\n",
		result.Inserted, result.Batches, result.SessionID, time.Since(start).Seconds())

	fmt.Printf("\n[INFO] Generating %d male people with last names starting with %q...\n\n",
		cfg.Load.TargetedCount, cfg.Load.TargetLetter)
	targeted, err := loader.Load(ctx, gen.GenerateTargeted(cfg.Load.TargetedCount))
	if err != nil {
		fmt.Printf("\n[ERROR] Load aborted after %d rows (session %s)\n\n",
			targeted.Inserted, targeted.SessionID)
		return err
	}
	fmt.Printf("[INFO] Loaded %d targeted rows (session %s)\n", targeted.Inserted, targeted.SessionID)

	total, err := store.RowCount(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("\n[SUCCESS] Data generation completed successfully (%d rows total)\n\n", total)
	return nil
}

func runQueryFilter(ctx context.Context, cfg *config.Config, store *directory.Store) error {
	runner := bench.NewRunner(store)
	m, err := runner.Benchmark(ctx, targetPredicate(cfg))
	if err != nil {
		return err
	}

	printMeasurement(cfg, m)
	fmt.Printf("\n[INFO] Query executed in %.4f seconds\n", m.Elapsed.Seconds())
	fmt.Println(strings.Repeat("=", 80) + "\n")
	return nil
}

func runOptimizeAndCompare(ctx context.Context, cfg *config.Config, store *directory.Store) error {
	fmt.Printf("\n[TEST] Running query before optimization...\n")
	runner := bench.NewRunner(store)
	report, err := runner.CompareBeforeAfter(ctx, targetPredicate(cfg), "gender", "full_name")
	if err != nil {
		return err
	}
	fmt.Printf("[SUCCESS] Optimization completed (created index on gender and full_name)\n")

	fmt.Println("\n" + strings.Repeat("=", 50))
	fmt.Println(center("OPTIMIZATION RESULTS", 50))
	fmt.Println(strings.Repeat("=", 50))
	fmt.Printf("Rows:    %d\n", len(report.After.Results))
	fmt.Printf("Before:  %.4f seconds\n", report.Before.Elapsed.Seconds())
	fmt.Printf("After:   %.4f seconds\n", report.After.Elapsed.Seconds())
	if report.Improvement.Valid {
		fmt.Printf("Improvement: %.2f%% faster\n", report.Improvement.Percent)
	} else {
		fmt.Printf("Improvement: undefined (query too fast or no rows)\n")
	}
	fmt.Println(strings.Repeat("=", 50) + "\n")
	return nil
}

func runResetSchema(ctx context.Context, store *directory.Store, in io.Reader) error {
	fmt.Printf("\n[WARNING] Are you sure you want to clear the database? (y/n): ")
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		// A final answer without a trailing newline still counts; only a
		// read failure or empty input cancels.
		if err := scanner.Err(); err != nil {
			return errors.NewArgumentError(errors.CodeInvalidArgument, "could not read confirmation")
		}
		fmt.Printf("\n[INFO] Operation cancelled\n\n")
		return nil
	}
	if strings.ToLower(strings.TrimSpace(scanner.Text())) != "y" {
		fmt.Printf("\n[INFO] Operation cancelled\n\n")
		return nil
	}

	if err := store.ResetSchema(ctx); err != nil {
		return err
	}
	fmt.Printf("\n[WARNING] Database has been cleared\n\n")
	return nil
}

func runSnapshot(ctx context.Context, cfg *config.Config, store *directory.Store) error {
	objects, err := newObjectStorage(ctx, cfg)
	if err != nil {
		return err
	}

	archiver := snapshot.NewArchiver(objects, cfg.Snapshot.WorkDir)
	manifest, err := archiver.Export(ctx, store)
	if err != nil {
		return err
	}

	fmt.Printf("\n[SUCCESS] Snapshot %s exported\n", manifest.SnapshotID)
	fmt.Printf("  Object:     %s\n", manifest.ObjectPath)
	fmt.Printf("  Rows:       %d\n", manifest.RowCount)
	fmt.Printf("  Raw:        %d bytes\n", manifest.RawBytes)
	fmt.Printf("  Compressed: %d bytes\n\n", manifest.CompressedBytes)
	return nil
}

// buildPerson validates add-one arguments into a person record.
func buildPerson(fullName, birthDate, gender string) (p types.Person, err error) {
	g, err := types.ParseGender(gender)
	if err != nil {
		return p, err
	}
	p.FullName = strings.TrimSpace(fullName)
	p.BirthDate = birthDate
	p.Gender = g
	if err := p.Validate(); err != nil {
		return p, err
	}
	return p, nil
}

func targetPredicate(cfg *config.Config) directory.Predicate {
	return directory.Predicate{
		Gender:     types.GenderMale,
		NamePrefix: cfg.Load.TargetLetter,
	}
}

func newObjectStorage(ctx context.Context, cfg *config.Config) (storage.ObjectStorage, error) {
	switch cfg.Storage.Type {
	case "s3":
		s3cfg := storage.DefaultS3Config()
		if cfg.Storage.S3.Region != "" {
			s3cfg.Region = cfg.Storage.S3.Region
		}
		s3cfg.Endpoint = cfg.Storage.S3.Endpoint
		return storage.NewS3Storage(ctx, cfg.Storage.S3.Bucket, s3cfg)
	default:
		return storage.NewLocalStorage(cfg.Storage.Path)
	}
}

func printMeasurement(cfg *config.Config, m bench.Measurement) {
	printHeader(fmt.Sprintf("MALE PEOPLE WITH '%s' SURNAMES", cfg.Load.TargetLetter))
	today := time.Now()
	limit := len(m.Results)
	if limit > 10 {
		limit = 10
	}
	for _, p := range m.Results[:limit] {
		printPersonRow(p.FullName, p.BirthDate, string(p.Gender), today)
	}
	if len(m.Results) > 10 {
		fmt.Printf("... and %d more records\n", len(m.Results)-10)
	}
	fmt.Printf("\n[INFO] %d records matched\n", len(m.Results))
}

func printHeader(title string) {
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println(center(title, 80))
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("%-40s | %-12s | %-6s | %s\n", "FULL NAME", "BIRTH DATE", "GENDER", "AGE")
	fmt.Println(strings.Repeat("-", 80))
}

func printPersonRow(fullName, birthDate, gender string, today time.Time) {
	age := "?"
	p := types.Person{FullName: fullName, BirthDate: birthDate}
	if years, err := p.Age(today); err == nil {
		age = fmt.Sprintf("%d", years)
	}
	fmt.Printf("%-40s | %-12s | %-6s | %s\n", fullName, birthDate, gender, age)
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	pad := (width - len(s)) / 2
	return strings.Repeat(" ", pad) + s
}

// loadConfig merges file, environment, and flag configuration, flags last.
func loadConfig(configFile, dataDir string, count int, seed int64, batchSize int) (*config.Config, error) {
	var cfg *config.Config
	var err error

	if configFile != "" {
		cfg, err = config.LoadFromFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file: %w", err)
		}
	} else {
		cfg = config.DefaultConfig()
	}

	config.LoadFromEnv(cfg)

	if dataDir != "" {
		cfg.DataDir = dataDir
	}
	if count > 0 {
		cfg.Load.GenerateCount = count
	}
	if seed != 0 {
		cfg.Load.Seed = seed
	}
	if batchSize > 0 {
		cfg.Load.BatchSize = batchSize
	}

	cfg.Resolve()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
