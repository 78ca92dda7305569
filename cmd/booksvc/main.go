package main

import (
	"context"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/getsentry/sentry-go"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"

	"maktaba/app/internal/config"
	appdb "maktaba/app/internal/db"
	"maktaba/app/internal/embedding"
	"maktaba/app/internal/extract"
	"maktaba/app/internal/ingest"
	"maktaba/app/internal/library"
	applog "maktaba/app/internal/log"
	"maktaba/app/internal/metric"
	"maktaba/app/internal/ocr"
	"maktaba/app/internal/search"
	"maktaba/app/internal/storage"
	"maktaba/app/internal/translate"
)

const usage = `usage: booksvc <command> [flags]

commands:
  addbook      create a book record
  books        list books
  ingest       ingest document files into a book
  search       semantic search
  msearch      multilingual semantic search (paginated)
  textsearch   substring search over original text
  similar      pages similar to a reference page
  translate    translate a stored page's text
  readpage     read a page image with the vision model
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		fmt.Fprint(os.Stderr, usage)
		return eris.New("no command given")
	}

	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return eris.Wrap(err, "failure loading configuration")
	}

	logger, err := applog.NewLogger(cfg.LogLevel)
	if err != nil {
		return eris.Wrap(err, "failure initialising logger")
	}

	sentryHub, flush, err := applog.InitSentry(logger, applog.SentrySettings{
		DSN:         cfg.SentryDSN,
		Environment: cfg.Environment,
	})
	if err != nil {
		return eris.Wrap(err, "failure initialising sentry")
	}
	defer flush()

	app, err := buildApp(ctx, cfg, logger, sentryHub)
	if err != nil {
		return err
	}
	defer app.close(logger)

	return app.dispatch(ctx, args[0], args[1:])
}

// application holds the wired service graph for one command invocation.
type application struct {
	cfg       *config.Config
	logger    *logrus.Logger
	dbCloser  func() error
	library   library.Service
	ingestor  *ingest.Orchestrator
	searcher  *search.Service
	translate *translate.Service
}

func buildApp(ctx context.Context, cfg *config.Config, logger *logrus.Logger, sentryHub *sentry.Hub) (*application, error) {
	dbConn, err := appdb.Open(appdb.Options{URL: cfg.DatabaseURL})
	if err != nil {
		return nil, eris.Wrap(err, "opening database")
	}

	if err := library.Migrate(ctx, dbConn, logger); err != nil {
		return nil, eris.Wrap(err, "running migrations")
	}

	metrics := metric.New(prometheus.DefaultRegisterer)

	repository, err := library.NewRepository(dbConn, logger)
	if err != nil {
		return nil, eris.Wrap(err, "building library repository")
	}

	provider, err := embedding.NewProvider(ctx, embedding.ProviderConfig{
		Provider:     cfg.EmbeddingProvider,
		Model:        cfg.EmbeddingModel,
		Dimension:    cfg.EmbeddingDimension,
		OpenAIAPIKey: cfg.OpenAIAPIKey,
		GoogleAPIKey: cfg.GoogleAPIKey,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building embedding provider")
	}

	embedder, err := embedding.NewAdapter(embedding.AdapterOptions{
		Provider:  provider,
		Dimension: cfg.EmbeddingDimension,
		Logger:    logger,
		Metrics:   metrics,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building embedding adapter")
	}

	objectStore, err := storage.NewObjectStore(ctx, storage.Config{
		Driver:   cfg.StorageDriver,
		Path:     cfg.StoragePath,
		S3Bucket: cfg.S3Bucket,
		S3Region: cfg.S3Region,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building object store")
	}

	libraryService, err := library.NewService(library.ServiceOptions{
		Repository: repository,
		Embedder:   embedder,
		Store:      objectStore,
		Logger:     logger,
		SentryHub:  sentryHub,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building library service")
	}

	recognizer, err := ocr.NewTesseractRecognizer(cfg.OCRLanguages)
	if err != nil {
		return nil, eris.Wrap(err, "building ocr recognizer")
	}

	ocrEngine, err := ocr.NewEngine(ocr.EngineOptions{
		Recognizer: recognizer,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building ocr engine")
	}

	extractor, err := extract.NewEngine(extract.EngineOptions{
		Recognizer: ocrEngine,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building extraction engine")
	}

	orchestrator, err := ingest.NewOrchestrator(ingest.Options{
		Repository: repository,
		Extractor:  extractor,
		Embedder:   embedder,
		Store:      objectStore,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building ingestion orchestrator")
	}

	searchService, err := search.NewService(search.Options{
		Repository: repository,
		Embedder:   embedder,
		Logger:     logger,
		Metrics:    metrics,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building search service")
	}

	translator, err := translate.NewTranslator(ctx, translate.Config{
		Provider: cfg.TranslationProvider,
		Model:    cfg.TranslationModel,
		APIKey:   translationKey(cfg),
	})
	if err != nil {
		return nil, eris.Wrap(err, "building translator")
	}

	translateService, err := translate.NewService(translate.ServiceOptions{
		Translator: translator,
		Pages:      libraryService,
		Logger:     logger,
	})
	if err != nil {
		return nil, eris.Wrap(err, "building translation service")
	}

	return &application{
		cfg:       cfg,
		logger:    logger,
		dbCloser:  func() error { return appdb.Close(dbConn) },
		library:   libraryService,
		ingestor:  orchestrator,
		searcher:  searchService,
		translate: translateService,
	}, nil
}

func translationKey(cfg *config.Config) string {
	if cfg.TranslationProvider == "openai" {
		return cfg.OpenAIAPIKey
	}
	return cfg.GoogleAPIKey
}

func (a *application) close(logger *logrus.Logger) {
	if a.dbCloser == nil {
		return
	}
	if err := a.dbCloser(); err != nil {
		logger.WithError(err).Error("closing database")
	}
}

func (a *application) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "addbook":
		return a.cmdAddBook(ctx, args)
	case "books":
		return a.cmdBooks(ctx)
	case "ingest":
		return a.cmdIngest(ctx, args)
	case "search":
		return a.cmdSearch(ctx, args)
	case "msearch":
		return a.cmdMultilingualSearch(ctx, args)
	case "textsearch":
		return a.cmdTextSearch(ctx, args)
	case "similar":
		return a.cmdSimilar(ctx, args)
	case "translate":
		return a.cmdTranslate(ctx, args)
	case "readpage":
		return a.cmdReadPage(ctx, args)
	default:
		fmt.Fprint(os.Stderr, usage)
		return eris.Errorf("unknown command: %s", command)
	}
}

func (a *application) cmdAddBook(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("addbook", flag.ContinueOnError)
	title := flags.String("title", "", "book title")
	author := flags.String("author", "", "book author")
	language := flags.String("language", "ar", "book language code")
	description := flags.String("description", "", "book description")
	if err := flags.Parse(args); err != nil {
		return err
	}

	book := &library.Book{
		Title:       *title,
		Author:      *author,
		Language:    *language,
		Description: *description,
	}
	if err := a.library.CreateBook(ctx, book); err != nil {
		return err
	}

	fmt.Printf("created book %d: %s\n", book.ID, book.Title)
	return nil
}

func (a *application) cmdBooks(ctx context.Context) error {
	books, err := a.library.ListBooks(ctx)
	if err != nil {
		return err
	}

	for _, book := range books {
		fmt.Printf("%d\t%s\t%s\n", book.ID, book.Title, book.Author)
	}
	return nil
}

func (a *application) cmdIngest(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("ingest", flag.ContinueOnError)
	bookID := flags.Uint("book", 0, "target book id")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *bookID == 0 {
		return eris.New("-book is required")
	}
	if flags.NArg() == 0 {
		return eris.New("at least one file path is required")
	}

	files := make([]ingest.File, 0, flags.NArg())
	for _, path := range flags.Args() {
		data, err := os.ReadFile(path)
		if err != nil {
			return eris.Wrapf(err, "reading %s", path)
		}
		files = append(files, ingest.File{
			Filename:    filepath.Base(path),
			ContentType: contentTypeFor(path),
			Data:        data,
		})
	}

	results, err := a.ingestor.Ingest(ctx, *bookID, files)
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Status == ingest.StatusSuccess {
			fmt.Printf("%s: %d pages\n", result.Filename, len(result.Pages))
		} else {
			fmt.Printf("%s: error: %s\n", result.Filename, result.Error)
		}
	}
	return nil
}

func (a *application) cmdSearch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("search", flag.ContinueOnError)
	query := flags.String("query", "", "search query")
	limit := flags.Int("limit", 0, "maximum results")
	threshold := flags.Float64("threshold", math.NaN(), "minimum similarity (NaN selects the default)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return eris.New("-query is required")
	}

	callCtx, cancel := a.providerContext(ctx)
	defer cancel()

	results, err := a.searcher.Semantic(callCtx, *query, *limit, *threshold)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func (a *application) cmdMultilingualSearch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("msearch", flag.ContinueOnError)
	query := flags.String("query", "", "search query")
	language := flags.String("lang", "", "query language (en|id), auto-detected when empty")
	limit := flags.Int("limit", 0, "maximum results per page")
	offset := flags.Int("offset", 0, "result offset")
	threshold := flags.Float64("threshold", math.NaN(), "minimum similarity (NaN selects the default)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return eris.New("-query is required")
	}

	callCtx, cancel := a.providerContext(ctx)
	defer cancel()

	page, err := a.searcher.Multilingual(callCtx, *query, *language, *limit, *offset, *threshold)
	if err != nil {
		return err
	}

	printResults(page.Results)
	fmt.Printf("total: %d, has more: %t\n", page.Total, page.HasMore)
	return nil
}

func (a *application) cmdTextSearch(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("textsearch", flag.ContinueOnError)
	query := flags.String("query", "", "substring to find")
	limit := flags.Int("limit", 0, "maximum results")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *query == "" {
		return eris.New("-query is required")
	}

	results, err := a.searcher.Text(ctx, *query, *limit)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func (a *application) cmdSimilar(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("similar", flag.ContinueOnError)
	pageID := flags.Uint("page", 0, "reference page id")
	limit := flags.Int("limit", 0, "maximum results")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *pageID == 0 {
		return eris.New("-page is required")
	}

	results, err := a.searcher.SimilarPages(ctx, *pageID, *limit)
	if err != nil {
		return err
	}

	printResults(results)
	return nil
}

func (a *application) cmdTranslate(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("translate", flag.ContinueOnError)
	bookID := flags.Uint("book", 0, "book id")
	pageNumber := flags.Int("page", 0, "page number")
	targetCode := flags.String("target", "en", "target language (en|id)")
	imagePath := flags.String("image", "", "translate from a page image instead of stored text")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *bookID == 0 || *pageNumber == 0 {
		return eris.New("-book and -page are required")
	}

	target, err := translate.ParseTarget(*targetCode)
	if err != nil {
		return err
	}

	callCtx, cancel := a.providerContext(ctx)
	defer cancel()

	var page *library.Page
	if *imagePath != "" {
		data, readErr := os.ReadFile(*imagePath)
		if readErr != nil {
			return eris.Wrapf(readErr, "reading %s", *imagePath)
		}
		page, err = a.translate.TranslatePageImage(callCtx, *bookID, *pageNumber, data, target)
	} else {
		page, err = a.translate.TranslatePage(callCtx, *bookID, *pageNumber, target)
	}
	if err != nil {
		return err
	}

	translation := page.EnTranslation
	if target == translate.TargetIndonesian {
		translation = page.IDTranslation
	}
	fmt.Println(translation)
	return nil
}

// cmdReadPage runs the vision-model OCR path over a single page image. Used
// for degraded scans where the local engine underperforms.
func (a *application) cmdReadPage(ctx context.Context, args []string) error {
	flags := flag.NewFlagSet("readpage", flag.ContinueOnError)
	imagePath := flags.String("image", "", "page image path")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *imagePath == "" {
		return eris.New("-image is required")
	}

	data, err := os.ReadFile(*imagePath)
	if err != nil {
		return eris.Wrapf(err, "reading %s", *imagePath)
	}

	reader, err := ocr.NewVisionReader(ctx, a.cfg.GoogleAPIKey, a.cfg.VisionOCRModel)
	if err != nil {
		return eris.Wrap(err, "building vision reader")
	}

	callCtx, cancel := a.providerContext(ctx)
	defer cancel()

	text, err := reader.ReadPage(callCtx, data)
	if err != nil {
		return err
	}

	fmt.Println(text)
	return nil
}

// providerContext bounds a single external provider call.
func (a *application) providerContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, a.cfg.ProviderTimeout)
}

func printResults(results []search.Result) {
	for _, result := range results {
		fmt.Printf("[%.2f] %s p.%d: %s\n", result.SimilarityScore, result.BookTitle, result.PageNumber, result.Snippet)
	}
}

// contentTypeFor maps a file path to the upload content types the ingestion
// allow-list expects.
func contentTypeFor(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		return "text/plain"
	case ".md", ".markdown":
		return "text/markdown"
	case ".pdf":
		return "application/pdf"
	case ".doc":
		return "application/msword"
	case ".docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	default:
		return "application/octet-stream"
	}
}
