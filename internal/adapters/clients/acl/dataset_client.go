package acl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/jsamuelsen/authorclock/internal/adapters/clients"
	"github.com/jsamuelsen/authorclock/internal/domain"
	"github.com/jsamuelsen/authorclock/internal/platform/logging"
)

// errEmptyDataset is returned for a dataset with no records.
var errEmptyDataset = errors.New("dataset contains no quotes")

// datasetRecord is one entry of the quote dataset JSON array.
type datasetRecord struct {
	Time       string `json:"time"       validate:"required,len=5,datetime=15:04"`
	Quote      string `json:"quote"      validate:"required,nonblank"`
	TimeString string `json:"timeString"`
	Title      string `json:"title"`
	Author     string `json:"author"`
}

// DatasetClientConfig contains configuration for the dataset client.
type DatasetClientConfig struct {
	// Source is an http(s) URL or a local file path.
	Source string

	// Client fetches http(s) sources. Its BaseURL is the dataset URL.
	// Required for http(s) sources, ignored for files.
	Client *clients.Client

	// Logger is the structured logger.
	Logger *slog.Logger
}

// DatasetClient loads the quote dataset. It implements ports.DatasetLoader
// and ports.HealthChecker.
type DatasetClient struct {
	source   string
	remote   *Remote
	validate *validator.Validate
	logger   *slog.Logger

	mu      sync.RWMutex
	loadErr error
}

// NewDatasetClient creates a dataset client.
// Panics if Source is empty, or if Source is a URL and Client is nil.
func NewDatasetClient(cfg DatasetClientConfig) *DatasetClient {
	if cfg.Source == "" {
		panic("DatasetClient: Source is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	d := &DatasetClient{
		source:   cfg.Source,
		validate: newRecordValidator(),
		logger:   logger.With(slog.String("component", "acl.DatasetClient")),
		loadErr:  errors.New("dataset not loaded"),
	}

	if IsRemoteSource(cfg.Source) {
		if cfg.Client == nil {
			panic("DatasetClient: Client is required for remote sources")
		}

		base := NewRemote(cfg.Client, "dataset")
		d.remote = &base
	}

	return d
}

// IsRemoteSource reports whether source is fetched over http(s).
func IsRemoteSource(source string) bool {
	lower := strings.ToLower(source)

	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// Load fetches, decodes and validates every record in dataset order.
// Any failure is returned as a domain.DatasetLoadError.
func (d *DatasetClient) Load(ctx context.Context) ([]domain.Quote, error) {
	quotes, err := d.load(ctx)

	d.mu.Lock()
	d.loadErr = err
	d.mu.Unlock()

	if err != nil {
		d.logger.ErrorContext(ctx, "dataset load failed",
			slog.String("source", d.source),
			slog.Any("error", err),
		)

		return nil, domain.NewDatasetLoadError(d.source, err)
	}

	d.logger.InfoContext(ctx, "dataset loaded",
		slog.String("source", d.source),
		slog.Int("quotes", len(quotes)),
	)

	if dups := duplicateTimes(quotes); len(dups) > 0 {
		d.logger.WarnContext(ctx, "dataset has several quotes for the same minute, the first is used",
			slog.Any("times", dups),
		)
	}

	return quotes, nil
}

// duplicateTimes returns each time that appears more than once, in dataset order.
func duplicateTimes(quotes []domain.Quote) []string {
	seen := make(map[string]int, len(quotes))

	var dups []string

	for _, q := range quotes {
		seen[q.Time]++
		if seen[q.Time] == 2 {
			dups = append(dups, q.Time)
		}
	}

	return dups
}

func (d *DatasetClient) load(ctx context.Context) ([]domain.Quote, error) {
	body, err := d.open(ctx)
	if err != nil {
		return nil, err
	}

	records, err := DecodeResponse[[]datasetRecord](body)
	if err != nil {
		return nil, err
	}

	logging.Trace(ctx, d.logger, "decoded dataset", slog.Int("records", len(*records)))

	if len(*records) == 0 {
		return nil, errEmptyDataset
	}

	return TranslateSlice(*records, d.translate)
}

func (d *DatasetClient) open(ctx context.Context) (io.ReadCloser, error) {
	if d.remote != nil {
		return d.remote.Get(ctx, "", "load dataset")
	}

	f, err := os.Open(d.source)
	if err != nil {
		return nil, fmt.Errorf("opening dataset: %w", err)
	}

	return f, nil
}

// translate validates a record and converts it to a domain Quote.
func (d *DatasetClient) translate(rec *datasetRecord) (domain.Quote, error) {
	if err := d.validate.Struct(rec); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]

			return domain.Quote{}, domain.NewValidationErrorWithValue(fe.Field(), recordMessage(fe), fe.Value())
		}

		return domain.Quote{}, fmt.Errorf("validating record: %w", err)
	}

	return domain.Quote{
		Time:       rec.Time,
		Text:       rec.Quote,
		TimeString: rec.TimeString,
		Title:      rec.Title,
		Author:     rec.Author,
	}, nil
}

// Name implements ports.HealthChecker.
func (d *DatasetClient) Name() string {
	return "dataset"
}

// Check implements ports.HealthChecker. It reports the outcome of the last load.
func (d *DatasetClient) Check(_ context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()

	return d.loadErr
}

// newRecordValidator reports fields by their JSON names.
func newRecordValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")

		return name
	})
	_ = v.RegisterValidation("nonblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})

	return v
}

func recordMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "nonblank":
		return "is required"
	case "len", "datetime":
		return "must be HH:MM"
	default:
		return "failed " + fe.Tag()
	}
}
