package service

import (
	"context"
	"iter"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"employeedb/internal/batch"
	"employeedb/internal/codec"
	"employeedb/internal/domain"
	"employeedb/internal/generator"
	"employeedb/internal/repository"
)

// ErrNoEmployees is returned when the filter selects nothing to compress or export
var ErrNoEmployees = errors.New("no employees match the filter")

// QueryPlanner is implemented by repositories able to explain the filter query
type QueryPlanner interface {
	QueryPlan(ctx context.Context, f domain.Filter) ([]string, error)
}

// Options configures an EmployeeService
type Options struct {
	BatchSize int
	Filter    domain.Filter
	// Exporter writes the export file; defaults to gzip JSON lines
	Exporter codec.Exporter
	// Now supplies the reference date for ages; defaults to time.Now
	Now func() time.Time
}

// EmployeeService runs the directory's operating modes
type EmployeeService struct {
	repo      repository.Repository
	codec     *codec.Codec
	exporter  codec.Exporter
	eventBus  *EventBus
	batchSize int
	filter    domain.Filter
	now       func() time.Time
}

// NewEmployeeService creates a new employee service
func NewEmployeeService(repo repository.Repository, c *codec.Codec, eventBus *EventBus, opts Options) *EmployeeService {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Filter.Gender == "" {
		opts.Filter = domain.DefaultFilter
	}
	if opts.Exporter == nil {
		opts.Exporter = codec.NewJSONLinesExporter()
	}
	return &EmployeeService{
		repo:      repo,
		codec:     c,
		exporter:  opts.Exporter,
		eventBus:  eventBus,
		batchSize: opts.BatchSize,
		filter:    opts.Filter,
		now:       opts.Now,
	}
}

// Filter returns the filter used by the query and compression modes
func (s *EmployeeService) Filter() domain.Filter {
	return s.filter
}

// CreateTable creates the employees schema
func (s *EmployeeService) CreateTable(ctx context.Context) error {
	if err := s.repo.CreateSchema(ctx); err != nil {
		return err
	}
	s.eventBus.Publish(Event{Type: EventSchemaCreated})
	return nil
}

// CreateEmployee validates raw input and stores it. inserted is false when
// an employee with the same name and birth date already exists.
func (s *EmployeeService) CreateEmployee(ctx context.Context, fullName, birthDate, gender string) (e domain.Employee, inserted bool, err error) {
	if e, err = domain.ParseEmployee(fullName, birthDate, gender); err != nil {
		return e, false, err
	}
	if inserted, err = s.repo.InsertOne(ctx, e); err != nil {
		return e, false, errors.WithMessagef(err, "saving %q", e.FullName)
	}

	if inserted {
		s.eventBus.Publish(Event{Type: EventEmployeeInserted, Payload: e})
	} else {
		s.eventBus.Publish(Event{Type: EventEmployeeDuplicate, Payload: e})
	}
	return e, inserted, nil
}

// EmployeeView is an employee together with its current age
type EmployeeView struct {
	domain.Employee
	Age int
}

// ListEmployees returns the deduplicated, name-sorted directory with ages
func (s *EmployeeService) ListEmployees(ctx context.Context) ([]EmployeeView, error) {
	employees, err := s.repo.FetchUniqueSorted(ctx)
	if err != nil {
		return nil, err
	}

	ref := s.now()
	views := make([]EmployeeView, len(employees))
	for i, e := range employees {
		views[i] = EmployeeView{Employee: e, Age: e.Age(ref)}
	}
	return views, nil
}

// BulkFillResult counts rows written by BulkFill
type BulkFillResult struct {
	Primary  int64
	Special  int64
	Duration time.Duration
}

// BulkFill inserts primary generated employees followed by special
// employees matching the default filter.
func (s *EmployeeService) BulkFill(ctx context.Context, gen *generator.Generator, primary, special int) (BulkFillResult, error) {
	var result BulkFillResult
	start := time.Now()

	var err error
	if result.Primary, err = s.load(ctx, gen.Stream(primary)); err != nil {
		return result, errors.WithMessage(err, "loading primary rows")
	}
	log.WithFields(log.Fields{"requested": primary, "inserted": result.Primary}).Info("loaded primary rows")

	if result.Special, err = s.load(ctx, gen.MaleSurnameF(special)); err != nil {
		return result, errors.WithMessage(err, "loading special rows")
	}
	log.WithFields(log.Fields{"requested": special, "inserted": result.Special}).Info("loaded special rows")

	result.Duration = time.Since(start)
	s.eventBus.Publish(Event{Type: EventBulkLoaded, Payload: result})
	return result, nil
}

// load overlaps generation with insertion: a producer goroutine drains seq
// into a channel while the repository consumes it in batches.
func (s *EmployeeService) load(ctx context.Context, seq iter.Seq[domain.Employee]) (int64, error) {
	group, gctx := errgroup.WithContext(ctx)

	size := s.batchSize
	if size <= 0 {
		size = 1
	}
	ch := make(chan domain.Employee, size)

	group.Go(func() error {
		defer close(ch)
		for e := range seq {
			select {
			case ch <- e:
			case <-gctx.Done():
				return gctx.Err()
			}
		}
		return nil
	})

	var inserted int64
	group.Go(func() error {
		var err error
		inserted, err = s.repo.BulkInsert(gctx, batch.FromChan(ch), s.batchSize)
		return err
	})

	err := group.Wait()
	return inserted, err
}

// FilterResult is a timed run of the filter query
type FilterResult struct {
	Employees []domain.Employee
	Duration  time.Duration
}

// RunFilter times FetchByGenderPrefix with the service's filter
func (s *EmployeeService) RunFilter(ctx context.Context) (FilterResult, error) {
	start := time.Now()
	employees, err := s.repo.FetchByGenderPrefix(ctx, s.filter)
	if err != nil {
		return FilterResult{}, err
	}
	return FilterResult{Employees: employees, Duration: time.Since(start)}, nil
}

// OptimizeResult compares the filter query before and after indexing
type OptimizeResult struct {
	Before FilterResult
	After  FilterResult
	// Plan is the query plan after indexing, when the repository can explain it
	Plan []string
}

// Improvement is the time saved by the index (negative if slower)
func (r OptimizeResult) Improvement() time.Duration {
	return r.Before.Duration - r.After.Duration
}

// Optimize times the filter query, creates the filter index, and times it again
func (s *EmployeeService) Optimize(ctx context.Context) (OptimizeResult, error) {
	var result OptimizeResult
	var err error

	if result.Before, err = s.RunFilter(ctx); err != nil {
		return result, errors.WithMessage(err, "measuring before index")
	}
	if err = s.repo.CreateFilterIndex(ctx); err != nil {
		return result, err
	}
	s.eventBus.Publish(Event{Type: EventFilterIndexCreated})

	if result.After, err = s.RunFilter(ctx); err != nil {
		return result, errors.WithMessage(err, "measuring after index")
	}
	if planner, ok := s.repo.(QueryPlanner); ok {
		if result.Plan, err = planner.QueryPlan(ctx, s.filter); err != nil {
			return result, err
		}
	}
	return result, nil
}

// ExportResult describes a JSON lines export
type ExportResult struct {
	Path            string
	Records         int
	PlainBytes      int64
	CompressedBytes int64
}

// SavedPercent is the share of space saved by compression
func (r ExportResult) SavedPercent() float64 {
	return savedPercent(r.PlainBytes, r.CompressedBytes)
}

// Export ensures the filter index, then writes the filtered employees with
// their ages to path on fs using the configured Exporter. A failed write
// leaves no file behind.
func (s *EmployeeService) Export(ctx context.Context, fs afero.Fs, path string) (ExportResult, error) {
	result := ExportResult{Path: path}

	employees, err := s.indexedSubset(ctx)
	if err != nil {
		return result, err
	}

	ref := s.now()
	payloads := make([]codec.Payload, len(employees))
	for i, e := range employees {
		payloads[i] = codec.NewPayload(e, ref)
	}

	if err := fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return result, errors.WithMessagef(err, "creating export directory for %s", path)
	}
	f, err := fs.Create(path)
	if err != nil {
		return result, errors.WithMessagef(err, "creating %s", path)
	}

	stats, err := s.exporter.Export(payloads, f)
	if closeErr := f.Close(); err == nil && closeErr != nil {
		err = closeErr
	}
	if err != nil {
		if rmErr := fs.Remove(path); rmErr != nil {
			log.WithFields(log.Fields{"path": path, "err": rmErr}).Warn("failed to remove partial export")
		}
		return result, errors.WithMessagef(err, "writing %s %s", s.exporter.Format(), path)
	}

	info, err := fs.Stat(path)
	if err != nil {
		return result, errors.WithMessagef(err, "stat of %s", path)
	}

	result.Records = stats.Records
	result.PlainBytes = stats.PlainBytes
	result.CompressedBytes = info.Size()
	s.eventBus.Publish(Event{Type: EventExported, Payload: result})
	return result, nil
}

// CompressedResult compares the plain and compressed representations of the
// filtered subset
type CompressedResult struct {
	Inserted int64
	// PlainBytes is the total uncompressed payload size
	PlainBytes int64
	Stats      domain.CompressedStats
	// MainDuration times the filter query on the primary table
	MainDuration time.Duration
	// CompressedDuration times the compressed query plus payload decoding
	CompressedDuration time.Duration
	Restored           []codec.Payload
}

// SavedPercent is the share of payload space saved by compression
func (r CompressedResult) SavedPercent() float64 {
	return savedPercent(r.PlainBytes, r.Stats.PayloadBytes)
}

// RefreshCompressed rebuilds the compressed table from the filtered subset
// and times reads from both representations.
func (s *EmployeeService) RefreshCompressed(ctx context.Context) (CompressedResult, error) {
	var result CompressedResult

	employees, err := s.indexedSubset(ctx)
	if err != nil {
		return result, err
	}
	if err := s.repo.CreateCompressedTable(ctx); err != nil {
		return result, err
	}

	ref := s.now()
	rows := make([]domain.CompressedEmployee, len(employees))
	for i, e := range employees {
		row, plain, err := s.codec.CompressEmployee(e, ref)
		if err != nil {
			return result, errors.WithMessagef(err, "compressing %q", e.FullName)
		}
		rows[i] = row
		result.PlainBytes += int64(plain)
	}

	if result.Inserted, err = s.repo.ReplaceCompressedRows(ctx, rows); err != nil {
		return result, err
	}

	start := time.Now()
	if _, err := s.repo.FetchByGenderPrefix(ctx, s.filter); err != nil {
		return result, err
	}
	result.MainDuration = time.Since(start)

	start = time.Now()
	subset, err := s.repo.FetchCompressedSubset(ctx, s.filter)
	if err != nil {
		return result, err
	}
	result.Restored = make([]codec.Payload, len(subset))
	for i, row := range subset {
		if result.Restored[i], err = s.codec.Decode(row.Payload); err != nil {
			return result, errors.WithMessagef(err, "decoding %q", row.FullName)
		}
	}
	result.CompressedDuration = time.Since(start)

	if result.Stats, err = s.repo.CompressedTableStats(ctx); err != nil {
		return result, err
	}

	s.eventBus.Publish(Event{Type: EventCompressedRefreshed, Payload: result.Stats})
	return result, nil
}

// indexedSubset ensures the filter index and returns the filtered employees,
// or ErrNoEmployees when there are none.
func (s *EmployeeService) indexedSubset(ctx context.Context) ([]domain.Employee, error) {
	if err := s.repo.CreateFilterIndex(ctx); err != nil {
		return nil, err
	}
	employees, err := s.repo.FetchByGenderPrefix(ctx, s.filter)
	if err != nil {
		return nil, err
	}
	if len(employees) == 0 {
		return nil, errors.WithMessage(ErrNoEmployees, s.filter.String())
	}
	return employees, nil
}

func savedPercent(plain, compressed int64) float64 {
	if plain == 0 {
		return 0
	}
	return (1 - float64(compressed)/float64(plain)) * 100
}
