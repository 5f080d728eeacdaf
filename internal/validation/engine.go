// Package validation decides whether a spreadsheet may be imported as a given file kind.
package validation

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/invigilation-api/internal/models"
	"github.com/noah-isme/invigilation-api/internal/schema"
	"github.com/noah-isme/invigilation-api/internal/sheet"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
)

// DefaultTimeTolerance is the number of unparseable time values accepted before the time check fails.
const DefaultTimeTolerance = 5

var allowedExtensions = map[string]struct{}{
	".xlsx": {},
	".xls":  {},
}

// Observer is notified once per finished validation.
type Observer func(kind string, verdict models.ValidationVerdict)

// Option customises an Engine.
type Option func(*Engine)

// WithTimeTolerance overrides DefaultTimeTolerance. Negative values are ignored.
func WithTimeTolerance(n int) Option {
	return func(e *Engine) {
		if n >= 0 {
			e.tolerance = n
		}
	}
}

// WithLogger sets the engine logger.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// WithObserver registers a hook called with every verdict.
func WithObserver(o Observer) Option {
	return func(e *Engine) {
		e.observer = o
	}
}

// Engine validates spreadsheets against a schema catalog. It holds no mutable state.
type Engine struct {
	catalog   *schema.Catalog
	reader    *sheet.Reader
	tolerance int
	logger    *zap.Logger
	observer  Observer
}

// NewEngine constructs an Engine over catalog.
func NewEngine(catalog *schema.Catalog, opts ...Option) *Engine {
	e := &Engine{
		catalog:   catalog,
		reader:    sheet.NewReader(),
		tolerance: DefaultTimeTolerance,
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Catalog exposes the catalog the engine validates against.
func (e *Engine) Catalog() *schema.Catalog {
	return e.catalog
}

// ValidateFile validates the spreadsheet at path as kind.
func (e *Engine) ValidateFile(path, kind string) models.ValidationVerdict {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return e.finish(kind, failed(kind, appErrors.Clone(appErrors.ErrFileNotFound, fmt.Sprintf("file not found: %s", path))))
	}
	if err := CheckExtension(path); err != nil {
		return e.finish(kind, failed(kind, err))
	}
	fk, err := e.catalog.Lookup(kind)
	if err != nil {
		return e.finish(kind, failed(kind, err))
	}
	table, err := e.reader.ReadFile(path)
	if err != nil {
		e.logger.Warn("spreadsheet unreadable", zap.String("path", path), zap.Error(err))
		return e.finish(fk.Name, failed(fk.Name, appErrors.Wrap(err, appErrors.ErrUnreadableFile.Code, appErrors.ErrUnreadableFile.Status, appErrors.ErrUnreadableFile.Message)))
	}
	return e.finish(fk.Name, e.validateTable(table, fk))
}

// ValidateReader validates an uploaded spreadsheet; name supplies the extension.
func (e *Engine) ValidateReader(name string, r io.Reader, kind string) models.ValidationVerdict {
	if err := CheckExtension(name); err != nil {
		return e.finish(kind, failed(kind, err))
	}
	fk, err := e.catalog.Lookup(kind)
	if err != nil {
		return e.finish(kind, failed(kind, err))
	}
	table, err := e.reader.Read(r)
	if err != nil {
		e.logger.Warn("spreadsheet unreadable", zap.String("name", name), zap.Error(err))
		return e.finish(fk.Name, failed(fk.Name, appErrors.Wrap(err, appErrors.ErrUnreadableFile.Code, appErrors.ErrUnreadableFile.Status, appErrors.ErrUnreadableFile.Message)))
	}
	return e.finish(fk.Name, e.validateTable(table, fk))
}

// ValidateTable validates an already parsed table as kind.
func (e *Engine) ValidateTable(table *sheet.Table, kind string) models.ValidationVerdict {
	fk, err := e.catalog.Lookup(kind)
	if err != nil {
		return e.finish(kind, failed(kind, err))
	}
	return e.finish(fk.Name, e.validateTable(table, fk))
}

// CheckExtension accepts the spreadsheet container extensions, case-insensitively.
func CheckExtension(name string) error {
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return appErrors.Clone(appErrors.ErrUnsupportedExtension, fmt.Sprintf("unsupported file extension %q: expected .xlsx or .xls", ext))
	}
	return nil
}

func (e *Engine) finish(kind string, v models.ValidationVerdict) models.ValidationVerdict {
	v.Valid = len(v.Errors) == 0
	e.logger.Debug("spreadsheet validated",
		zap.String("kind", kind),
		zap.Bool("valid", v.Valid),
		zap.Int("errors", len(v.Errors)),
		zap.Int("warnings", len(v.Warnings)),
		zap.Int("rows", v.FileInfo.RowCount),
	)
	if e.observer != nil {
		e.observer(kind, v)
	}
	return v
}

func newVerdict(kind string) models.ValidationVerdict {
	return models.ValidationVerdict{
		Kind:     kind,
		Errors:   []string{},
		Warnings: []string{},
		FileInfo: models.FileInfo{ColumnNames: []string{}, NullCounts: map[string]int{}},
	}
}

func failed(kind string, err error) models.ValidationVerdict {
	v := newVerdict(kind)
	appErr := appErrors.FromError(err)
	v.Failure = &models.FailureInfo{Code: appErr.Code, Message: appErr.Message}
	v.Errors = append(v.Errors, appErr.Message)
	return v
}

func (e *Engine) validateTable(table *sheet.Table, fk *schema.FileKind) models.ValidationVerdict {
	v := newVerdict(fk.Name)
	v.FileInfo = models.FileInfo{
		RowCount:    len(table.Rows),
		ColumnCount: len(table.Columns),
		ColumnNames: append([]string{}, table.Columns...),
		NullCounts:  table.NullCounts(),
	}

	if len(table.Rows) < fk.MinRows || len(table.Columns) == 0 {
		appErr := appErrors.Clone(appErrors.ErrInsufficientRows,
			fmt.Sprintf("file has %d data row(s); at least %d required for %s", len(table.Rows), fk.MinRows, fk.Name))
		v.Failure = &models.FailureInfo{Code: appErr.Code, Message: appErr.Message}
		v.Errors = append(v.Errors, appErr.Message)
		return v
	}

	missing := missingColumns(fk.Required, table)
	if len(missing) > 0 {
		appErr := appErrors.Clone(appErrors.ErrMissingRequiredColumns,
			fmt.Sprintf("missing required columns: %s", strings.Join(missing, ", ")))
		v.Failure = &models.FailureInfo{Code: appErr.Code, Message: appErr.Message}
		v.Columns = &models.ColumnReport{
			Missing:  missing,
			Required: append([]string{}, fk.Required...),
			Actual:   append([]string{}, table.Columns...),
		}
		v.Errors = append(v.Errors, appErr.Message)
		if guess := e.misfileGuess(table, fk); guess != "" {
			v.Warnings = append(v.Warnings, guess)
		}
		v.Warnings = append(v.Warnings, extraColumnWarnings(table, fk)...)
		return v
	}

	v.Warnings = append(v.Warnings, extraColumnWarnings(table, fk)...)

	out := &findings{}
	checkNotNull(table, fk, out)
	for _, rule := range fk.Rules {
		e.applyRule(table, rule, out)
	}
	for _, w := range fk.TimeWindows {
		checkTimeWindow(table, w, out)
	}
	v.Errors = append(v.Errors, out.errors...)
	v.Warnings = append(v.Warnings, out.warnings...)
	return v
}

func missingColumns(required []string, table *sheet.Table) []string {
	var missing []string
	for _, col := range required {
		if !table.HasColumn(col) {
			missing = append(missing, col)
		}
	}
	return missing
}

// misfileGuess names another kind whose required columns overlap the file strictly more than the intended kind's.
func (e *Engine) misfileGuess(table *sheet.Table, intended *schema.FileKind) string {
	own := overlap(intended.Required, table)
	var best *schema.FileKind
	bestOverlap := own
	for _, other := range e.catalog.Kinds() {
		if other.Name == intended.Name {
			continue
		}
		if n := overlap(other.Required, table); n > bestOverlap {
			best, bestOverlap = other, n
		}
	}
	if best == nil {
		return ""
	}
	return fmt.Sprintf("file looks like a %s file (%d/%d of its required columns present) rather than %s (%d/%d); check the selected file kind",
		best.Name, bestOverlap, len(best.Required), intended.Name, own, len(intended.Required))
}

func overlap(required []string, table *sheet.Table) int {
	n := 0
	for _, col := range required {
		if table.HasColumn(col) {
			n++
		}
	}
	return n
}

func extraColumnWarnings(table *sheet.Table, fk *schema.FileKind) []string {
	var extra []string
	for _, col := range table.Columns {
		if !fk.Known(col) {
			extra = append(extra, col)
		}
	}
	if len(extra) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("unexpected columns will be ignored: %s", strings.Join(extra, ", "))}
}

// IsStructural reports whether the verdict stopped before row checks.
func IsStructural(v models.ValidationVerdict) bool {
	return v.Failure != nil
}

// Err converts an invalid verdict into an error carrying its failure code.
func Err(v models.ValidationVerdict) error {
	if v.Valid {
		return nil
	}
	if v.Failure != nil {
		for _, sentinel := range structuralErrors {
			if sentinel.Code == v.Failure.Code {
				return appErrors.Clone(sentinel, v.Failure.Message)
			}
		}
	}
	return appErrors.Wrap(errors.New(strings.Join(v.Errors, "; ")), appErrors.ErrImportRejected.Code, appErrors.ErrImportRejected.Status, appErrors.ErrImportRejected.Message)
}

var structuralErrors = []*appErrors.Error{
	appErrors.ErrFileNotFound,
	appErrors.ErrUnsupportedExtension,
	appErrors.ErrUnknownFileKind,
	appErrors.ErrUnreadableFile,
	appErrors.ErrInsufficientRows,
	appErrors.ErrMissingRequiredColumns,
}
