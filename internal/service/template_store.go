package service

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/noah-isme/invigilation-api/internal/models"
	appErrors "github.com/noah-isme/invigilation-api/pkg/errors"
	"github.com/noah-isme/invigilation-api/pkg/export"
)

// TemplateStore loads document layouts from a directory of YAML files, one per document kind.
// Files are read on every Load so a template removed at runtime fails only the calls that need it.
type TemplateStore struct {
	dir string
}

// NewTemplateStore constructs a store rooted at dir.
func NewTemplateStore(dir string) *TemplateStore {
	return &TemplateStore{dir: dir}
}

type templateColumn struct {
	Header string  `yaml:"header"`
	Value  string  `yaml:"value"`
	Width  float64 `yaml:"width"`
}

type templateFile struct {
	Name       string           `yaml:"name"`
	Landscape  bool             `yaml:"landscape"`
	Header     []string         `yaml:"header"`
	Title      string           `yaml:"title"`
	Subtitle   string           `yaml:"subtitle"`
	Paragraphs []string         `yaml:"paragraphs"`
	Columns    []templateColumn `yaml:"columns"`
	Footer     []string         `yaml:"footer"`
	Signature  string           `yaml:"signature"`
}

// DocumentTemplate is a compiled layout able to turn a context into an export.Document.
type DocumentTemplate struct {
	name       string
	landscape  bool
	header     []*template.Template
	title      *template.Template
	subtitle   *template.Template
	paragraphs []*template.Template
	headers    []string
	columns    []*template.Template
	widths     []float64
	footer     []*template.Template
	signature  *template.Template
}

// TableRow is the data seen by column templates: the 1-based row number and the row item.
type TableRow struct {
	N   int
	Row interface{}
}

// Load reads and compiles the template of kind.
func (s *TemplateStore) Load(kind models.DocumentKind) (*DocumentTemplate, error) {
	path := filepath.Join(s.dir, string(kind)+".yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, appErrors.Clone(appErrors.ErrTemplateMissing, fmt.Sprintf("template %s not found", filepath.Base(path)))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read template")
	}
	var file templateFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTemplateMissing.Code, appErrors.ErrTemplateMissing.Status, fmt.Sprintf("template %s is malformed", filepath.Base(path)))
	}
	tpl, err := compileTemplate(string(kind), file)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrTemplateMissing.Code, appErrors.ErrTemplateMissing.Status, fmt.Sprintf("template %s is malformed", filepath.Base(path)))
	}
	return tpl, nil
}

func compileTemplate(name string, file templateFile) (*DocumentTemplate, error) {
	var compileErr error
	compile := func(part, text string) *template.Template {
		if compileErr != nil {
			return nil
		}
		t, err := template.New(name + "." + part).Option("missingkey=error").Parse(text)
		if err != nil {
			compileErr = err
		}
		return t
	}
	compileAll := func(part string, texts []string) []*template.Template {
		out := make([]*template.Template, 0, len(texts))
		for i, text := range texts {
			out = append(out, compile(part+"."+strconv.Itoa(i), text))
		}
		return out
	}

	tpl := &DocumentTemplate{
		name:       name,
		landscape:  file.Landscape,
		header:     compileAll("header", file.Header),
		title:      compile("title", file.Title),
		subtitle:   compile("subtitle", file.Subtitle),
		paragraphs: compileAll("paragraph", file.Paragraphs),
		footer:     compileAll("footer", file.Footer),
		signature:  compile("signature", file.Signature),
	}
	for i, col := range file.Columns {
		tpl.headers = append(tpl.headers, col.Header)
		tpl.columns = append(tpl.columns, compile("column."+strconv.Itoa(i), col.Value))
		tpl.widths = append(tpl.widths, col.Width)
	}
	if compileErr != nil {
		return nil, compileErr
	}
	return tpl, nil
}

// Build renders the layout against data; rows feed the table, one line per item.
func (t *DocumentTemplate) Build(data interface{}, rows []interface{}) (export.Document, error) {
	doc := export.Document{Landscape: t.landscape, ColumnWidths: t.widths}
	var err error
	if doc.Header, err = executeAll(t.header, data); err != nil {
		return doc, err
	}
	if doc.Title, err = execute(t.title, data); err != nil {
		return doc, err
	}
	if doc.Subtitle, err = execute(t.subtitle, data); err != nil {
		return doc, err
	}
	if doc.Paragraphs, err = executeAll(t.paragraphs, data); err != nil {
		return doc, err
	}
	if doc.Footer, err = executeAll(t.footer, data); err != nil {
		return doc, err
	}
	if doc.Signature, err = execute(t.signature, data); err != nil {
		return doc, err
	}

	doc.Table = export.Sheet{Name: t.name, Headers: t.headers}
	for i, item := range rows {
		row := make([]string, len(t.columns))
		for j, col := range t.columns {
			if row[j], err = execute(col, TableRow{N: i + 1, Row: item}); err != nil {
				return doc, err
			}
		}
		doc.Table.Rows = append(doc.Table.Rows, row)
	}
	return doc, nil
}

func execute(t *template.Template, data interface{}) (string, error) {
	buf := &bytes.Buffer{}
	if err := t.Execute(buf, data); err != nil {
		return "", fmt.Errorf("execute %s: %w", t.Name(), err)
	}
	return buf.String(), nil
}

func executeAll(ts []*template.Template, data interface{}) ([]string, error) {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		s, err := execute(t, data)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}
