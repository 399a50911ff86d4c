// handlers.go
package web

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qcviz/internal/chart"
	"qcviz/internal/dataset"
	"qcviz/internal/qc"
	"qcviz/internal/session"
)

const (
	csvFileName  = "masked_qc_data.csv"
	xlsxFileName = "masked_qc_data.xlsx"
	xlsxMIME     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

type fileTooLargeError struct {
	Size, Max int64
}

func (e *fileTooLargeError) Error() string {
	return fmt.Sprintf("file too large (%d bytes, limit %d)", e.Size, e.Max)
}

// postForm adapts the request form to qc.Fields.
type postForm struct{ c *gin.Context }

func (f postForm) Field(id string) (string, bool) {
	return f.c.GetPostForm(id)
}

// selectedTest returns the chosen test id, defaulting to the first built-in test.
func selectedTest(c *gin.Context) string {
	id := c.PostForm("test")
	if id == "" {
		id = c.Query("test")
	}
	if id == "" {
		id = qc.GrossRangeTest
	}
	return id
}

func (s *Server) formVariables(c *gin.Context) session.Variables {
	return session.Variables{
		Variable:  c.PostForm("variable"),
		Time:      c.PostForm("time"),
		Secondary: c.PostForm("secondary"),
	}.OrDefaults(s.defaults)
}

// page builds the index page for testID. Unknown tests fall back to the default one and
// report a warning.
func (s *Server) page(testID string, values map[string]string, vars session.Variables, status *Status) PageData {
	schema, err := qc.SchemaFor(testID)
	if err != nil {
		schema, _ = qc.SchemaFor(qc.GrossRangeTest)
		if status == nil {
			status = statusFor(err)
		}
		values = nil
	}
	if values == nil {
		values = schema.Defaults()
	}
	data := PageData{
		Tests:    qc.Tests(),
		Selected: schema.ID,
		Schema:   schema,
		Values:   values,
		Vars:     vars,
		Status:   status,
	}
	if ds, err := s.holder.Current().Dataset(); err == nil {
		data.Dataset = &DatasetInfo{
			FileName:    ds.FileName,
			FileSize:    ds.FileSize,
			RowCount:    ds.RowCount(),
			Source:      s.holder.Current().Source,
			Headers:     ds.Headers,
			NumericCols: ds.NumericCols,
			Numeric:     ds.NumericHeaders(),
		}
	}
	return data
}

func (s *Server) render(c *gin.Context, data PageData) {
	code := http.StatusOK
	if data.Status != nil {
		code = data.Status.Code
	}
	c.Header("Cache-Control", "no-cache")
	c.HTML(code, "index.html", data)
}

// postedValues collects the submitted parameter fields of schema.
func postedValues(c *gin.Context, testID string) map[string]string {
	schema, err := qc.SchemaFor(testID)
	if err != nil {
		return nil
	}
	values := schema.Defaults()
	for _, p := range schema.Params {
		if v, ok := c.GetPostForm(p.Name); ok {
			values[p.Name] = v
		}
	}
	return values
}

// GET /
func (s *Server) Index(c *gin.Context) {
	s.render(c, s.page(selectedTest(c), nil, s.defaults, nil))
}

// POST /upload
func (s *Server) Upload(c *gin.Context) {
	testID := selectedTest(c)

	err := s.upload(c)
	if err != nil {
		s.log.Warn("Upload failed", zap.Error(err))
		s.render(c, s.page(testID, nil, s.defaults, statusFor(err)))
		return
	}

	ds, _ := s.holder.Current().Dataset()
	s.log.Info("Dataset loaded",
		zap.String("dataset_id", ds.ID),
		zap.String("file", ds.FileName),
		zap.Int("rows", ds.RowCount()),
	)
	msg := fmt.Sprintf("Loaded %s: %d rows, %d columns", ds.FileName, ds.RowCount(), len(ds.Headers))
	s.render(c, s.page(testID, nil, s.defaults, success(msg)))
}

func (s *Server) upload(c *gin.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if header.Size > s.cfg.Server.MaxFileSize {
		return &fileTooLargeError{Size: header.Size, Max: s.cfg.Server.MaxFileSize}
	}
	file, err := header.Open()
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	return s.holder.Do(func(*session.State) (*session.State, error) {
		return s.loader.Load(data, header.Filename)
	})
}

// POST /example
func (s *Server) Example(c *gin.Context) {
	testID := selectedTest(c)

	err := s.holder.Do(func(*session.State) (*session.State, error) {
		return s.loader.Example()
	})
	if err != nil {
		s.render(c, s.page(testID, nil, s.defaults, statusFor(err)))
		return
	}

	cfg, err := qc.DefaultConfiguration()
	if err != nil {
		s.render(c, s.page(testID, nil, s.defaults, statusFor(err)))
		return
	}
	s.runAndRender(c, testID, nil, s.defaults, cfg)
}

// POST /run
func (s *Server) Run(c *gin.Context) {
	testID := selectedTest(c)
	values := postedValues(c, testID)
	vars := s.formVariables(c)

	cfg, err := qc.FromForm(testID, postForm{c})
	if err != nil {
		s.render(c, s.page(testID, values, vars, statusFor(err)))
		return
	}
	s.runAndRender(c, testID, values, vars, cfg)
}

// POST /download
func (s *Server) Download(c *gin.Context) {
	testID := selectedTest(c)
	values := postedValues(c, testID)
	vars := s.formVariables(c)

	res, err := s.runForm(c, testID, vars)
	if err == nil {
		err = s.writeDownload(c, res)
	}
	if err != nil {
		s.log.Warn("Download failed", zap.Error(err))
		s.render(c, s.page(testID, values, vars, statusFor(err)))
	}
}

func (s *Server) runForm(c *gin.Context, testID string, vars session.Variables) (*session.Result, error) {
	cfg, err := qc.FromForm(testID, postForm{c})
	if err != nil {
		return nil, err
	}
	return s.runTest(c, testID, vars, cfg)
}

func (s *Server) runTest(c *gin.Context, testID string, vars session.Variables, cfg qc.Configuration) (*session.Result, error) {
	var res *session.Result
	err := s.holder.Do(func(cur *session.State) (*session.State, error) {
		var err error
		res, err = cur.Run(c.Request.Context(), s.engine, vars, testID, cfg)
		return nil, err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("QC test complete",
		zap.String("test", testID),
		zap.String("variable", vars.Variable),
		zap.Int("rows", res.Masks.Len()),
	)
	return res, nil
}

func (s *Server) writeDownload(c *gin.Context, res *session.Result) error {
	table, err := res.Annotated.Table()
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	name, mime := csvFileName, "text/csv; charset=utf-8"
	if c.PostForm("format") == "xlsx" {
		name, mime = xlsxFileName, xlsxMIME
		err = table.WriteXLSX(&buf, res.Masks.Tallies())
	} else {
		err = table.WriteCSV(&buf)
	}
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	c.Data(http.StatusOK, mime, buf.Bytes())
	return nil
}

func (s *Server) runAndRender(c *gin.Context, testID string, values map[string]string, vars session.Variables, cfg qc.Configuration) {
	res, err := s.runTest(c, testID, vars, cfg)
	if err != nil {
		s.log.Warn("QC test failed", zap.String("test", testID), zap.Error(err))
		s.render(c, s.page(testID, values, vars, statusFor(err)))
		return
	}

	view, status := s.resultView(res)
	data := s.page(testID, values, vars, status)
	data.Result = view
	s.render(c, data)
}

func (s *Server) resultView(res *session.Result) (*ResultView, *Status) {
	a := res.Annotated
	view := &ResultView{
		Title:   fmt.Sprintf("%s - %s", a.Variable, a.TestID),
		Tallies: res.Masks.Tallies(),
		Total:   len(a.Flags),
	}
	status := success(fmt.Sprintf("Ran %s on %s (%d rows)", a.TestID, a.Variable, len(a.Flags)))
	view.Summary = variableSummary(res)

	if table, err := a.Table(); err == nil {
		view.Headers = table.Headers
		view.Rows = table.Rows
		if len(view.Rows) > previewRows {
			view.Rows = view.Rows[:previewRows]
		}
	}

	png, err := s.renderChart(res)
	switch {
	case errors.Is(err, chart.ErrNothingToPlot):
		status = &Status{Kind: StatusInfo, Message: err.Error(), Code: http.StatusOK}
	case err != nil:
		s.log.Error("Chart rendering failed", zap.Error(err))
		status = &Status{Kind: StatusDanger, Message: "Error rendering chart: " + err.Error(), Code: http.StatusOK}
	default:
		view.Chart = template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	}
	return view, status
}

// variableSummary describes the tested variable, or nil when it has no numeric value.
func variableSummary(res *session.Result) *dataset.Summary {
	values, err := res.Annotated.Source.Floats(res.Annotated.Variable)
	if err != nil {
		return nil
	}
	sum, err := dataset.Summarize(values)
	if err != nil {
		return nil
	}
	return &sum
}

func (s *Server) renderChart(res *session.Result) ([]byte, error) {
	plot, err := chart.NewPlot(res.Annotated.Source, res.Annotated, res.Masks)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := s.renderer.Render(&buf, plot); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
