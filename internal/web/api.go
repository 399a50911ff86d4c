// api.go
package web

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"qcviz/internal/qc"
	"qcviz/internal/session"
)

// GET /api/health
func (s *Server) HealthCheck(c *gin.Context) {
	health := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
		"version":   Version,
	}
	if ds, err := s.holder.Current().Dataset(); err == nil {
		health["dataset_id"] = ds.ID
		health["rows"] = ds.RowCount()
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: health})
}

// GET /api/schema
func (s *Server) Schema(c *gin.Context) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: qc.Schemas()})
}

// POST /api/run
func (s *Server) APIRun(c *gin.Context) {
	var req RunRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, APIResponse{Success: false, Error: err.Error()})
		return
	}

	cfg, err := requestConfiguration(req)
	if err != nil {
		s.apiError(c, err)
		return
	}
	if req.Example {
		if err := s.holder.Do(func(*session.State) (*session.State, error) {
			return s.loader.Example()
		}); err != nil {
			s.apiError(c, err)
			return
		}
	}

	vars := session.Variables{Variable: req.Variable, Time: req.Time, Secondary: req.Secondary}.OrDefaults(s.defaults)
	res, err := s.runTest(c, req.Test, vars, cfg)
	if err != nil {
		s.apiError(c, err)
		return
	}

	counts := make(map[string]int, len(qc.Flags))
	for f, n := range res.Masks.Counts() {
		counts[f.String()] = n
	}
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: RunResponse{
		DatasetID: res.Annotated.Source.ID,
		Test:      req.Test,
		Variable:  vars.Variable,
		Rows:      len(res.Annotated.Flags),
		Counts:    counts,
		Flags:     res.Annotated.Flags,
		Masks:     res.Masks,
		Summary:   variableSummary(res),
		Config:    cfg.ForTest(req.Test),
	}})
}

// requestConfiguration picks the configuration of an API run: an explicit document, else the
// given parameters over the schema defaults.
func requestConfiguration(req RunRequest) (qc.Configuration, error) {
	if len(req.Config) > 0 {
		return req.Config, nil
	}
	schema, err := qc.SchemaFor(req.Test)
	if err != nil {
		return nil, err
	}
	fields := qc.FieldMap(schema.Defaults())
	for name, v := range req.Params {
		fields[name] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return qc.FromForm(req.Test, fields)
}

func (s *Server) apiError(c *gin.Context, err error) {
	status := statusFor(err)
	s.log.Warn("API request failed", zap.String("path", c.Request.URL.Path), zap.Error(err))
	c.JSON(status.Code, APIResponse{Success: false, Error: status.Message})
}
