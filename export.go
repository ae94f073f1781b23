package main

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Zachkp/parcoursup-portfolio/internal/export"
)

const workbookName = "insights.xlsx"

// exportFile serves the dashboard as a workbook (insights.xlsx) or one of its
// tables as CSV (<table>.csv). It accepts the dashboard query parameters.
func (s *server) exportFile(c *gin.Context) {
	file := c.Param("file")
	name, isCSV := strings.CutSuffix(file, ".csv")
	if file != workbookName && !isCSV {
		s.fail(c, fmt.Errorf("%w: %q", export.ErrUnknownTable, file))
		return
	}

	d, err := s.buildDashboard(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	tables := export.FromDashboard(d)

	var buf bytes.Buffer
	contentType := export.XLSXContentType
	if isCSV {
		t, err := export.Find(tables, name)
		if err != nil {
			s.fail(c, err)
			return
		}
		if err := export.WriteCSV(&buf, t); err != nil {
			s.fail(c, err)
			return
		}
		contentType = "text/csv; charset=utf-8"
	} else if err := export.WriteXLSX(&buf, tables); err != nil {
		s.fail(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file))
	c.Data(http.StatusOK, contentType, buf.Bytes())
}
