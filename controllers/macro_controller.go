package controllers

import (
	"context"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"trading_journal/core"
	"trading_journal/models"
	"trading_journal/pkg/macro"
)

var countryPattern = regexp.MustCompile(`^[A-Z]{2}$`)

type MacroReader interface {
	Resolve(ctx context.Context, country string, from, to time.Time) models.MacroRecord
}

type MacroController struct {
	macro        MacroReader
	lookbackDays int
	now          func() time.Time
}

func NewMacroController(reader MacroReader, lookbackDays int) *MacroController {
	if lookbackDays <= 0 {
		lookbackDays = 400
	}
	return &MacroController{macro: reader, lookbackDays: lookbackDays, now: time.Now}
}

// GetCountry GET /api/v1/macro/:country?from=&to=
func (mc *MacroController) GetCountry(c *gin.Context) {
	country := strings.ToUpper(c.Param("country"))
	if !countryPattern.MatchString(country) {
		respondError(c, http.StatusBadRequest, "country must be an ISO-3166 alpha-2 code", "INVALID_PARAMS")
		return
	}

	to := mc.now().UTC()
	if raw := c.Query("to"); raw != "" {
		t, ok := core.ParseTime(raw)
		if !ok {
			respondError(c, http.StatusBadRequest, "invalid to", core.CodeInvalidDate)
			return
		}
		to = t
	}
	from := to.AddDate(0, 0, -mc.lookbackDays)
	if raw := c.Query("from"); raw != "" {
		f, ok := core.ParseTime(raw)
		if !ok {
			respondError(c, http.StatusBadRequest, "invalid from", core.CodeInvalidDate)
			return
		}
		from = f
	}
	if from.After(to) {
		respondError(c, http.StatusBadRequest, "from is after to", core.CodeInvalidDate)
		return
	}

	record := mc.macro.Resolve(c.Request.Context(), country, from, to)
	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"country": country,
			"from":    from.Format("2006-01-02"),
			"to":      to.Format("2006-01-02"),
			"series":  record,
			"summary": macro.Summarize(record),
		},
	})
}
