package macro

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trading_journal/models"
)

func monthly(values ...float64) []models.MacroPoint {
	points := make([]models.MacroPoint, len(values))
	for i, v := range values {
		points[i] = models.MacroPoint{Time: fmt.Sprintf("2023-%02d-01", i%12+1), Value: v}
	}
	return points
}

func TestYoYShortSeries(t *testing.T) {
	assert.Nil(t, YoY(nil))
	assert.Nil(t, YoY(monthly(1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12)))
}

func TestYoYThirteenPoints(t *testing.T) {
	yoy := YoY(monthly(200, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 210))
	require.NotNil(t, yoy)
	assert.InDelta(t, 10.0, yoy.Abs, 1e-9)
	assert.InDelta(t, 5.0, yoy.Pct, 1e-9)
}

func TestYoYUsesTwelveBack(t *testing.T) {
	yoy := YoY(monthly(999, 100, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 90))
	require.NotNil(t, yoy)
	assert.InDelta(t, -10.0, yoy.Abs, 1e-9)
	assert.InDelta(t, -10.0, yoy.Pct, 1e-9)
}

func TestYoYZeroBase(t *testing.T) {
	assert.Nil(t, YoY(monthly(0, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 5)))
}

func TestHasAnyData(t *testing.T) {
	assert.False(t, HasAnyData(models.MacroRecord{}))
	assert.False(t, HasAnyData(models.MacroRecord{KeyCPI: {}}))
	assert.True(t, HasAnyData(models.MacroRecord{KeyCPI: {Series: []models.MacroPoint{{Time: "2024-01-01", Value: 1}}}}))
}

func TestSummarize(t *testing.T) {
	record := models.MacroRecord{
		KeyCPI: {Series: monthly(100, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 1, 103), Meta: models.MacroMeta{Unit: "index"}},
		KeyGDP: {},
	}
	summary := Summarize(record)
	require.Contains(t, summary, KeyCPI)
	assert.NotContains(t, summary, KeyGDP)
	assert.Equal(t, 103.0, summary[KeyCPI].Last)
	require.NotNil(t, summary[KeyCPI].YoY)
	assert.Equal(t, 3.0, summary[KeyCPI].YoY.Pct)
}
