package frontend

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
)

func render(t *testing.T, fn func(c *gin.Context) error) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	require.NoError(t, fn(c))
	return w
}

func TestRenderIndex(t *testing.T) {
	pages, err := LoadPages()
	require.NoError(t, err)

	w := render(t, func(c *gin.Context) error {
		return pages.RenderIndex(c, http.StatusOK, IndexData{Nonce: "abc", Selected: map[int]int{3: 3}})
	})

	body := w.Body.String()
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, body, `<style nonce="abc">`)
	assert.Equal(t, 40, strings.Count(body, `type="radio"`))
	assert.Equal(t, 10, strings.Count(body, " checked"))
	assert.Contains(t, body, `name="q3" value="3" checked`)
	assert.Contains(t, body, `name="q1" value="1" checked`)
	assert.Contains(t, body, "Q10:")
}

func TestRenderIndexWithProblems(t *testing.T) {
	pages, err := LoadPages()
	require.NoError(t, err)

	w := render(t, func(c *gin.Context) error {
		return pages.RenderIndex(c, http.StatusBadRequest, IndexData{
			Message:  "Invalid questionnaire input",
			Problems: []string{"q4: missing response"},
		})
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "q4: missing response")
}

func TestRenderResult(t *testing.T) {
	pages, err := LoadPages()
	require.NoError(t, err)

	a := &analysis.Assessment{
		AQ10: analysis.AQ10Result{Score: 6, Tier: analysis.TierHigh, Interpretation: analysis.Interpretation(analysis.TierHigh)},
		Combined: analysis.CombinedResult{
			ImageProb:          0.8,
			AQ10Prob:           0.6,
			CombinedProb:       0.68,
			RecommendationTier: analysis.TierHigh,
			RecommendationText: analysis.RecommendationText(analysis.TierHigh),
		},
		Image: []byte("png-bytes"),
	}
	pdf := []byte("%PDF-1.3 test")

	w := render(t, func(c *gin.Context) error {
		return pages.RenderResult(c, ResultData{
			Nonce:      "n",
			Assessment: a,
			Report:     pdf,
			ReportName: "autism_report.pdf",
			ImageType:  "image/png",
		})
	})

	body := w.Body.String()
	assert.Contains(t, body, "80.0%")
	assert.Contains(t, body, "68.0%")
	assert.Contains(t, body, "6/10")
	assert.Contains(t, body, `class="tier-HIGH"`)
	assert.Contains(t, body, `href="data:application/pdf;base64,`+base64.StdEncoding.EncodeToString(pdf)+`"`)
	assert.Contains(t, body, `download="autism_report.pdf"`)
	assert.Contains(t, body, `src="data:image/png;base64,`)
}
