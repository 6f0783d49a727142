package main

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/ZanzyTHEbar/aq10-risk-meter/docs"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/analysis"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/errors"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/frontend"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/middleware"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/monitoring"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/ratelimit"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/report"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/security"
	"github.com/ZanzyTHEbar/aq10-risk-meter/internal/types"
)

type server struct {
	assessor *analysis.Assessor
	renderer *report.Renderer
	pages    *frontend.Pages
	limiter  *ratelimit.RateLimiter
	security *security.SecurityMiddleware
	metrics  *monitoring.Metrics
	logger   *monitoring.Logger
	// ready reports whether the image model can serve; nil skips the check.
	ready func(ctx context.Context) error
	// health holds extra /health sections, such as the inference pool.
	health []monitoring.HealthComponent
}

func setupRouter(s *server) *gin.Engine {
	r := gin.New()

	r.Use(monitoring.RequestID())
	r.Use(monitoring.MonitoringMiddleware(s.metrics, s.logger))
	r.Use(monitoring.SecurityMonitoringMiddleware(s.logger))

	gzipCfg := middleware.DefaultCompressionConfig()
	gzipCfg.OnCompressed = s.metrics.RecordCompression
	r.Use(middleware.NewCompression(gzipCfg).Handler())

	r.Use(errors.ErrorHandler())
	r.Use(errors.RecoveryHandler())

	cfg := s.security.Config()
	r.Use(security.SecurityHeadersMiddleware(cfg.EnableHSTS))
	r.Use(s.security.RequestTimeout)
	r.Use(s.security.CORSConfig())

	var ready func(*gin.Context) error
	if s.ready != nil {
		ready = func(c *gin.Context) error { return s.ready(c.Request.Context()) }
	}
	components := append([]monitoring.HealthComponent{{
		Name:  "rate_limiter",
		Stats: s.limiter.GetStats,
		Check: s.limiter.HealthCheck,
	}}, s.health...)
	r.GET("/health", monitoring.HealthCheck(s.metrics, version, ready, components...))
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	upload := []gin.HandlerFunc{s.security.LimitBody, s.security.ValidateContentType, s.limiter.IPRateLimitMiddleware()}

	html := r.Group("/", security.CSPMiddleware(cfg.CSPReportURI))
	html.GET("/", s.indexPage)
	html.POST("/assess", append(upload, s.limiter.ReportRateLimitMiddleware(), s.assessPage)...)

	api := r.Group("/api/v1")
	api.GET("/questionnaire", s.getQuestionnaire)
	api.POST("/questionnaire/score", s.security.LimitBody, s.security.ValidateContentType, s.scoreQuestionnaire)
	api.POST("/risk/combine", s.security.LimitBody, s.security.ValidateContentType, s.combineRisk)
	api.POST("/assessments", append(upload, s.createAssessment)...)
	api.POST("/assessments/report", append(upload, s.limiter.ReportRateLimitMiddleware(), s.createReport)...)
	api.GET("/ratelimit/status", s.limiter.HandleRateLimitStatus())

	return r
}

// submission is one multipart upload of an image plus answers q1..q10.
type submission struct {
	image     []byte
	imageType string
	responses analysis.ResponseSet
	// raw keeps parsable answers so the form can be re-rendered.
	raw map[int]int
}

// multipartMemory is how much of an upload is held in memory before
// spilling to temporary files.
const multipartMemory = 8 << 20

// readSubmission collects every problem with the upload before failing.
func readSubmission(c *gin.Context) (*submission, error) {
	sub := &submission{raw: map[int]int{}}
	problems := map[string]string{}

	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		if stderrors.Is(err, http.ErrNotMultipart) {
			return sub, &analysis.InputError{Problems: map[string]string{
				types.FormImage: "multipart form data is required",
			}}
		}
		return sub, err
	}

	answers := make(map[int]string, analysis.ItemCount)
	duplicates := map[string]string{}
	for id := 1; id <= analysis.ItemCount; id++ {
		field := "q" + strconv.Itoa(id)
		values := c.Request.PostForm[field]
		if len(values) > 1 {
			duplicates[field] = "duplicate response"
			continue
		}
		if len(values) == 1 && values[0] != "" {
			answers[id] = values[0]
			if r, err := analysis.ParseResponse(values[0]); err == nil {
				sub.raw[id] = int(r)
			}
		}
	}
	rs, err := analysis.ParseResponseSet(answers)
	if err != nil {
		var inErr *analysis.InputError
		if !stderrors.As(err, &inErr) {
			return sub, err
		}
		for k, v := range inErr.Problems {
			problems[k] = v
		}
	}
	for k, v := range duplicates {
		problems[k] = v
	}
	sub.responses = rs

	fh, err := c.FormFile(types.FormImage)
	switch {
	case err == nil:
		f, err := fh.Open()
		if err != nil {
			return sub, errors.NewInternalError("failed to open upload", err)
		}
		defer f.Close()
		sub.image, err = io.ReadAll(f)
		if err != nil {
			return sub, err
		}
		if len(sub.image) == 0 {
			problems[types.FormImage] = "uploaded image is empty"
		}
		sub.imageType = http.DetectContentType(sub.image)
	case stderrors.Is(err, http.ErrMissingFile):
		problems[types.FormImage] = "an image file is required"
	default:
		return sub, err
	}

	if len(problems) > 0 {
		return sub, &analysis.InputError{Problems: problems}
	}
	return sub, nil
}

// runAssessment classifies and scores one submission
func (s *server) runAssessment(c *gin.Context) (*analysis.Assessment, *submission, error) {
	sub, err := readSubmission(c)
	if err != nil {
		return nil, sub, err
	}

	start := time.Now()
	a, err := s.assessor.Assess(c.Request.Context(), sub.image, sub.responses)
	if err != nil {
		return nil, sub, err
	}
	s.metrics.RecordAssessment(a)
	s.logger.AssessmentLogger(a, time.Since(start))
	return a, sub, nil
}

func (s *server) renderReport(ctx context.Context, a *analysis.Assessment) (*report.Document, error) {
	doc, err := s.renderer.Render(ctx, report.Input{
		Assessment: a,
		Source:     report.LoadSourceImage(a.Image),
		Thresholds: s.assessor.Scorer().Config().Combined,
	})
	if err != nil {
		s.metrics.RecordReport("error")
		return nil, err
	}
	s.metrics.RecordReport("ok")
	return doc, nil
}

func (s *server) indexPage(c *gin.Context) {
	if err := s.pages.RenderIndex(c, http.StatusOK, frontend.IndexData{Nonce: security.GetNonce(c)}); err != nil {
		_ = c.Error(err)
	}
}

// assessPage handles the HTML form. Failures re-render the form with the
// answers kept.
func (s *server) assessPage(c *gin.Context) {
	a, sub, err := s.runAssessment(c)
	if err == nil {
		var doc *report.Document
		doc, err = s.renderReport(c.Request.Context(), a)
		if err == nil {
			err = s.pages.RenderResult(c, frontend.ResultData{
				Nonce:      security.GetNonce(c),
				Assessment: a,
				Report:     doc.Bytes,
				ReportName: doc.Filename,
				ImageType:  sub.imageType,
			})
			if err != nil {
				_ = c.Error(err)
			}
			return
		}
	}

	appErr := errors.ToAppError(err)
	appErr.RequestID = c.GetString("request_id")
	errors.LogError(c, appErr)

	data := frontend.IndexData{
		Nonce:    security.GetNonce(c),
		Message:  appErr.Response().Message,
		Problems: problemList(appErr.Fields),
	}
	if sub != nil {
		data.Selected = sub.raw
	}
	if len(data.Problems) == 0 {
		data.Problems = []string{"Please try again."}
	}
	if rerr := s.pages.RenderIndex(c, appErr.HTTPStatus, data); rerr != nil {
		_ = c.Error(rerr)
	}
}

func problemList(fields map[string]string) []string {
	out := make([]string, 0, len(fields))
	for k, v := range fields {
		out = append(out, fmt.Sprintf("%s: %s", k, v))
	}
	sort.Strings(out)
	return out
}

// getQuestionnaire godoc
// @Summary List the AQ-10 items
// @Tags questionnaire
// @Produce json
// @Success 200 {object} types.QuestionnaireResponse
// @Router /api/v1/questionnaire [get]
func (s *server) getQuestionnaire(c *gin.Context) {
	c.JSON(http.StatusOK, types.NewQuestionnaireResponse())
}

// scoreQuestionnaire godoc
// @Summary Score AQ-10 answers
// @Tags questionnaire
// @Accept json
// @Produce json
// @Param request body types.ScoreRequest true "Answers keyed by item id, 0-3"
// @Success 200 {object} analysis.AQ10Result
// @Failure 400 {object} errors.ErrorResponse
// @Router /api/v1/questionnaire/score [post]
func (s *server) scoreQuestionnaire(c *gin.Context) {
	var req types.ScoreRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		var inErr *analysis.InputError
		if stderrors.As(err, &inErr) {
			_ = c.Error(inErr)
			return
		}
		_ = c.Error(errors.NewValidationError("invalid JSON body", err))
		return
	}
	rs, err := analysis.NewResponseSet(req.Responses)
	if err != nil {
		_ = c.Error(err)
		return
	}
	res, err := s.assessor.Scorer().ScoreQuestionnaire(rs)
	if err != nil {
		_ = c.Error(err)
		return
	}
	s.metrics.RecordQuestionnaire(res.Tier)
	c.JSON(http.StatusOK, res)
}

// combineRisk godoc
// @Summary Combine image and questionnaire probabilities
// @Tags risk
// @Accept json
// @Produce json
// @Param request body types.CombineRequest true "Probabilities in [0,1]"
// @Success 200 {object} analysis.CombinedResult
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Router /api/v1/risk/combine [post]
func (s *server) combineRisk(c *gin.Context) {
	var req types.CombineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(errors.NewValidationError("image_prob and aq10_prob are required", err))
		return
	}
	res, err := s.assessor.Scorer().CombineProbabilities(*req.ImageProb, *req.AQ10Prob)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// createAssessment godoc
// @Summary Run a full screening
// @Tags assessments
// @Accept multipart/form-data
// @Produce json
// @Param image formData file true "Face image (JPEG or PNG)"
// @Param q1 formData string true "Answer to item 1 (0-3 or label)"
// @Success 200 {object} types.AssessmentResponse
// @Failure 400 {object} errors.ErrorResponse
// @Failure 422 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/v1/assessments [post]
func (s *server) createAssessment(c *gin.Context) {
	a, _, err := s.runAssessment(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, types.AssessmentResponse{Assessment: a, Disclaimer: types.Disclaimer})
}

// createReport godoc
// @Summary Run a full screening and return the PDF report
// @Tags assessments
// @Accept multipart/form-data
// @Produce application/pdf
// @Param image formData file true "Face image (JPEG or PNG)"
// @Param q1 formData string true "Answer to item 1 (0-3 or label)"
// @Success 200 {file} file
// @Failure 400 {object} errors.ErrorResponse
// @Failure 503 {object} errors.ErrorResponse
// @Router /api/v1/assessments/report [post]
func (s *server) createReport(c *gin.Context) {
	a, _, err := s.runAssessment(c)
	if err != nil {
		_ = c.Error(err)
		return
	}
	doc, err := s.renderReport(c.Request.Context(), a)
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, doc.Filename))
	c.Header("X-Assessment-ID", a.ID)
	c.Data(http.StatusOK, report.ContentType, doc.Bytes)
}
