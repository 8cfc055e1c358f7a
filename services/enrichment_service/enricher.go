package enrichment_service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/serisow/lecahier/pipeline_type"
	"github.com/serisow/lecahier/services/llm_service"
)

// Config holds the enrichment tunables. APIURL/APIKey/Model are forwarded to
// the completion client; the rest shape the generated content.
type Config struct {
	APIURL          string
	APIKey          string
	Model           string
	MaxSummaryWords int
	NumQAPairs      int
	MaxKeyPoints    int
	MaxTopics       int
	InputLimit      int
	Timeout         time.Duration
}

func DefaultConfig() Config {
	return Config{
		Model:           "gpt-4o",
		MaxSummaryWords: 300,
		NumQAPairs:      5,
		MaxKeyPoints:    8,
		MaxTopics:       6,
		InputLimit:      4000,
		Timeout:         60 * time.Second,
	}
}

// ContentEnricher generates the AI layer for a document: summary, key
// points, Q&A pairs and topics. The four generation sub-tasks run
// concurrently against the completion client under one shared timeout
// budget; each one degrades independently to deterministic fallback content,
// and a blown budget degrades the whole stage at once so results are never a
// mix of stale AI output and fallback.
type ContentEnricher struct {
	llm    llm_service.LLMService
	cfg    Config
	logger *slog.Logger
}

func NewContentEnricher(llm llm_service.LLMService, cfg Config, logger *slog.Logger) *ContentEnricher {
	if cfg.InputLimit <= 0 {
		cfg.InputLimit = DefaultConfig().InputLimit
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	return &ContentEnricher{
		llm:    llm,
		cfg:    cfg,
		logger: logger,
	}
}

// taskResults collects the four sub-task outputs as fixed slots so partial
// completion can never silently drop a field.
type taskResults struct {
	summary      string
	summaryErr   error
	keyPoints    []string
	keyPointsErr error
	questions    []string
	answers      []string
	qaErr        error
	topics       []string
	topicsErr    error
}

// Enrich always returns a structurally valid result; failures of the
// completion client surface only as degraded fields and a lower quality
// score, never as an error. The document's raw content is never modified:
// truncation applies to the prompt copy only.
func (e *ContentEnricher) Enrich(ctx context.Context, doc *pipeline_type.RawDocument) *pipeline_type.EnrichmentResult {
	start := time.Now()
	content := e.prepareContent(doc.Content)

	// One budget for all four sub-tasks. If the aggregate blows it, every
	// field degrades together.
	taskCtx, cancel := context.WithTimeout(ctx, 2*e.cfg.Timeout)
	defer cancel()

	results := &taskResults{}
	var wg sync.WaitGroup
	wg.Add(4)

	go func() {
		defer wg.Done()
		results.summary, results.summaryErr = e.generateSummary(taskCtx, content, doc.Title)
	}()
	go func() {
		defer wg.Done()
		results.keyPoints, results.keyPointsErr = e.generateKeyPoints(taskCtx, content)
	}()
	go func() {
		defer wg.Done()
		results.questions, results.answers, results.qaErr = e.generateQAPairs(taskCtx, content)
	}()
	go func() {
		defer wg.Done()
		results.topics, results.topicsErr = e.extractTopics(taskCtx, content)
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		// Tasks that honor the context return once the budget expires; a
		// blown budget degrades the whole stage even when they finish first.
		if taskCtx.Err() != nil {
			e.logger.Error("Content enrichment timed out, degrading whole stage",
				slog.String("document", doc.Title),
				slog.Duration("budget", 2*e.cfg.Timeout))
			return e.fallbackResult(doc, start)
		}
	case <-taskCtx.Done():
		e.logger.Error("Content enrichment timed out, degrading whole stage",
			slog.String("document", doc.Title),
			slog.Duration("budget", 2*e.cfg.Timeout))
		return e.fallbackResult(doc, start)
	}

	degraded := 0

	summary := results.summary
	if results.summaryErr != nil || len(strings.TrimSpace(summary)) < 50 {
		e.logTaskFailure("summary", results.summaryErr)
		summary = fallbackSummary(content, doc.Title)
		degraded++
	}

	keyPoints := results.keyPoints
	if results.keyPointsErr != nil || len(keyPoints) < 3 {
		e.logTaskFailure("key_points", results.keyPointsErr)
		keyPoints = fallbackKeyPoints(doc.Content)
		degraded++
	}

	questions, answers := results.questions, results.answers
	if results.qaErr != nil || !validQAPairs(questions, answers) {
		e.logTaskFailure("qa_pairs", results.qaErr)
		questions, answers = fallbackQA(doc)
		degraded++
	}

	topics := results.topics
	if results.topicsErr != nil || len(topics) < 3 {
		e.logTaskFailure("topics", results.topicsErr)
		topics = fallbackTopics(doc.Title)
		degraded++
	}

	result := &pipeline_type.EnrichmentResult{
		Summary:         strings.TrimSpace(summary),
		KeyPoints:       trimAll(keyPoints),
		Questions:       trimAll(questions),
		Answers:         trimAll(answers),
		Topics:          trimAll(topics),
		Model:           e.cfg.Model,
		DegradedFields:  degraded,
		ProcessingTime:  time.Since(start),
		ContentConsumed: len(content),
	}
	result.QualityScore = qualityScore(result)

	e.logger.Info("Content enrichment completed",
		slog.String("document", doc.Title),
		slog.Int("qa_pairs", len(result.Questions)),
		slog.Int("degraded_fields", degraded),
		slog.Float64("quality_score", result.QualityScore),
		slog.Duration("elapsed", result.ProcessingTime))

	return result
}

func (e *ContentEnricher) logTaskFailure(task string, err error) {
	enhErr := &pipeline_type.EnhancementError{Task: task, Err: err}
	e.logger.Warn("Enrichment sub-task degraded to fallback",
		slog.String("task", task),
		slog.String("error", enhErr.Error()))
}

// fallbackResult degrades every field at once, used when the shared budget
// is exceeded.
func (e *ContentEnricher) fallbackResult(doc *pipeline_type.RawDocument, start time.Time) *pipeline_type.EnrichmentResult {
	content := e.prepareContent(doc.Content)
	questions, answers := fallbackQA(doc)

	result := &pipeline_type.EnrichmentResult{
		Summary:         fallbackSummary(content, doc.Title),
		KeyPoints:       fallbackKeyPoints(doc.Content),
		Questions:       questions,
		Answers:         answers,
		Topics:          fallbackTopics(doc.Title),
		Model:           "fallback",
		DegradedFields:  4,
		ProcessingTime:  time.Since(start),
		ContentConsumed: len(content),
	}
	result.QualityScore = qualityScore(result)
	return result
}

var (
	newlineRunRe = regexp.MustCompile(`\n{3,}`)
	blankRunRe   = regexp.MustCompile(`[ \t]+`)
)

// prepareContent normalizes whitespace and truncates the LLM-facing copy to
// the input ceiling, preferring a sentence boundary within the last 20%.
func (e *ContentEnricher) prepareContent(raw string) string {
	content := newlineRunRe.ReplaceAllString(raw, "\n\n")
	content = blankRunRe.ReplaceAllString(content, " ")
	content = strings.TrimSpace(content)

	if len(content) > e.cfg.InputLimit {
		truncated := content[:e.cfg.InputLimit]
		lastPeriod := strings.LastIndex(truncated, ".")
		if lastPeriod > int(float64(e.cfg.InputLimit)*0.8) {
			content = truncated[:lastPeriod+1]
		} else {
			content = truncated
		}
	}

	return content
}

// callLLM issues one completion call. Calls are bounded only by the shared
// stage budget carried in ctx, never individually.
func (e *ContentEnricher) callLLM(ctx context.Context, prompt string) (string, error) {
	config := map[string]interface{}{
		"api_url":    e.cfg.APIURL,
		"api_key":    e.cfg.APIKey,
		"model_name": e.cfg.Model,
	}
	return e.llm.CallLLM(ctx, config, prompt)
}

func (e *ContentEnricher) generateSummary(ctx context.Context, content, title string) (string, error) {
	response, err := e.callLLM(ctx, summaryPrompt(content, title, e.cfg.MaxSummaryWords))
	if err != nil {
		return "", err
	}
	return cleanLLMOutput(response), nil
}

func (e *ContentEnricher) generateKeyPoints(ctx context.Context, content string) ([]string, error) {
	response, err := e.callLLM(ctx, keyPointsPrompt(content, e.cfg.MaxKeyPoints))
	if err != nil {
		return nil, err
	}
	points := parseNumberedList(response)
	if len(points) > e.cfg.MaxKeyPoints {
		points = points[:e.cfg.MaxKeyPoints]
	}
	return points, nil
}

func (e *ContentEnricher) generateQAPairs(ctx context.Context, content string) ([]string, []string, error) {
	response, err := e.callLLM(ctx, qaPrompt(content, e.cfg.NumQAPairs))
	if err != nil {
		return nil, nil, err
	}
	questions, answers := parseQAPairs(response)
	return questions, answers, nil
}

func (e *ContentEnricher) extractTopics(ctx context.Context, content string) ([]string, error) {
	response, err := e.callLLM(ctx, topicsPrompt(content, e.cfg.MaxTopics))
	if err != nil {
		return nil, err
	}
	topics := parseTopicList(response)
	if len(topics) > e.cfg.MaxTopics {
		topics = topics[:e.cfg.MaxTopics]
	}
	return topics, nil
}

// validQAPairs checks the pairing invariant before a model response is
// accepted: 1:1 pairing, at least 3 pairs, substantial text, questions end
// with a question mark.
func validQAPairs(questions, answers []string) bool {
	if len(questions) != len(answers) || len(questions) < 3 {
		return false
	}
	for i := range questions {
		q := strings.TrimSpace(questions[i])
		a := strings.TrimSpace(answers[i])
		if len(q) < 10 || len(a) < 20 {
			return false
		}
		if !strings.HasSuffix(q, "?") {
			return false
		}
	}
	return true
}

// qualityScore is computed from structural properties of the outputs, not
// from anything the model reports, so it is reproducible in tests. Each
// degraded field costs a flat penalty, which keeps an all-fallback result at
// or below 0.4.
func qualityScore(r *pipeline_type.EnrichmentResult) float64 {
	score := 0.0

	if len(r.Summary) >= 100 {
		score += 0.2
	}
	if len(strings.Fields(r.Summary)) >= 50 {
		score += 0.2
	}

	if len(r.KeyPoints) >= 5 {
		score += 0.15
	}
	if allAtLeast(r.KeyPoints, 20) {
		score += 0.15
	}

	if len(r.Questions) >= 3 {
		score += 0.15
	}
	if allAtLeast(r.Answers, 30) {
		score += 0.15
	}

	score -= 0.15 * float64(r.DegradedFields)
	if score < 0.05 {
		score = 0.05
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}

func allAtLeast(items []string, minLen int) bool {
	for _, item := range items {
		if len(item) < minLen {
			return false
		}
	}
	return len(items) > 0
}

func trimAll(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if trimmed := strings.TrimSpace(item); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
