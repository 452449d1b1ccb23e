package llm

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"

	"trading_journal/pkg/metrics"
	"trading_journal/pkg/tracing"
)

// ErrTimeout the model did not answer within Options.Timeout.
var ErrTimeout = errors.New("llm call timed out")

// Status of an Analyze outcome.
type Status string

const (
	StatusOK          Status = "ok"
	StatusInvalidJSON Status = "invalid_json"
	StatusCallFailed  Status = "call_failed"
)

type Options struct {
	Model         string
	FallbackModel string
	Timeout       time.Duration
}

// AnalyzeRequest prompt input plus schema version and answer language.
type AnalyzeRequest struct {
	Version string
	Input   PromptInput
}

// Outcome never carries a Go error; failures are described by Status.
type Outcome struct {
	Status     Status   `json:"status"`
	Insight    *Insight `json:"-"`
	RawText    string   `json:"-"`
	Model      string   `json:"model"`
	Coerced    bool     `json:"coerced"`
	Attempts   int      `json:"attempts"`
	DurationMs int64    `json:"durationMs"`
	Error      string   `json:"error,omitempty"`
}

// Orchestrator drives one structured analysis call with reprompt and fallback.
type Orchestrator struct {
	provider Provider
	opts     Options
}

func NewOrchestrator(provider Provider, opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	return &Orchestrator{provider: provider, opts: opts}
}

// Enabled false when no provider or model is configured.
func (o *Orchestrator) Enabled() bool {
	if o.provider == nil || o.opts.Model == "" {
		return false
	}
	if r, ok := o.provider.(*Router); ok {
		return !r.Empty()
	}
	return true
}

func (o *Orchestrator) Analyze(ctx context.Context, req AnalyzeRequest) Outcome {
	start := time.Now()
	version := NormalizeVersion(req.Version)
	if !o.Enabled() {
		return Outcome{Status: StatusCallFailed, Model: o.opts.Model, Error: "llm not configured"}
	}

	ctx, span := tracing.StartSpan(ctx, "llm.Analyze",
		attribute.String("model", o.opts.Model), attribute.String("schema", version))
	defer span.End()

	system, prompt, err := BuildPrompt(version, req.Input)
	if err != nil {
		return Outcome{Status: StatusCallFailed, Model: o.opts.Model, Error: err.Error()}
	}

	attempts := 0
	out, err := o.run(ctx, o.opts.Model, version, system, prompt, &attempts)
	if err != nil && o.opts.FallbackModel != "" && o.opts.FallbackModel != o.opts.Model {
		logrus.WithFields(logrus.Fields{
			"model":    o.opts.Model,
			"fallback": o.opts.FallbackModel,
		}).WithError(err).Warn("llm call failed, trying fallback model")
		out, err = o.run(ctx, o.opts.FallbackModel, version, system, prompt, &attempts)
	}
	if err != nil {
		tracing.RecordError(span, err)
		out = Outcome{Status: StatusCallFailed, Model: o.lastModel(), Error: err.Error()}
	}

	if out.Status == StatusInvalidJSON {
		out.Insight = Coerce(out.RawText, req.Input.Lang)
		out.Coerced = true
	}
	out.Attempts = attempts
	out.DurationMs = time.Since(start).Milliseconds()
	return out
}

func (o *Orchestrator) lastModel() string {
	if o.opts.FallbackModel != "" {
		return o.opts.FallbackModel
	}
	return o.opts.Model
}

// run one model: call, parse, one strict reprompt, raw text on second failure.
// The error is set only for call failures.
func (o *Orchestrator) run(ctx context.Context, model, version, system, prompt string, attempts *int) (Outcome, error) {
	*attempts++
	text, err := o.call(ctx, Request{Model: model, System: system, Prompt: prompt})
	if err != nil {
		metrics.LLMCalls.WithLabelValues(model, "call_failed").Inc()
		return Outcome{}, err
	}
	res := Parse(text, version)
	if res.Kind == ParseOK {
		metrics.LLMCalls.WithLabelValues(model, "ok").Inc()
		return Outcome{Status: StatusOK, Insight: res.Insight, RawText: text, Model: model}, nil
	}

	logrus.WithFields(logrus.Fields{
		"model":  model,
		"kind":   res.Kind.String(),
		"reason": res.Reason,
	}).Warn("llm answer rejected, reprompting for strict JSON")

	*attempts++
	text, err = o.call(ctx, Request{Model: model, System: system, Prompt: prompt + strictJSONReprompt})
	if err != nil {
		metrics.LLMCalls.WithLabelValues(model, "call_failed").Inc()
		return Outcome{}, err
	}
	res = Parse(text, version)
	if res.Kind == ParseOK {
		metrics.LLMCalls.WithLabelValues(model, "ok").Inc()
		return Outcome{Status: StatusOK, Insight: res.Insight, RawText: text, Model: model}, nil
	}
	metrics.LLMCalls.WithLabelValues(model, "invalid_json").Inc()
	return Outcome{Status: StatusInvalidJSON, RawText: text, Model: model, Error: res.Reason}, nil
}

// call races the provider against a timer on top of the context deadline.
func (o *Orchestrator) call(ctx context.Context, req Request) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, o.opts.Timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	go func() {
		text, err := o.provider.Generate(ctx, req)
		done <- result{text, err}
	}()

	timer := time.NewTimer(o.opts.Timeout)
	defer timer.Stop()

	select {
	case r := <-done:
		return r.text, r.err
	case <-timer.C:
		return "", fmt.Errorf("%w after %s", ErrTimeout, o.opts.Timeout)
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrTimeout, o.opts.Timeout)
		}
		return "", ctx.Err()
	}
}
