package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"
	"text/template"

	"github.com/custodia-labs/meetsight/internal/core/domain"
	"github.com/custodia-labs/meetsight/internal/core/ports/driven"
	"github.com/custodia-labs/meetsight/internal/logger"
)

var (
	codeFencePattern     = regexp.MustCompile("(?s)```[A-Za-z0-9_-]*\\s*(.*?)\\s*```")
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// Extractor turns retrieved context plus an instruction into a validated
// Insight. The generative model is treated as an untrusted text source:
// its output is parsed strictly, repaired at most once, then validated
// against the record schema of the requested kind.
type Extractor struct {
	llm     driven.LLMService
	prompts driven.PromptStore
	retry   RetryPolicy
	opts    driven.GenerateOptions
}

// NewExtractor creates a new extractor. prompts may be nil, in which
// case the built-in template is used.
func NewExtractor(
	llm driven.LLMService,
	prompts driven.PromptStore,
	retry RetryPolicy,
	opts driven.GenerateOptions,
) *Extractor {
	return &Extractor{
		llm:     llm,
		prompts: prompts,
		retry:   retry,
		opts:    opts,
	}
}

// BuildPrompt renders the extraction prompt. The same request always
// yields the same prompt.
func (e *Extractor) BuildPrompt(req domain.InsightRequest) (string, error) {
	tmpl, err := template.New(driven.PromptInsight).Parse(e.loadTemplate())
	if err != nil {
		return "", fmt.Errorf("parse prompt template: %w", err)
	}

	var buf bytes.Buffer
	err = tmpl.Execute(&buf, struct {
		Context     string
		Instruction string
		Contract    string
	}{
		Context:     strings.TrimSpace(req.Context),
		Instruction: strings.TrimSpace(req.Instruction),
		Contract:    outputContract(req.Kind),
	})
	if err != nil {
		return "", fmt.Errorf("render prompt: %w", err)
	}
	return buf.String(), nil
}

func (e *Extractor) loadTemplate() string {
	if e.prompts == nil {
		return defaultInsightPrompt
	}
	prompt, err := e.prompts.Load(driven.PromptInsight)
	if err != nil || strings.TrimSpace(prompt) == "" {
		logger.Debug("Using built-in insight prompt: %v", err)
		return defaultInsightPrompt
	}
	return prompt
}

// Extract generates and parses an insight.
//
// A returned error means the generation itself failed (domain.ErrGeneration,
// domain.ErrUnexpectedResponse) or the request was invalid. Output that
// does not satisfy the JSON contract is not an error here: it comes back
// as a failed Extraction so callers decide how to degrade.
func (e *Extractor) Extract(ctx context.Context, req domain.InsightRequest) (domain.Extraction, error) {
	if err := req.Validate(); err != nil {
		return domain.Extraction{}, fmt.Errorf("extract: %w", err)
	}

	prompt, err := e.BuildPrompt(req)
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("extract: %w", err)
	}

	var raw string
	err = e.retry.Do(ctx, "generate "+req.Kind.String(), func(ctx context.Context) error {
		var err error
		raw, err = e.llm.Generate(ctx, prompt, e.opts)
		return err
	})
	if err != nil {
		return domain.Extraction{}, fmt.Errorf("extract %s: %w", req.Kind, err)
	}

	result := ParseInsight(req.Kind, raw)
	if !result.OK() {
		logger.Warn("Model output for %s failed validation: %s", req.Kind, result.Failure.Reason)
		logger.Debug("Raw model output for %s: %q", req.Kind, raw)
	}
	return result, nil
}

// ParseInsight applies the parse policy to raw model output:
// strict parse, one repair attempt, then schema validation.
func ParseInsight(kind domain.InsightKind, raw string) domain.Extraction {
	obj, err := decodeObject(raw)
	if err != nil {
		repaired := repairJSON(raw)
		if repaired == raw {
			return domain.Failed(kind, raw, "invalid JSON: "+err.Error())
		}
		obj, err = decodeObject(repaired)
		if err != nil {
			return domain.Failed(kind, raw, "invalid JSON after repair: "+err.Error())
		}
		logger.Debug("Repaired model output for %s", kind)
	}

	insight, err := validateInsight(kind, obj)
	if err != nil {
		return domain.Failed(kind, raw, err.Error())
	}
	return domain.Ok(insight)
}

// decodeObject parses exactly one JSON object with nothing after it.
func decodeObject(raw string) (map[string]any, error) {
	dec := json.NewDecoder(strings.NewReader(raw))

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("trailing data after JSON value")
	}

	obj, ok := v.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("top-level value is %s, not an object", jsonType(v))
	}
	return obj, nil
}

// repairJSON strips the wrapping artifacts models commonly add:
// markdown fences, prose around the object and trailing commas.
func repairJSON(raw string) string {
	s := strings.TrimSpace(raw)

	if m := codeFencePattern.FindStringSubmatch(s); m != nil {
		s = m[1]
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		s = s[start : end+1]
	}

	return trailingCommaPattern.ReplaceAllString(s, "$1")
}

func validateInsight(kind domain.InsightKind, obj map[string]any) (*domain.Insight, error) {
	insight := &domain.Insight{Kind: kind}

	if kind != domain.KindAnswer {
		v, ok := obj[kind.String()]
		if !ok {
			return nil, fmt.Errorf("missing top-level key %q", kind)
		}
		if err := decodeRecords(insight, kind, v); err != nil {
			return nil, err
		}
		return insight, nil
	}

	found := false
	if v, ok := obj["answer"]; ok && v != nil {
		text, isString := v.(string)
		if !isString {
			return nil, fmt.Errorf(`"answer" is %s, not a string`, jsonType(v))
		}
		insight.Text = strings.TrimSpace(text)
		found = insight.Text != ""
	}
	for _, k := range domain.SummaryKinds {
		v, ok := obj[k.String()]
		if !ok {
			continue
		}
		if err := decodeRecords(insight, k, v); err != nil {
			return nil, err
		}
		found = true
	}
	if !found {
		return nil, errors.New(`no "answer" text and no recognised keys`)
	}
	return insight, nil
}

// decodeRecords validates an array of records for kind and stores it on insight.
func decodeRecords(insight *domain.Insight, kind domain.InsightKind, v any) error {
	items, ok := v.([]any)
	if !ok {
		return fmt.Errorf("%q is %s, not an array", kind, jsonType(v))
	}

	required, optional := kind.RecordFields()
	records := make([]map[string]string, 0, len(items))
	for n, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return fmt.Errorf("%s[%d] is %s, not an object", kind, n, jsonType(item))
		}

		rec := make(map[string]string, len(required)+len(optional))
		for _, field := range required {
			s, ok := obj[field].(string)
			if !ok || strings.TrimSpace(s) == "" {
				return fmt.Errorf("%s[%d] is missing required string field %q", kind, n, field)
			}
			rec[field] = strings.TrimSpace(s)
		}
		for _, field := range optional {
			fv, present := obj[field]
			if !present || fv == nil {
				continue
			}
			s, ok := fv.(string)
			if !ok {
				return fmt.Errorf("%s[%d] field %q is %s, not a string", kind, n, field, jsonType(fv))
			}
			rec[field] = strings.TrimSpace(s)
		}
		records = append(records, rec)
	}

	switch kind {
	case domain.KindActionItems:
		insight.ActionItems = make([]domain.ActionItem, len(records))
		for n, r := range records {
			insight.ActionItems[n] = domain.ActionItem{Description: r["description"], Owner: r["owner"], Due: r["due"]}
		}
	case domain.KindDecisions:
		insight.Decisions = make([]domain.Decision, len(records))
		for n, r := range records {
			insight.Decisions[n] = domain.Decision{Description: r["description"], MadeBy: r["made_by"]}
		}
	case domain.KindParticipantInteractions:
		insight.ParticipantInteractions = make([]domain.ParticipantInteraction, len(records))
		for n, r := range records {
			insight.ParticipantInteractions[n] = domain.ParticipantInteraction{
				Participant: r["participant"],
				Description: r["description"],
				With:        r["with"],
			}
		}
	}
	return nil
}

func jsonType(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "a string"
	case float64, json.Number:
		return "a number"
	case bool:
		return "a boolean"
	case []any:
		return "an array"
	case map[string]any:
		return "an object"
	default:
		return fmt.Sprintf("%T", v)
	}
}
