package advisory

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"quorum/internal/pkg/jsonutil"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"github.com/tidwall/gjson"
)

// Advisory answers only need to be an object naming a direction; field level
// problems are left to Normalize.
const advisorySchema = `{
  "type": "object",
  "anyOf": [
    {"required": ["decision"]},
    {"required": ["direction"]},
    {"required": ["action"]}
  ]
}`

const sentimentSchema = `{
  "type": "object",
  "required": ["sentiment"]
}`

var (
	schemaOnce       sync.Once
	advisorySchemaC  *jsonschema.Schema
	sentimentSchemaC *jsonschema.Schema
	schemaErr        error
)

func compiledSchemas() (*jsonschema.Schema, *jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compile := func(name, doc string) (*jsonschema.Schema, error) {
			compiler := jsonschema.NewCompiler()
			if err := compiler.AddResource(name, strings.NewReader(doc)); err != nil {
				return nil, err
			}
			return compiler.Compile(name)
		}
		advisorySchemaC, schemaErr = compile("advisory.json", advisorySchema)
		if schemaErr != nil {
			return
		}
		sentimentSchemaC, schemaErr = compile("sentiment.json", sentimentSchema)
	})
	return advisorySchemaC, sentimentSchemaC, schemaErr
}

// ParseAdvisory extracts and normalizes an AdvisorySet from model output.
func ParseAdvisory(text string) (AdvisorySet, error) {
	doc, err := extractDocument(text, func(a, _ *jsonschema.Schema) *jsonschema.Schema { return a })
	if err != nil {
		return AdvisorySet{}, err
	}
	return Normalize(Raw{
		Direction:      first(doc, "decision", "direction", "action").String(),
		Confidence:     number(first(doc, "confidence")),
		Size:           number(first(doc, "position_size", "suggested_size", "size")),
		Risk:           number(first(doc, "risk_level", "risk")),
		ExpectedReturn: number(first(doc, "expected_return")),
		StopLoss:       number(first(doc, "stop_loss")),
		TakeProfit:     number(first(doc, "take_profit")),
		Horizon:        first(doc, "timeframe", "horizon").String(),
		Rationale:      first(doc, "reasoning", "rationale").String(),
	}), nil
}

// ParseSentimentAdvisory extracts and normalizes a SentimentAdvisory from model output.
func ParseSentimentAdvisory(text string) (SentimentAdvisory, error) {
	doc, err := extractDocument(text, func(_, s *jsonschema.Schema) *jsonschema.Schema { return s })
	if err != nil {
		return SentimentAdvisory{}, err
	}
	summary := first(doc, "summary").String()
	if summary == "" {
		if factors := doc.Get("key_factors"); factors.IsArray() {
			parts := make([]string, 0, len(factors.Array()))
			for _, f := range factors.Array() {
				parts = append(parts, strings.TrimSpace(f.String()))
			}
			summary = strings.Join(parts, "; ")
		}
	}
	return NormalizeSentiment(RawSentiment{
		Sentiment:  first(doc, "sentiment").String(),
		Confidence: number(first(doc, "confidence")),
		Impact:     first(doc, "market_impact", "impact").String(),
		Summary:    summary,
	}), nil
}

func extractDocument(text string, pick func(a, s *jsonschema.Schema) *jsonschema.Schema) (gjson.Result, error) {
	raw, ok := jsonutil.ExtractObject(text)
	if !ok || !gjson.Valid(raw) {
		return gjson.Result{}, fmt.Errorf("%w: no JSON object in response", ErrUnavailable)
	}
	advisoryS, sentimentS, err := compiledSchemas()
	if err != nil {
		return gjson.Result{}, fmt.Errorf("compile advisory schema: %w", err)
	}
	var decoded any
	if err := json.Unmarshal([]byte(raw), &decoded); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if err := pick(advisoryS, sentimentS).Validate(decoded); err != nil {
		return gjson.Result{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return gjson.Parse(raw), nil
}

func first(doc gjson.Result, keys ...string) gjson.Result {
	for _, k := range keys {
		if v := doc.Get(k); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// number reads numeric fields that models sometimes quote or suffix with "%".
func number(v gjson.Result) *float64 {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		return &f
	case gjson.String:
		s := strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(v.Str), "%"))
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}
