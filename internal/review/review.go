package review

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pagealign/internal/ai"
	"github.com/local/pagealign/internal/aicache"
	"github.com/local/pagealign/internal/config"
	"github.com/local/pagealign/internal/limiter"
	"github.com/local/pagealign/internal/metrics"
)

const promptTemplate = `You are reviewing evidence snippets for a disclosure QA dataset.

Snippet:
<<<%s>>>

Questions:
%s

For each question decide if this snippet truly belongs in that question's evidence.
Respond with JSON in the following structure (no backticks):
{
  "decisions": [
    {"question_id": "...", "belongs": true/false, "confidence": 0.0-1.0, "rationale": "short justification"}
  ],
  "notes": "optional reviewer notes or empty string"
}

Make the rationale specific to the question wording (cite clauses such as "mentions lawsuits" or
"only discusses product marketing, not water pollution").`

// Decision is the LLM verdict for one (question, snippet) attachment.
type Decision struct {
	QuestionID string  `json:"question_id"`
	Belongs    bool    `json:"belongs"`
	Confidence float64 `json:"confidence"`
	Rationale  string  `json:"rationale"`
}

// Output is the parsed LLM response for one group.
type Output struct {
	Decisions []Decision `json:"decisions"`
	Notes     string     `json:"notes"`
}

// Record is one reviewed group as persisted to JSONL.
type Record struct {
	Snippet    string  `json:"snippet"`
	Questions  []Entry `json:"questions"`
	LLMOutput  Output  `json:"llm_output"`
	SourceFile string  `json:"source_file"`
	Provider   string  `json:"provider,omitempty"`
	Model      string  `json:"model,omitempty"`
}

// Reviewer arbitrates duplicate groups with provider failover, a redis
// response cache and a per-provider breaker. Cache and breaker are optional.
type Reviewer struct {
	providers config.ProvidersConfig
	openai    ai.Client
	anthropic ai.Client
	cache     *aicache.Cache
	breaker   *limiter.Breaker
}

// NewReviewer wires a reviewer from configuration.
func NewReviewer(providers config.ProvidersConfig, cache *aicache.Cache, breaker *limiter.Breaker) *Reviewer {
	return &Reviewer{
		providers: providers,
		openai:    ai.NewOpenAIClient(),
		anthropic: ai.NewAnthropicClient(),
		cache:     cache,
		breaker:   breaker,
	}
}

// ReviewGroup asks the LLM whether the group's snippet belongs on each of its
// questions.
func (r *Reviewer) ReviewGroup(ctx context.Context, g Group) (Record, error) {
	prompt := fmt.Sprintf(promptTemplate, g.Text, questionBlock(g.Entries))

	if r.cache != nil {
		key := aicache.Key("cross_question_review", prompt)
		if cached, err := r.cache.Get(ctx, key); err == nil && cached != "" {
			metrics.IncCacheLookup("hit")
			var rec Record
			if err := json.Unmarshal([]byte(cached), &rec); err == nil {
				return rec, nil
			}
			// unparsable cache entry falls through to a fresh call
		}
		metrics.IncCacheLookup("miss")
	}

	text, provider, model, err := r.call(ctx, prompt)
	if err != nil {
		return Record{}, err
	}

	out, err := parseOutput(text)
	if err != nil {
		return Record{}, fmt.Errorf("llm response was not the expected JSON: %w", err)
	}

	rec := Record{
		Snippet:    g.Text,
		Questions:  g.Entries,
		LLMOutput:  out,
		SourceFile: g.File,
		Provider:   provider,
		Model:      model,
	}

	if r.cache != nil {
		if data, err := json.Marshal(rec); err == nil {
			key := aicache.Key("cross_question_review", prompt)
			if err := r.cache.Put(ctx, key, string(data)); err != nil {
				log.Warn().Err(err).Msg("failed to cache review record")
			}
		}
	}
	return rec, nil
}

// call runs the failover ladder: primary provider primary model; on rate
// limit the same provider's secondary model; then the secondary provider.
func (r *Reviewer) call(ctx context.Context, prompt string) (text, provider, model string, err error) {
	primary := r.providers.PrimaryEngine
	secondary := r.providers.SecondaryEngine

	attempt := func(prov, mdl string) (string, error) {
		if r.breaker != nil && r.breaker.IsOpen(ctx, prov, mdl) {
			return "", ai.ErrRateLimited
		}
		client := r.client(prov)
		cctx, cancel := context.WithTimeout(ctx, r.providers.RequestTimeout)
		defer cancel()

		start := time.Now()
		resp, err := client.Do(cctx, ai.Request{Model: mdl, Prompt: prompt})
		if err != nil {
			result := "error"
			if ai.IsRateLimited(err) {
				result = "rate_limited"
				if r.breaker != nil {
					r.breaker.Open(ctx, prov, mdl)
				}
			}
			metrics.ObserveProvider(prov, mdl, result, time.Since(start))
			return "", err
		}
		metrics.ObserveProvider(prov, mdl, "success", time.Since(start))
		if r.breaker != nil {
			r.breaker.Reset(ctx, prov, mdl)
		}
		return resp.Text, nil
	}

	pModel := r.primaryModel(primary)
	if text, err := attempt(primary, pModel); err == nil {
		return text, primary, pModel, nil
	} else if ai.IsRateLimited(err) {
		if sModel := r.secondaryModel(primary); sModel != "" {
			if text, err2 := attempt(primary, sModel); err2 == nil {
				return text, primary, sModel, nil
			}
		}
	}

	spModel := r.primaryModel(secondary)
	if text, err := attempt(secondary, spModel); err == nil {
		return text, secondary, spModel, nil
	}
	return "", "", "", errors.New("all review providers failed")
}

func (r *Reviewer) client(provider string) ai.Client {
	if strings.ToLower(provider) == "anthropic" {
		return r.anthropic
	}
	return r.openai
}

func (r *Reviewer) primaryModel(provider string) string {
	if strings.ToLower(provider) == "anthropic" {
		return r.providers.Anthropic.Primary
	}
	return r.providers.OpenAI.Primary
}

func (r *Reviewer) secondaryModel(provider string) string {
	if strings.ToLower(provider) == "anthropic" {
		return r.providers.Anthropic.Secondary
	}
	return r.providers.OpenAI.Secondary
}

// questionBlock renders the numbered question list for the prompt.
func questionBlock(entries []Entry) string {
	var b strings.Builder
	for i, e := range entries {
		qText := strings.TrimSpace(strings.ReplaceAll(e.QuestionText, "\n", " "))
		fmt.Fprintf(&b, "%d) %s [%s] - %s", i+1, e.QuestionID, e.Category, qText)
		if i < len(entries)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// parseOutput decodes the decision JSON, tolerating code fences some models
// wrap around it despite instructions.
func parseOutput(text string) (Output, error) {
	t := strings.TrimSpace(text)
	if strings.HasPrefix(t, "```") {
		t = strings.TrimPrefix(t, "```json")
		t = strings.TrimPrefix(t, "```")
		t = strings.TrimSuffix(strings.TrimSpace(t), "```")
		t = strings.TrimSpace(t)
	}

	var out Output
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return Output{}, err
	}
	if len(out.Decisions) == 0 {
		return Output{}, errors.New("no decisions in response")
	}
	return out, nil
}
