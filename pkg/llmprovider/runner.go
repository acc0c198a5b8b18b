package llmprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/xeipuuv/gojsonschema"

	"github.com/vkhangpham/taxonomy-generation/pkg/config"
	"github.com/vkhangpham/taxonomy-generation/pkg/observability"
	"github.com/vkhangpham/taxonomy-generation/pkg/pipelineerr"
	"github.com/vkhangpham/taxonomy-generation/pkg/promptregistry"
)

// Runner composes prompt rendering, a Provider, retry-with-backoff,
// JSON-schema validation, a repair-prompt fallback, and quarantine
// into the single "call a named prompt and get back a validated
// payload" operation every stage (S1 extraction, S3 LLM verification,
// disambiguation, LLM validation) is built against.
type Runner struct {
	provider Provider
	registry *promptregistry.Registry
	settings config.LLMDeterminismSettings
	obs      *observability.ObservabilityContext
}

// NewRunner builds a Runner bound to provider, registry, and settings,
// reporting into obs.
func NewRunner(provider Provider, registry *promptregistry.Registry, settings config.LLMDeterminismSettings, obs *observability.ObservabilityContext) *Runner {
	return &Runner{provider: provider, registry: registry, settings: settings, obs: obs}
}

// Call renders promptKey against vars, invokes the provider with
// retry-with-backoff on ProviderError, validates the response against
// the prompt's JSON schema (when one is registered), and on invalid
// JSON or schema violation retries against "<promptKey>_repair". It
// makes at most repair.quarantine_after_attempts attempts in all,
// counting the first, before quarantining itemID and returning an
// error wrapping the last failure (ErrSchemaViolation or
// ErrInvalidJSON). The decoded payload is written
// into out (a pointer, e.g. *map[string]any or a typed struct).
func (r *Runner) Call(ctx context.Context, promptKey, itemID string, vars map[string]any, out any) error {
	version, err := r.registry.ActiveVersion(promptKey)
	if err != nil {
		return pipelineerr.New(promptKey, err)
	}
	r.obs.RegisterPromptVersion(promptKey, version)

	schemaPath, hasSchema := r.registry.SchemaPath(promptKey)

	key := promptKey
	callVars := vars
	var lastErr error
	attempts := r.settings.Repair.QuarantineAfterAttempts
	if attempts < 1 {
		attempts = 1
	}

	for attempt := 0; attempt < attempts; attempt++ {
		rendered, err := r.registry.Render(key, callVars)
		if err != nil {
			return pipelineerr.NewUnit(promptKey, itemID, err)
		}

		content, callErr := r.callWithBackoff(ctx, promptKey, rendered)
		if callErr != nil {
			lastErr = callErr
			r.obs.IncrementLabel("provider_errors", promptKey, 1)
			r.obs.Quarantine("provider_error", itemID, map[string]any{"prompt_key": promptKey, "error": callErr.Error()})
			return fmt.Errorf("%w: %v", pipelineerr.ErrProviderError, callErr)
		}

		if !json.Valid([]byte(content)) {
			lastErr = fmt.Errorf("%w: response is not valid json", pipelineerr.ErrInvalidJSON)
			r.obs.IncrementLabel("invalid_json", promptKey, 1)
			key, callVars = repairKey(promptKey), withRepairContext(vars, content, lastErr)
			continue
		}

		if hasSchema {
			if violations, err := validateSchema(schemaPath, content); err != nil {
				lastErr = fmt.Errorf("schema load: %w", err)
				break
			} else if len(violations) > 0 {
				lastErr = fmt.Errorf("%w: %v", pipelineerr.ErrSchemaViolation, violations)
				r.obs.IncrementLabel("schema_violations", promptKey, 1)
				r.obs.Sample("schema_violation", "failed", map[string]any{"prompt_key": promptKey, "violations": violations})
				key, callVars = repairKey(promptKey), withRepairContext(vars, content, lastErr)
				continue
			}
		}

		if err := json.Unmarshal([]byte(content), out); err != nil {
			lastErr = fmt.Errorf("%w: %v", pipelineerr.ErrInvalidJSON, err)
			key, callVars = repairKey(promptKey), withRepairContext(vars, content, lastErr)
			continue
		}

		r.obs.LogOperation(promptKey, "passed", map[string]any{"item_id": itemID, "attempt": attempt})
		return nil
	}

	r.obs.Quarantine("schema_violation", itemID, map[string]any{"prompt_key": promptKey, "error": lastErr.Error()})
	return pipelineerr.NewUnit(promptKey, itemID, lastErr)
}

// callWithBackoff wraps one provider.Call in exponential backoff
// governed by retry_attempts/retry_backoff_seconds, retrying only on
// ProviderError classified failures.
func (r *Runner) callWithBackoff(ctx context.Context, promptKey, rendered string) (string, error) {
	req := Request{
		PromptKey:   promptKey,
		Rendered:    rendered,
		Temperature: r.settings.Temperature,
		JSONMode:    r.settings.JSONMode,
		TokenBudget: r.settings.TokenBudget,
		Timeout:     time.Duration(r.settings.RequestTimeoutSecond * float64(time.Second)),
		Seed:        int64(r.settings.RandomSeed),
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = time.Duration(r.settings.RetryBackoffSeconds * float64(time.Second))
	retrier := backoff.WithMaxRetries(policy, uint64(r.settings.RetryAttempts))
	retrier = backoff.WithContext(retrier, ctx)

	var content string
	operation := func() error {
		resp, err := r.provider.Call(ctx, req)
		if err != nil {
			if !pipelineerr.Retryable(err) {
				return backoff.Permanent(err)
			}
			return err
		}
		content = resp.Content
		r.obs.RecordPerformance(promptKey+"_input_tokens", float64(resp.Usage.InputTokens))
		r.obs.RecordPerformance(promptKey+"_output_tokens", float64(resp.Usage.OutputTokens))
		return nil
	}

	if err := backoff.Retry(operation, retrier); err != nil {
		return "", err
	}
	return content, nil
}

// repairKey names the "_repair" variant of a failed prompt key.
func repairKey(promptKey string) string {
	return promptKey + "_repair"
}

// withRepairContext copies vars and adds the prior failed response and
// error so the repair template can reference what went wrong.
func withRepairContext(vars map[string]any, priorResponse string, priorErr error) map[string]any {
	out := make(map[string]any, len(vars)+2)
	for k, v := range vars {
		out[k] = v
	}
	out["prior_response"] = priorResponse
	out["prior_error"] = priorErr.Error()
	return out
}

// validateSchema loads the JSON schema at path and validates content
// against it, returning the list of violation descriptions.
func validateSchema(path, content string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: read schema %s: %w", path, err)
	}
	schemaLoader := gojsonschema.NewBytesLoader(data)
	docLoader := gojsonschema.NewStringLoader(content)
	result, err := gojsonschema.Validate(schemaLoader, docLoader)
	if err != nil {
		return nil, fmt.Errorf("llmprovider: validate against %s: %w", path, err)
	}
	if result.Valid() {
		return nil, nil
	}
	violations := make([]string, 0, len(result.Errors()))
	for _, e := range result.Errors() {
		violations = append(violations, e.String())
	}
	return violations, nil
}
