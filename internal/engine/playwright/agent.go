package playwright

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/oklog/ulid/v2"
	"github.com/playwright-community/playwright-go"

	"github.com/slok/bua/internal/engine"
	"github.com/slok/bua/internal/log"
	"github.com/slok/bua/internal/model"
)

const systemPrompt = `You are a browser automation agent. On every step you receive the task,
the current page state and the actions taken so far. Respond with a single
JSON object, no markdown fences, of the shape:

{"thought": "<your reasoning>", "actions": [<one or more actions>]}

Available actions:
  {"type": "navigate", "url": "<absolute url>"}
  {"type": "click", "selector": "<css selector>"}
  {"type": "input", "selector": "<css selector>", "text": "<text to type>"}
  {"type": "extract", "selector": "<css selector, optional>"}
  {"type": "done", "result": <final answer, string or JSON object>}

Emit "done" as soon as the task is complete.`

const maxObservationChars = 2000

// agent drives one task through the page, asking the model for the next
// actions on every step.
type agent struct {
	id     string
	cfg    engine.AgentConfig
	page   playwright.Page
	logger log.Logger
}

func newAgent(cfg engine.AgentConfig, page playwright.Page, logger log.Logger) *agent {
	id := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	return &agent{
		id:     id,
		cfg:    cfg,
		page:   page,
		logger: logger.WithValues(log.Kv{"run": id}),
	}
}

type agentStep struct {
	Thought string        `json:"thought"`
	Actions []agentAction `json:"actions"`
}

type agentAction struct {
	Type     string          `json:"type"`
	URL      string          `json:"url,omitempty"`
	Selector string          `json:"selector,omitempty"`
	Text     string          `json:"text,omitempty"`
	Result   json.RawMessage `json:"result,omitempty"`
}

// Run drives the task, bounded by maxSteps.
func (a *agent) Run(ctx context.Context, maxSteps int) (*engine.RunResult, error) {
	result := &engine.RunResult{ID: a.id}

	var transcript []string
	lastExtract := ""

	for step := 1; step <= maxSteps; step++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		reply, err := a.cfg.Model.Complete(ctx, systemPrompt, a.stepPrompt(step, transcript))
		if err != nil {
			result.Errors = append(result.Errors, model.TextResult(fmt.Sprintf("step %d: model call failed: %v", step, err)))
			break
		}

		parsed, err := parseStep(reply)
		if err != nil {
			result.Errors = append(result.Errors, model.TextResult(fmt.Sprintf("step %d: unparseable model reply: %v", step, err)))
			transcript = append(transcript, fmt.Sprintf("step %d: reply could not be parsed, reformulate", step))
			continue
		}

		if parsed.Thought != "" {
			result.ModelThoughts = append(result.ModelThoughts, model.TextResult(parsed.Thought))
		}

		actions := parsed.Actions
		if len(actions) > a.cfg.MaxActionsPerStep {
			actions = actions[:a.cfg.MaxActionsPerStep]
		}

		done := false
		for _, action := range actions {
			result.ModelActions = append(result.ModelActions, model.StructuredResult{Value: action})

			outcome, final, err := a.apply(ctx, action)
			if err != nil {
				result.Errors = append(result.Errors, model.TextResult(fmt.Sprintf("step %d: action %s failed: %v", step, action.Type, err)))
				transcript = append(transcript, fmt.Sprintf("step %d: %s failed: %v", step, action.Type, err))
				continue
			}

			if final != nil {
				result.FinalResult = final
				done = true
				break
			}
			if outcome != "" {
				lastExtract = outcome
				transcript = append(transcript, fmt.Sprintf("step %d: %s ok: %s", step, action.Type, truncate(outcome, 200)))
			} else {
				transcript = append(transcript, fmt.Sprintf("step %d: %s ok", step, action.Type))
			}
		}

		if done {
			break
		}
	}

	if result.FinalResult == nil {
		// Step ceiling hit without an explicit "done": fall back to the
		// last extracted content.
		result.FinalResult = model.TextResult(lastExtract)
		result.Errors = append(result.Errors, model.TextResult(fmt.Sprintf("run did not finish within %d steps", maxSteps)))
	}

	if err := a.persistHistory(result); err != nil {
		a.logger.Warningf("Could not persist run history: %v", err)
	}

	a.logger.Infof("Run finished (%d actions, %d errors)", len(result.ModelActions), len(result.Errors))

	return result, nil
}

func (a *agent) stepPrompt(step int, transcript []string) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "Task: %s\n", a.cfg.Task)
	if a.cfg.AddInfos != "" {
		fmt.Fprintf(&sb, "Additional information: %s\n", a.cfg.AddInfos)
	}
	fmt.Fprintf(&sb, "Step: %d\n", step)
	fmt.Fprintf(&sb, "Current URL: %s\n", a.page.URL())

	if title, err := a.page.Title(); err == nil && title != "" {
		fmt.Fprintf(&sb, "Page title: %s\n", title)
	}
	if text := a.pageText(); text != "" {
		fmt.Fprintf(&sb, "Page text:\n%s\n", text)
	}
	if len(transcript) > 0 {
		fmt.Fprintf(&sb, "Previous actions:\n%s\n", strings.Join(transcript, "\n"))
	}

	// TODO: attach a page screenshot when UseVision is set, once llm.Model
	// accepts image content.

	return sb.String()
}

func (a *agent) pageText() string {
	body, err := a.page.QuerySelector("body")
	if err != nil || body == nil {
		return ""
	}

	text, err := body.TextContent()
	if err != nil {
		return ""
	}

	return truncate(strings.TrimSpace(text), maxObservationChars)
}

// truncate caps s at max bytes without splitting a rune, so truncated page
// content stays valid UTF-8 in prompts and transcripts.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "…"
}

// apply executes a single action. It returns extracted content (when any)
// and the final result when the action terminates the run.
func (a *agent) apply(ctx context.Context, action agentAction) (outcome string, final model.ResultValue, err error) {
	switch action.Type {
	case "navigate":
		if action.URL == "" {
			return "", nil, fmt.Errorf("navigate without url")
		}
		_, err := a.page.Goto(action.URL)
		return "", nil, err

	case "click":
		if action.Selector == "" {
			return "", nil, fmt.Errorf("click without selector")
		}
		return "", nil, a.page.Locator(action.Selector).Click()

	case "input":
		if action.Selector == "" {
			return "", nil, fmt.Errorf("input without selector")
		}
		return "", nil, a.page.Locator(action.Selector).Fill(action.Text)

	case "extract":
		selector := action.Selector
		if selector == "" {
			selector = "body"
		}
		element, err := a.page.QuerySelector(selector)
		if err != nil {
			return "", nil, err
		}
		if element == nil {
			return "", nil, fmt.Errorf("no element matches %q", selector)
		}
		text, err := element.TextContent()
		if err != nil {
			return "", nil, err
		}
		return strings.TrimSpace(text), nil, nil

	case "done":
		return "", doneResult(action.Result), nil

	default:
		return "", nil, fmt.Errorf("unknown action type %q", action.Type)
	}
}

// doneResult maps the model's final answer to a result variant: JSON objects
// and arrays stay structured, everything else degrades to text.
func doneResult(raw json.RawMessage) model.ResultValue {
	if len(raw) == 0 {
		return model.TextResult("")
	}

	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return model.TextResult(string(raw))
	}

	switch v := value.(type) {
	case string:
		return model.TextResult(v)
	default:
		return model.StructuredResult{Value: v}
	}
}

func parseStep(reply string) (*agentStep, error) {
	reply = strings.TrimSpace(reply)

	// Models wrap JSON in markdown fences no matter what the prompt says.
	if strings.HasPrefix(reply, "```") {
		reply = strings.TrimPrefix(reply, "```json")
		reply = strings.TrimPrefix(reply, "```")
		reply = strings.TrimSuffix(reply, "```")
		reply = strings.TrimSpace(reply)
	}

	var step agentStep
	if err := json.Unmarshal([]byte(reply), &step); err != nil {
		return nil, err
	}
	if len(step.Actions) == 0 {
		return nil, fmt.Errorf("reply contains no actions")
	}

	return &step, nil
}

// historyRecord is the persisted artifact of one run.
type historyRecord struct {
	ID            string   `json:"id"`
	Task          string   `json:"task"`
	FinalResult   string   `json:"final_result"`
	Errors        []string `json:"errors"`
	ModelActions  []string `json:"model_actions"`
	ModelThoughts []string `json:"model_thoughts"`
	FinishedAt    string   `json:"finished_at"`
}

func (a *agent) persistHistory(result *engine.RunResult) error {
	if a.cfg.HistoryDir == "" {
		return nil
	}

	record := historyRecord{
		ID:          result.ID,
		Task:        a.cfg.Task,
		FinalResult: model.SerializeResult(result.FinalResult),
		FinishedAt:  time.Now().UTC().Format(time.RFC3339),
	}
	for _, v := range result.Errors {
		record.Errors = append(record.Errors, v.Serialize())
	}
	for _, v := range result.ModelActions {
		record.ModelActions = append(record.ModelActions, v.Serialize())
	}
	for _, v := range result.ModelThoughts {
		record.ModelThoughts = append(record.ModelThoughts, v.Serialize())
	}

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return fmt.Errorf("could not encode history: %w", err)
	}

	if err := os.MkdirAll(a.cfg.HistoryDir, 0o755); err != nil {
		return fmt.Errorf("could not create history dir: %w", err)
	}

	path := filepath.Join(a.cfg.HistoryDir, result.ID+".json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("could not write history: %w", err)
	}

	return nil
}
