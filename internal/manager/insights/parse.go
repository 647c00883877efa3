// Package insights turns raw model output into validated StructuredInsight values.
package insights

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/code-sleuth/ike-tube/internal/manager/models"

	"github.com/go-playground/validator/v10"
)

var (
	ErrNoJSONObject       = errors.New("response contains no JSON object")
	ErrMissingFollowUps   = errors.New("need_more_data requires follow-up options")
	ErrSchemaVerification = errors.New("response does not match the insight schema")
)

var fencePattern = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n?(.*?)\\s*```$")

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterStructValidation(func(sl validator.StructLevel) {
		insight := sl.Current().Interface().(models.StructuredInsight)
		if insight.Action == models.ActionNeedMoreData && len(insight.FollowUpOptions) == 0 {
			sl.ReportError(insight.FollowUpOptions, "FollowUpOptions", "followUpOptions", "required_for_need_more_data", "")
		}
	}, models.StructuredInsight{})
	return v
}

// Result is the outcome of parsing one model response: either Valid or Degraded.
type Result interface {
	isResult()
}

// Valid holds an insight that passed schema validation.
type Valid struct {
	Insight *models.StructuredInsight
}

// Degraded holds a response that could not be parsed or validated.
type Degraded struct {
	Raw    string
	Reason error
}

func (Valid) isResult()    {}
func (Degraded) isResult() {}

// Parse strips an optional Markdown code fence, decodes the JSON object and
// validates it. It never fails; unusable output is returned as Degraded.
func Parse(raw string) Result {
	body, err := extractJSON(raw)
	if err != nil {
		return Degraded{Raw: raw, Reason: err}
	}

	var insight models.StructuredInsight
	if err := json.Unmarshal([]byte(body), &insight); err != nil {
		return Degraded{Raw: raw, Reason: fmt.Errorf("%w: %w", ErrSchemaVerification, err)}
	}

	Normalize(&insight)
	if err := Validate(&insight); err != nil {
		return Degraded{Raw: raw, Reason: err}
	}
	return Valid{Insight: &insight}
}

// Validate checks insight against the schema and the action rules.
func Validate(insight *models.StructuredInsight) error {
	if err := validate.Struct(insight); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			for _, fieldErr := range validationErrs {
				if fieldErr.Tag() == "required_for_need_more_data" {
					return ErrMissingFollowUps
				}
			}
		}
		return fmt.Errorf("%w: %w", ErrSchemaVerification, err)
	}
	return nil
}

// Normalize trims strings and drops optional fields that are present but
// empty, so every optional field is either populated or absent.
func Normalize(insight *models.StructuredInsight) {
	insight.Message = strings.TrimSpace(insight.Message)
	insight.Summary = strings.TrimSpace(insight.Summary)

	var followUps []string
	for _, option := range insight.FollowUpOptions {
		if option = strings.TrimSpace(option); option != "" {
			followUps = append(followUps, option)
		}
	}
	insight.FollowUpOptions = followUps

	if len(insight.Interests) == 0 {
		insight.Interests = nil
	}
	if len(insight.PersonalityTraits) == 0 {
		insight.PersonalityTraits = nil
	}
	if len(insight.TopTopics) == 0 {
		insight.TopTopics = nil
	}
	if style := insight.SpeakingStyle; style != nil &&
		style.Tone == "" && style.Vocabulary == "" && len(style.Patterns) == 0 {
		insight.SpeakingStyle = nil
	}

	// metrics are measured locally, never taken from the model
	insight.Metrics = nil
}

// Finalize converts a parse result into the insight returned to callers,
// attaching metrics. Degraded results become a provide_analysis insight whose
// message is the raw model text.
func Finalize(result Result, metrics models.Metrics) *models.StructuredInsight {
	switch r := result.(type) {
	case Valid:
		metrics.SchemaValidated = true
		insight := *r.Insight
		insight.Metrics = &metrics
		return &insight
	case Degraded:
		metrics.SchemaValidated = false
		return &models.StructuredInsight{
			Message: strings.TrimSpace(r.Raw),
			Action:  models.ActionProvideAnalysis,
			Metrics: &metrics,
		}
	default:
		panic(fmt.Sprintf("insights: unknown result type %T", result))
	}
}

func extractJSON(raw string) (string, error) {
	body := strings.TrimSpace(raw)
	if match := fencePattern.FindStringSubmatch(body); match != nil {
		body = strings.TrimSpace(match[1])
	}

	if strings.HasPrefix(body, "{") && strings.HasSuffix(body, "}") {
		return body, nil
	}

	// tolerate prose around the object
	start := strings.Index(body, "{")
	end := strings.LastIndex(body, "}")
	if start < 0 || end <= start {
		return "", ErrNoJSONObject
	}
	return body[start : end+1], nil
}
