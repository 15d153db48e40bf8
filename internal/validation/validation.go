// Package validation checks quiz authoring payloads before they reach the store.
package validation

import (
	"bytes"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"
	"reflect"
	"slices"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/victornm/quizzer/internal/domain"
	"github.com/victornm/quizzer/internal/errors"
)

type createQuizRequest struct {
	Title     string                  `json:"title" validate:"required,min=3,max=100"`
	Questions []createQuestionRequest `json:"questions" validate:"required,min=1,dive"`
}

type createQuestionRequest struct {
	Text           string   `json:"text" validate:"required,min=3,max=500"`
	Type           string   `json:"type" validate:"required,oneof=boolean input checkbox"`
	Options        []string `json:"options" validate:"omitempty,min=1"`
	CorrectAnswers []string `json:"correctAnswers" validate:"omitempty,min=1"`
}

var (
	quizFields     = []string{"title", "questions"}
	questionFields = []string{"text", "type", "options", "correctAnswers"}
)

// messages maps "<field>.<tag>" to the message shown to authors.
var messages = map[string]string{
	"title.required":     "Quiz title cannot be empty",
	"title.min":          "Quiz title must be at least 3 characters long",
	"title.max":          "Quiz title cannot exceed 100 characters",
	"questions.required": "Quiz must contain at least 1 question",
	"questions.min":      "Quiz must contain at least 1 question",
	"text.required":      "Question text cannot be empty",
	"text.min":           "Question text must be at least 3 characters long",
	"text.max":           "Question text cannot exceed 500 characters",
	"type.required":      "Question type cannot be empty",
	"type.oneof":         "Question type must be one of: boolean, input, checkbox",
	"options.min":        "There must be at least 1 option",
	"correctAnswers.min": "There must be at least 1 correct answer",
}

// Validator validates authoring payloads. It is safe for concurrent use.
type Validator struct {
	v *validator.Validate
}

func New() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{v: v}
}

// ValidateCreateQuiz decodes and checks a create-quiz payload. Unknown fields are rejected at
// any depth, and a failure in any question rejects the whole payload. On success it returns a
// draft holding exactly the declared fields, with omitted options and correctAnswers set to
// empty lists.
func (v *Validator) ValidateCreateQuiz(body []byte) (domain.QuizDraft, error) {
	var req createQuizRequest
	if err := decodeStrict(body, &req); err != nil {
		return domain.QuizDraft{}, err
	}
	if err := checkFields(body); err != nil {
		return domain.QuizDraft{}, err
	}

	if err := v.v.Struct(req); err != nil {
		return domain.QuizDraft{}, invalid(err)
	}

	draft := domain.QuizDraft{
		Title:     req.Title,
		Questions: make([]domain.QuestionDraft, 0, len(req.Questions)),
	}
	for _, q := range req.Questions {
		draft.Questions = append(draft.Questions, domain.QuestionDraft{
			Text:           q.Text,
			Type:           domain.QuestionType(q.Type),
			Options:        orEmpty(q.Options),
			CorrectAnswers: orEmpty(q.CorrectAnswers),
		})
	}

	return draft, nil
}

func decodeStrict(body []byte, dst any) error {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if stderrors.Is(err, io.EOF) {
			return errors.New(errors.CodeInvalidArgument,
				errors.WithMessagef("invalid quiz payload"),
				errors.WithViolations("request body is required"),
			)
		}
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid quiz payload"),
			errors.WithViolations(decodeViolation(err)),
			errors.WithCause(err),
		)
	}

	if _, err := dec.Token(); !stderrors.Is(err, io.EOF) {
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("invalid quiz payload"),
			errors.WithViolations("request body must contain a single JSON object"),
		)
	}

	return nil
}

// checkFields rejects keys that are not spelled exactly as declared ("Title", "TITLE").
// body must already have decoded into createQuizRequest.
func checkFields(body []byte) error {
	var (
		fields    map[string]json.RawMessage
		questions []map[string]json.RawMessage
	)
	if err := json.Unmarshal(body, &fields); err != nil {
		return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz payload"), errors.WithCause(err))
	}
	if q, ok := fields["questions"]; ok {
		if err := json.Unmarshal(q, &questions); err != nil {
			return errors.New(errors.CodeInvalidArgument, errors.WithMessagef("invalid quiz payload"), errors.WithCause(err))
		}
	}

	violations := unknownFields("", fields, quizFields)
	for i, q := range questions {
		violations = append(violations, unknownFields(fmt.Sprintf("questions[%d].", i), q, questionFields)...)
	}
	if len(violations) == 0 {
		return nil
	}

	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid quiz payload"),
		errors.WithViolations(violations...),
	)
}

func unknownFields(path string, fields map[string]json.RawMessage, allowed []string) []string {
	var out []string
	for k := range fields {
		if !slices.Contains(allowed, k) {
			out = append(out, fmt.Sprintf("property %s%s should not exist", path, k))
		}
	}
	slices.Sort(out)
	return out
}

func decodeViolation(err error) string {
	var typeErr *json.UnmarshalTypeError
	if stderrors.As(err, &typeErr) {
		if typeErr.Field == "" {
			return fmt.Sprintf("payload must be a JSON object, got %s", typeErr.Value)
		}
		return fmt.Sprintf("%s: must be a %s, got %s", typeErr.Field, typeErr.Type, typeErr.Value)
	}

	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		return fmt.Sprintf("property %s should not exist", strings.Trim(name, `"`))
	}

	return "malformed JSON: " + err.Error()
}

func invalid(err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) {
		return errors.New(errors.CodeInvalidArgument, errors.WithCause(err))
	}

	violations := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		violations = append(violations, fmt.Sprintf("%s: %s", fieldPath(fe), message(fe)))
	}

	return errors.New(errors.CodeInvalidArgument,
		errors.WithMessagef("invalid quiz payload"),
		errors.WithViolations(violations...),
	)
}

// fieldPath drops the root struct name: "createQuizRequest.questions[0].text" -> "questions[0].text".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func message(fe validator.FieldError) string {
	if m, ok := messages[fe.Field()+"."+fe.Tag()]; ok {
		return m
	}
	if fe.Param() != "" {
		return fmt.Sprintf("failed on %s=%s", fe.Tag(), fe.Param())
	}
	return "failed on " + fe.Tag()
}

func orEmpty(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
