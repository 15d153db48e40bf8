package domain

const (
	EventNameQuizCreated = "quiz.created"
	EventNameQuizDeleted = "quiz.deleted"
	EventNameQuizGraded  = "quiz.graded"
)

type EventQuizCreated struct {
	Quiz QuizSummary
}

func (EventQuizCreated) Name() string { return EventNameQuizCreated }

type EventQuizDeleted struct {
	QuizID string
}

func (EventQuizDeleted) Name() string { return EventNameQuizDeleted }

type EventQuizGraded struct {
	QuizID string
	Result GradingResult
}

func (EventQuizGraded) Name() string { return EventNameQuizGraded }
