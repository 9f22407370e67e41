package service

import "errors"

// ErrStudentNotFound indicates the student cannot be located.
var ErrStudentNotFound = errors.New("student not found")

// ErrAssignmentNotFound indicates the assignment cannot be located.
var ErrAssignmentNotFound = errors.New("assignment not found")

// ErrSubmissionNotFound indicates the submission cannot be located.
var ErrSubmissionNotFound = errors.New("submission not found")

// ErrEvaluationNotFound indicates the evaluation cannot be located.
var ErrEvaluationNotFound = errors.New("evaluation not found")

// ErrFeedbackNotFound indicates the feedback item cannot be located.
var ErrFeedbackNotFound = errors.New("feedback item not found")

// ErrEmptyContent indicates a submission has nothing to evaluate.
var ErrEmptyContent = errors.New("submission has no content")

// ErrEvaluatorUnavailable indicates the language-model capability is missing or failed.
var ErrEvaluatorUnavailable = errors.New("evaluator unavailable")

// ErrParse indicates the evaluator returned output that does not match the scoring contract.
var ErrParse = errors.New("evaluator response could not be parsed")

// ErrInvalidScore indicates a score outside the assignment's point range.
var ErrInvalidScore = errors.New("score out of range")

// ErrInvalidSkillLevel indicates a skill rating that is not one of the four levels.
var ErrInvalidSkillLevel = errors.New("invalid skill level")

// ErrInvalidTransition indicates a feedback item is not in a state that allows the operation.
var ErrInvalidTransition = errors.New("invalid feedback status transition")

// ErrInvalidFeedback indicates an enqueue request is missing a required reference.
var ErrInvalidFeedback = errors.New("invalid feedback item")

// ErrMissingExternalRef indicates the LMS identifiers needed to publish are absent.
var ErrMissingExternalRef = errors.New("missing LMS reference")

// ErrPublishFailed indicates the LMS rejected or failed a publish.
var ErrPublishFailed = errors.New("publish failed")

// ErrNoFinalEvaluation indicates the submission has not been evaluated yet.
var ErrNoFinalEvaluation = errors.New("submission has no final evaluation")

// ErrArchiveUnavailable indicates no export uploader is configured.
var ErrArchiveUnavailable = errors.New("export archive unavailable")

// ErrInvalidImport indicates an import file is unreadable or missing required columns.
var ErrInvalidImport = errors.New("invalid import file")

// ErrSyncUnavailable indicates no LMS feed is configured.
var ErrSyncUnavailable = errors.New("lms sync unavailable")

// ErrInvalidRange indicates a date range whose start is after its end.
var ErrInvalidRange = errors.New("invalid date range")
