package models

// All returns every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Student{},
		&Assignment{},
		&Submission{},
		&Evaluation{},
		&SkillAssessment{},
		&StudentNote{},
		&ProgressSnapshot{},
		&FeedbackItem{},
	}
}
