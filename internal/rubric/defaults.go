package rubric

import "github.com/jamditis/class/internal/models"

func levels(advanced, proficient, developing, emerging string) map[models.SkillLevel]string {
	return map[models.SkillLevel]string{
		models.SkillLevelAdvanced:   advanced,
		models.SkillLevelProficient: proficient,
		models.SkillLevelDeveloping: developing,
		models.SkillLevelEmerging:   emerging,
	}
}

// Defaults returns a fresh copy of the built-in rubrics keyed by assignment type.
// Comprehensive assignments have no dedicated rubric and use general.
func Defaults() map[string]Rubric {
	return map[string]Rubric{
		models.AssignmentTypeWritten: {
			Criteria: []Criterion{
				{
					Name:        "Clarity and coherence",
					Description: "Writing is clear, well-organized, and easy to follow",
					Weight:      30,
					Levels: levels(
						"Writing is exceptionally clear with sophisticated organization",
						"Writing is clear and logically organized",
						"Writing has some unclear sections or organizational issues",
						"Writing is difficult to follow or poorly organized",
					),
				},
				{
					Name:        "Content depth",
					Description: "Demonstrates understanding and provides substantive analysis",
					Weight:      40,
					Levels: levels(
						"Shows deep insight with original, nuanced analysis",
						"Demonstrates solid understanding with good analysis",
						"Shows basic understanding but analysis is surface-level",
						"Limited understanding or missing key elements",
					),
				},
				{
					Name:        "Writing mechanics",
					Description: "Grammar, spelling, punctuation, and formatting",
					Weight:      15,
					Levels: levels(
						"Nearly flawless mechanics",
						"Minor errors that don't impede understanding",
						"Some errors that occasionally affect clarity",
						"Frequent errors that impede understanding",
					),
				},
				{
					Name:        "Task completion",
					Description: "Addresses all required elements of the assignment",
					Weight:      15,
					Levels: levels(
						"Exceeds requirements with additional valuable elements",
						"Meets all requirements completely",
						"Meets most requirements but missing some elements",
						"Missing multiple required elements",
					),
				},
			},
			SkillsAssessed: []string{"writing", "critical_thinking", "communication"},
		},
		models.AssignmentTypeVisual: {
			Criteria: []Criterion{
				{
					Name:        "Visual hierarchy",
					Description: "Clear organization of visual elements guiding the viewer's eye",
					Weight:      25,
					Levels: levels(
						"Masterful use of hierarchy with clear focal points",
						"Good hierarchy that effectively guides attention",
						"Some hierarchy present but inconsistent",
						"No clear hierarchy; elements compete for attention",
					),
				},
				{
					Name:        "Design principles",
					Description: "Use of contrast, alignment, repetition, and proximity",
					Weight:      30,
					Levels: levels(
						"Strong command of all design principles",
						"Solid application of most design principles",
						"Some design principles applied inconsistently",
						"Design principles not evident",
					),
				},
				{
					Name:        "Color and typography",
					Description: "Effective use of color palette and font choices",
					Weight:      20,
					Levels: levels(
						"Sophisticated color/type choices that enhance message",
						"Appropriate color/type that supports the design",
						"Color/type choices are functional but unremarkable",
						"Color/type choices detract from the message",
					),
				},
				{
					Name:        "Concept and creativity",
					Description: "Original approach and effective communication of concept",
					Weight:      25,
					Levels: levels(
						"Highly creative and memorable concept",
						"Good concept that effectively communicates",
						"Basic concept that meets minimum requirements",
						"Concept is unclear or missing",
					),
				},
			},
			SkillsAssessed: []string{"design", "visual_communication", "creativity"},
		},
		models.AssignmentTypeResearch: {
			Criteria: []Criterion{
				{
					Name:        "Research quality",
					Description: "Depth and relevance of sources and findings",
					Weight:      35,
					Levels: levels(
						"Comprehensive research with excellent sources",
						"Good research with relevant sources",
						"Basic research with some relevant sources",
						"Limited research or irrelevant sources",
					),
				},
				{
					Name:        "Analysis",
					Description: "Interpretation and synthesis of research findings",
					Weight:      30,
					Levels: levels(
						"Insightful analysis that draws meaningful conclusions",
						"Solid analysis with clear takeaways",
						"Some analysis but mostly descriptive",
						"Little to no analysis of findings",
					),
				},
				{
					Name:        "Organization",
					Description: "Structure and presentation of research",
					Weight:      20,
					Levels: levels(
						"Highly organized and easy to navigate",
						"Well organized with clear sections",
						"Some organization but could be clearer",
						"Poorly organized or difficult to follow",
					),
				},
				{
					Name:        "Strategic implications",
					Description: "Ability to connect research to actionable insights",
					Weight:      15,
					Levels: levels(
						"Clear, actionable strategic recommendations",
						"Good connection between research and strategy",
						"Some strategic implications mentioned",
						"No connection to strategy",
					),
				},
			},
			SkillsAssessed: []string{"research", "analysis", "strategic_thinking"},
		},
		models.AssignmentTypeStrategy: {
			Criteria: []Criterion{
				{
					Name:        "Strategic thinking",
					Description: "Quality of strategic reasoning and planning",
					Weight:      35,
					Levels: levels(
						"Sophisticated strategy with clear rationale",
						"Solid strategy with good reasoning",
						"Basic strategy but missing key elements",
						"Strategy is unclear or poorly reasoned",
					),
				},
				{
					Name:        "Audience understanding",
					Description: "Demonstrates understanding of target audience",
					Weight:      25,
					Levels: levels(
						"Deep audience insight informing all decisions",
						"Good audience awareness throughout",
						"Some audience consideration but inconsistent",
						"Little evidence of audience understanding",
					),
				},
				{
					Name:        "Practicality",
					Description: "Feasibility and actionability of the plan",
					Weight:      25,
					Levels: levels(
						"Highly realistic and immediately actionable",
						"Realistic plan that could be executed",
						"Some practical elements but needs refinement",
						"Plan is unrealistic or vague",
					),
				},
				{
					Name:        "Measurement approach",
					Description: "Clear metrics and success criteria",
					Weight:      15,
					Levels: levels(
						"Well-defined, appropriate metrics with benchmarks",
						"Good metrics tied to objectives",
						"Some metrics mentioned but incomplete",
						"No clear measurement approach",
					),
				},
			},
			SkillsAssessed: []string{"strategy", "planning", "audience_analysis"},
		},
		models.AssignmentTypeGeneral: {
			Criteria: []Criterion{
				{
					Name:        "Quality",
					Description: "Overall quality of the submission",
					Weight:      40,
					Levels: levels(
						"Exceptional quality exceeding expectations",
						"Good quality meeting all expectations",
						"Acceptable quality with room for improvement",
						"Quality below expectations",
					),
				},
				{
					Name:        "Completeness",
					Description: "All required elements are present",
					Weight:      30,
					Levels: levels(
						"All elements present with additional value",
						"All required elements present",
						"Most elements present, some missing",
						"Many required elements missing",
					),
				},
				{
					Name:        "Effort",
					Description: "Evidence of thought and effort invested",
					Weight:      30,
					Levels: levels(
						"Clear evidence of significant effort",
						"Good effort evident throughout",
						"Some effort but could be more thorough",
						"Minimal effort evident",
					),
				},
			},
			SkillsAssessed: []string{"general"},
		},
	}
}
