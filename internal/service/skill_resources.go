package service

import (
	"strings"

	"github.com/jamditis/class/internal/dto"
	"github.com/jamditis/class/internal/models"
)

// skillResources maps a normalised skill name to practice activities per level.
var skillResources = map[string]map[models.SkillLevel][]string{
	"writing": {
		models.SkillLevelEmerging: {
			"Review basic paragraph structure and topic sentences",
			"Practice freewriting exercises (10 minutes daily)",
			"Read examples of clear professional writing",
			"Use Hemingway Editor to identify complex sentences",
		},
		models.SkillLevelDeveloping: {
			"Focus on transitions between paragraphs",
			"Practice writing with specific word count constraints",
			"Study how professional articles structure arguments",
			"Get peer feedback on drafts before submission",
		},
		models.SkillLevelProficient: {
			"Experiment with voice and tone for different audiences",
			"Practice concise writing (cut word count by 20%)",
			"Study persuasive writing techniques",
			"Read industry publications for style inspiration",
		},
		models.SkillLevelAdvanced: {
			"Mentor peers on writing improvement",
			"Experiment with different narrative structures",
			"Develop a consistent personal writing style",
			"Consider contributing to industry publications",
		},
	},
	"design": {
		models.SkillLevelEmerging: {
			"Study the 4 basic design principles (Contrast, Repetition, Alignment, Proximity)",
			"Recreate designs you admire to understand their structure",
			"Practice with templates before designing from scratch",
			"Build a swipe file of designs you like",
		},
		models.SkillLevelDeveloping: {
			"Focus on visual hierarchy in every design",
			"Limit yourself to 2-3 fonts and colors per project",
			"Study whitespace and how it creates breathing room",
			"Get critique from design-focused peers",
		},
		models.SkillLevelProficient: {
			"Develop consistent style guides for projects",
			"Study advanced typography and color theory",
			"Create designs for multiple platforms and sizes",
			"Analyze award-winning design campaigns",
		},
		models.SkillLevelAdvanced: {
			"Lead design reviews for peer projects",
			"Experiment with emerging design trends",
			"Build a portfolio-ready body of work",
			"Consider entering student design competitions",
		},
	},
	"research": {
		models.SkillLevelEmerging: {
			"Learn to use academic databases effectively",
			"Practice evaluating source credibility",
			"Start with broad searches, then narrow down",
			"Keep organized notes with proper citations",
		},
		models.SkillLevelDeveloping: {
			"Develop systematic research methodologies",
			"Learn to identify primary vs. secondary sources",
			"Practice synthesizing information from multiple sources",
			"Use reference management tools (Zotero, Mendeley)",
		},
		models.SkillLevelProficient: {
			"Conduct original primary research (surveys, interviews)",
			"Develop data analysis skills",
			"Learn competitive analysis frameworks",
			"Practice presenting research findings",
		},
		models.SkillLevelAdvanced: {
			"Lead research projects for teams",
			"Develop custom research frameworks",
			"Mentor peers on research methodologies",
			"Consider publishing research findings",
		},
	},
	"strategy": {
		models.SkillLevelEmerging: {
			"Study basic marketing strategy frameworks",
			"Learn to write SMART goals",
			"Understand the difference between strategy and tactics",
			"Review case studies of successful campaigns",
		},
		models.SkillLevelDeveloping: {
			"Practice audience analysis techniques",
			"Learn to create content calendars",
			"Study platform-specific strategies",
			"Develop measurement and KPI frameworks",
		},
		models.SkillLevelProficient: {
			"Create integrated cross-platform strategies",
			"Develop competitive positioning strategies",
			"Learn budget allocation and ROI calculation",
			"Practice presenting strategies to stakeholders",
		},
		models.SkillLevelAdvanced: {
			"Lead strategic planning for team projects",
			"Develop innovative strategic approaches",
			"Study advanced analytics and optimization",
			"Consider case competition participation",
		},
	},
	"critical_thinking": {
		models.SkillLevelEmerging: {
			"Practice identifying assumptions in arguments",
			"Learn to distinguish facts from opinions",
			"Study logical fallacies and how to spot them",
			"Read diverse perspectives on the same topic",
		},
		models.SkillLevelDeveloping: {
			"Practice evaluating evidence quality",
			"Develop skills in constructing arguments",
			"Learn to anticipate counterarguments",
			"Engage in structured debates or discussions",
		},
		models.SkillLevelProficient: {
			"Apply critical thinking to media analysis",
			"Develop frameworks for decision-making",
			"Practice Socratic questioning techniques",
			"Analyze complex multi-stakeholder situations",
		},
		models.SkillLevelAdvanced: {
			"Lead discussions and facilitate debates",
			"Apply systems thinking to complex problems",
			"Mentor peers on analytical approaches",
			"Develop original frameworks for analysis",
		},
	},
}

// SkillActivities returns practice activities for a skill at a level.
// Unknown skills get generic activities that name the skill.
func SkillActivities(skill string, level models.SkillLevel) []string {
	key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(skill)), " ", "_")
	if levels, ok := skillResources[key]; ok {
		return append([]string(nil), levels[level]...)
	}

	switch level {
	case models.SkillLevelEmerging:
		return []string{
			"Study foundational concepts in " + key,
			"Find tutorials and beginner resources",
			"Practice with guided exercises",
		}
	case models.SkillLevelDeveloping:
		return []string{
			"Practice " + key + " regularly with feedback",
			"Study examples of excellent work",
			"Identify specific areas for improvement",
		}
	case models.SkillLevelProficient:
		return []string{
			"Challenge yourself with complex " + key + " tasks",
			"Seek advanced feedback and critique",
			"Help peers develop their skills",
		}
	case models.SkillLevelAdvanced:
		return []string{
			"Mentor others in " + key,
			"Develop innovative approaches",
			"Consider professional development opportunities",
		}
	}
	return []string{}
}

var interventionStrategies = map[string]dto.InterventionStrategy{
	GroupAtRisk: {
		Description: "Students at risk of failing or dropping out",
		ImmediateActions: []string{
			"Schedule one-on-one meeting within 48 hours",
			"Review submission history for patterns",
			"Check for external factors (other classes, personal issues)",
			"Offer extended office hours or tutoring",
		},
		SupportStrategies: []string{
			"Break assignments into smaller checkpoints",
			"Provide additional scaffolding and templates",
			"Consider peer mentoring from high performers",
			"Connect with academic support services if needed",
		},
		Communication: []string{
			"Use supportive, non-judgmental language",
			"Focus on specific, achievable goals",
			"Celebrate small wins to build momentum",
			"Check in regularly between assignments",
		},
	},
	GroupStruggling: {
		Description: "Students consistently performing below expectations",
		ImmediateActions: []string{
			"Identify specific skill gaps through evaluation patterns",
			"Provide targeted feedback on recent submissions",
			"Offer revision opportunities on key assignments",
		},
		SupportStrategies: []string{
			"Provide additional resources for weak skill areas",
			"Create study groups with solid performers",
			"Offer alternative demonstration of learning if appropriate",
			"Consider modified expectations with clear path to improvement",
		},
		Communication: []string{
			"Be specific about what needs improvement",
			"Acknowledge effort while addressing gaps",
			"Set clear, achievable improvement goals",
			"Provide positive reinforcement for progress",
		},
	},
	GroupInconsistent: {
		Description: "Students with highly variable performance",
		ImmediateActions: []string{
			"Analyze which assignment types show strongest and weakest performance",
			"Look for time management or prioritization issues",
			"Check if external factors affect certain assignment types",
		},
		SupportStrategies: []string{
			"Help develop consistent work habits and routines",
			"Provide early feedback on drafts before due dates",
			"Create structured timelines for complex assignments",
			"Address specific weak areas with targeted support",
		},
		Communication: []string{
			"Acknowledge their capability shown in strong work",
			"Explore what differs between strong and weak submissions",
			"Set expectations for consistency",
			"Help them identify their own success factors",
		},
	},
	GroupImproving: {
		Description: "Students showing upward performance trends",
		ImmediateActions: []string{
			"Acknowledge and reinforce improvement",
			"Identify what's working and encourage continuation",
			"Set slightly higher expectations to maintain momentum",
		},
		SupportStrategies: []string{
			"Gradually reduce scaffolding as skills develop",
			"Introduce more challenging optional elements",
			"Consider for peer mentoring opportunities",
			"Highlight growth in feedback",
		},
		Communication: []string{
			"Celebrate progress explicitly",
			"Share specific examples of improvement",
			"Express confidence in continued growth",
			"Discuss goals for rest of semester",
		},
	},
	GroupHighPerformers: {
		Description: "Students consistently exceeding expectations",
		ImmediateActions: []string{
			"Ensure they're being appropriately challenged",
			"Look for opportunities to extend their learning",
			"Consider leadership roles in group activities",
		},
		SupportStrategies: []string{
			"Offer advanced optional challenges",
			"Recruit as peer mentors or tutors",
			"Provide industry connections or opportunities",
			"Support portfolio development",
		},
		Communication: []string{
			"Provide advanced feedback beyond basic requirements",
			"Discuss career and professional development",
			"Encourage them to push beyond comfort zone",
			"Connect with industry professionals or alumni",
		},
	},
	GroupSolidPerformers: {
		Description: "Students meeting expectations consistently",
		ImmediateActions: []string{
			"Identify areas for potential growth",
			"Check for engagement and motivation",
			"Ensure they're not coasting",
		},
		SupportStrategies: []string{
			"Challenge them to move from good to great",
			"Provide specific feedback for improvement",
			"Offer opportunities for leadership or mentoring",
			"Connect assignments to career interests",
		},
		Communication: []string{
			"Acknowledge consistent good work",
			"Push gently for higher achievement",
			"Ask about their goals and aspirations",
			"Provide actionable paths to excellence",
		},
	},
}

// InterventionFor returns the playbook for a group, defaulting to solid performers.
func InterventionFor(group string) dto.InterventionStrategy {
	if strategy, ok := interventionStrategies[group]; ok {
		return strategy
	}
	return interventionStrategies[GroupSolidPerformers]
}
