package badge

func builtins() []Badge {
	return []Badge{
		{
			ID:          "first_lesson",
			Name:        "First Steps",
			Description: "Complete your first lesson!",
			Category:    CategoryCompletion,
			Icon:        "🎓",
			Points:      50,
			Criteria:    "Complete 1 lesson",
		},
		{
			ID:          "lesson_streak_5",
			Name:        "On a Roll!",
			Description: "Complete 5 lessons in a row!",
			Category:    CategoryStreak,
			Icon:        "🔥",
			Points:      250,
			Criteria:    "Complete 5 consecutive lessons",
		},
		{
			ID:          "lesson_streak_10",
			Name:        "Unstoppable!",
			Description: "Complete 10 lessons in a row!",
			Category:    CategoryStreak,
			Icon:        "⚡",
			Points:      500,
			Criteria:    "Complete 10 consecutive lessons",
		},
		{
			ID:          "perfect_quiz",
			Name:        "Quiz Master",
			Description: "Get a perfect score on a quiz!",
			Category:    CategoryPerfect,
			Icon:        "💯",
			Points:      150,
			Criteria:    "Score 100% on a quiz",
		},
		{
			ID:          "code_warrior",
			Name:        "Code Warrior",
			Description: "Complete 5 code challenges!",
			Category:    CategoryCodeWarrior,
			Icon:        "⚔️",
			Points:      300,
			Criteria:    "Complete 5 code challenges",
		},
		{
			ID:          "explorer",
			Name:        "Topic Explorer",
			Description: "Explore lessons in 3 different topics!",
			Category:    CategoryExplorer,
			Icon:        "🗺️",
			Points:      200,
			Criteria:    "Learn 3 different topics",
		},
		{
			ID:          "speed_learner",
			Name:        "Speed Learner",
			Description: "Complete a lesson in half the estimated time!",
			Category:    CategorySpeed,
			Icon:        "⏱️",
			Points:      100,
			Criteria:    "Complete lesson faster than estimate",
		},
		{
			ID:          "all_challenges",
			Name:        "Challenge Master",
			Description: "Complete all challenges in a module!",
			Category:    CategoryChallengeMaster,
			Icon:        "🏆",
			Points:      400,
			Criteria:    "Complete all module challenges",
		},
	}
}
