package artifact

// UserProfile is the learner snapshot taken when a run starts. It is passed to
// the model as context and never mutated afterwards.
type UserProfile struct {
	UserID            string   `json:"userId,omitempty"`
	Username          string   `json:"username,omitempty"`
	AgeRange          string   `json:"ageRange,omitempty"`
	EducationLevel    string   `json:"educationLevel,omitempty"`
	TechBackground    string   `json:"techBackground,omitempty"`
	CodingExperience  string   `json:"codingExperience,omitempty"`
	Goals             []string `json:"goals,omitempty"`
	LearningSpeed     string   `json:"learningSpeed,omitempty"`
	LearningMode      string   `json:"learningMode,omitempty"`
	TimePerWeek       string   `json:"timePerWeek,omitempty"`
	PreferredLanguage string   `json:"preferredLanguage,omitempty"`
}

func (p UserProfile) IsZero() bool {
	return p.UserID == "" && p.Username == "" && p.AgeRange == "" && p.EducationLevel == "" &&
		p.TechBackground == "" && p.CodingExperience == "" && len(p.Goals) == 0 &&
		p.LearningSpeed == "" && p.LearningMode == "" && p.TimePerWeek == "" && p.PreferredLanguage == ""
}
