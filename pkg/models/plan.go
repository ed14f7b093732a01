package models

// DeliveryPlan describes the content to request for one daily delivery
type DeliveryPlan struct {
	LearnerID    int64  `json:"learner_id"`
	Date         string `json:"date"` // Learner-local calendar date the plan covers
	Tier         int    `json:"tier"`
	Listening    int    `json:"listening"` // Requested listening question count
	Grammar      int    `json:"grammar"`   // Requested grammar question count
	Reading      int    `json:"reading"`   // Requested reading question count
	GrammarTopic string `json:"grammar_topic"`
}
