package model

// ResultEntry is one athlete's processed record. The cache persists entries
// without the slot flags; AGWinner and PoolQualifier are set by slot
// annotation each time a response is assembled.
type ResultEntry struct {
	Bib           string  `json:"bib"`
	Name          string  `json:"name"`
	AgeGroup      string  `json:"age_group"`
	FinishTime    string  `json:"finish_time"`
	FinishSeconds int     `json:"finish_time_seconds"`
	GenderPlace   string  `json:"gender_place"`
	GradedSeconds float64 `json:"graded_time_seconds"`
	GradedTime    string  `json:"graded_time"`
	GradedPlace   int     `json:"graded_place"`
	AGPlace       int     `json:"ag_place"`
	AGWinner      bool    `json:"ag_winner"`
	PoolQualifier bool    `json:"pool_qualifier"`
}

// AthleteRecord is one raw record from the upstream feed, before filtering
// and grading.
type AthleteRecord struct {
	Bib      string `json:"bib"`
	Name     string `json:"name"`
	Time     string `json:"time"`
	Division string `json:"division"`
	Place    string `json:"place"`
}
