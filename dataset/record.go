package dataset

// Record is one student row.
type Record struct {
	Gender                   string
	RaceEthnicity            string
	ParentalLevelOfEducation string
	Lunch                    string
	TestPreparationCourse    string
	ReadingScore             float64
	WritingScore             float64
	MathScore                float64
}

// FrameFromRecords converts typed records into a Frame with the student
// schema. The target column is included only when withTarget is set.
func FrameFromRecords(records []Record, withTarget bool) *Frame {
	n := len(records)
	var (
		gender   = make([]string, n)
		race     = make([]string, n)
		parental = make([]string, n)
		lunch    = make([]string, n)
		prep     = make([]string, n)
		reading  = make([]float64, n)
		writing  = make([]float64, n)
		math     = make([]float64, n)
	)
	for i, r := range records {
		gender[i] = r.Gender
		race[i] = r.RaceEthnicity
		parental[i] = r.ParentalLevelOfEducation
		lunch[i] = r.Lunch
		prep[i] = r.TestPreparationCourse
		reading[i] = r.ReadingScore
		writing[i] = r.WritingScore
		math[i] = r.MathScore
	}

	f := NewFrame()
	_ = f.AddCategorical(ColGender, gender)
	_ = f.AddCategorical(ColRaceEthnicity, race)
	_ = f.AddCategorical(ColParentalLevelOfEducation, parental)
	_ = f.AddCategorical(ColLunch, lunch)
	_ = f.AddCategorical(ColTestPreparationCourse, prep)
	_ = f.AddNumeric(ColReadingScore, reading)
	_ = f.AddNumeric(ColWritingScore, writing)
	if withTarget {
		_ = f.AddNumeric(ColMathScore, math)
	}
	if n == 0 {
		f.rows = 0
	}
	return f
}
