package scoring

// Letter grades.
const (
	GradeAPlus = "A+"
	GradeA     = "A"
	GradeBPlus = "B+"
	GradeB     = "B"
	GradeC     = "C"
	GradeD     = "D"
	GradeF     = "F"
)

var gradeBands = []struct {
	min   float64
	grade string
}{
	{90, GradeAPlus},
	{80, GradeA},
	{70, GradeBPlus},
	{60, GradeB},
	{50, GradeC},
	{40, GradeD},
}

// GradeFor maps an overall score in [0, 100] to its letter grade. Band
// lower bounds are inclusive.
func GradeFor(score float64) string {
	for _, b := range gradeBands {
		if score >= b.min {
			return b.grade
		}
	}
	return GradeF
}
