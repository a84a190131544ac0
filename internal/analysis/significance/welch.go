package significance

import (
	"math"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/stat/distuv"
)

// Alpha is the significance threshold for two-tailed tests
const Alpha = 0.05

// maxAbsT is the saturated t-statistic reported for perfectly separated samples
const maxAbsT = 1e6

// TTestResult is the outcome of a Welch's t-test
type TTestResult struct {
	TStatistic  float64 `json:"t_statistic"`
	PValue      float64 `json:"p_value"`
	Significant bool    `json:"significant"`

	// Welch-Satterthwaite degrees of freedom and the matching Student's t p-value.
	// Informational only: Significant is decided on PValue.
	DegreesOfFreedom float64 `json:"degrees_of_freedom"`
	StudentTPValue   float64 `json:"student_t_p_value"`

	Mean1 float64 `json:"mean_1"`
	Mean2 float64 `json:"mean_2"`
	N1    int     `json:"n_1"`
	N2    int     `json:"n_2"`
}

// notSignificant is the safe default for degenerate inputs
func notSignificant(n1, n2 int, m1, m2 float64) TTestResult {
	return TTestResult{PValue: 1, StudentTPValue: 1, Mean1: m1, Mean2: m2, N1: n1, N2: n2}
}

// NormalCDF approximates the standard normal cumulative distribution function
// using Abramowitz and Stegun formula 7.1.26 (max error 1.5e-7).
func NormalCDF(x float64) float64 {
	const (
		a1 = 0.254829592
		a2 = -0.284496736
		a3 = 1.421413741
		a4 = -1.453152027
		a5 = 1.061405429
		p  = 0.3275911
	)

	sign := 1.0
	if x < 0 {
		sign = -1.0
	}
	z := math.Abs(x) / math.Sqrt2

	t := 1.0 / (1.0 + p*z)
	y := 1.0 - (((((a5*t+a4)*t)+a3)*t+a2)*t+a1)*t*math.Exp(-z*z)

	return 0.5 * (1.0 + sign*y)
}

// TwoTailedPValue converts a z/t statistic into a two-tailed p-value under the normal approximation
func TwoTailedPValue(statistic float64) float64 {
	return clampProbability(2 * (1 - NormalCDF(math.Abs(statistic))))
}

// WelchTTest compares the means of two samples without assuming equal variances.
//
// Samples shorter than two values, or two constant samples with the same mean,
// are never significant. Two constant samples with different means are treated
// as perfectly separated: p = 0 and significant.
func WelchTTest(sample1, sample2 []float64) TTestResult {
	n1, n2 := len(sample1), len(sample2)
	mean1, _ := stats.Mean(sample1)
	mean2, _ := stats.Mean(sample2)

	if n1 < 2 || n2 < 2 {
		return notSignificant(n1, n2, mean1, mean2)
	}

	var1, err := stats.SampleVariance(sample1)
	if err != nil {
		return notSignificant(n1, n2, mean1, mean2)
	}
	var2, err := stats.SampleVariance(sample2)
	if err != nil {
		return notSignificant(n1, n2, mean1, mean2)
	}

	f1 := var1 / float64(n1)
	f2 := var2 / float64(n2)
	se := math.Sqrt(f1 + f2)
	diff := mean1 - mean2

	if se == 0 || math.IsNaN(se) {
		if diff == 0 {
			return notSignificant(n1, n2, mean1, mean2)
		}
		return TTestResult{
			TStatistic:       math.Copysign(maxAbsT, diff),
			PValue:           0,
			Significant:      true,
			DegreesOfFreedom: float64(n1 + n2 - 2),
			StudentTPValue:   0,
			Mean1:            mean1,
			Mean2:            mean2,
			N1:               n1,
			N2:               n2,
		}
	}

	tStat := diff / se
	pValue := TwoTailedPValue(tStat)
	df := welchDegreesOfFreedom(f1, f2, n1, n2)

	return TTestResult{
		TStatistic:       tStat,
		PValue:           pValue,
		Significant:      pValue < Alpha,
		DegreesOfFreedom: df,
		StudentTPValue:   StudentTPValue(tStat, df),
		Mean1:            mean1,
		Mean2:            mean2,
		N1:               n1,
		N2:               n2,
	}
}

// welchDegreesOfFreedom is the Welch-Satterthwaite approximation
func welchDegreesOfFreedom(f1, f2 float64, n1, n2 int) float64 {
	denom := f1*f1/float64(n1-1) + f2*f2/float64(n2-1)
	if denom == 0 {
		return float64(n1 + n2 - 2)
	}
	return (f1 + f2) * (f1 + f2) / denom
}

// StudentTPValue computes the two-tailed p-value of t under Student's t with df degrees of freedom
func StudentTPValue(t, df float64) float64 {
	if df <= 0 || math.IsNaN(t) {
		return 1
	}
	dist := distuv.StudentsT{Mu: 0, Sigma: 1, Nu: df}
	return clampProbability(2 * (1 - dist.CDF(math.Abs(t))))
}

func clampProbability(p float64) float64 {
	switch {
	case math.IsNaN(p):
		return 1
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}
