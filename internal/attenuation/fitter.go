package attenuation

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
)

const (
	defaultMaxIterations = 200
	// defaultTolerance 与 MINPACK 的 ftol/xtol 默认值一致（sqrt(eps)）。
	defaultTolerance = 1.49012e-8

	initialAlpha  = 0.1
	initialLambda = 1e-3
	minLambda     = 1e-12
	maxLambda     = 1e16
)

// FitterOptions 控制 Levenberg–Marquardt 迭代。零值字段使用默认值。
type FitterOptions struct {
	MaxIterations int
	FTol          float64
	XTol          float64
}

func DefaultFitterOptions() FitterOptions {
	return FitterOptions{
		MaxIterations: defaultMaxIterations,
		FTol:          defaultTolerance,
		XTol:          defaultTolerance,
	}
}

// Fitter 以最小二乘估计 P(L) = P0·exp(−alpha·L) 的参数。
type Fitter struct {
	opts FitterOptions
}

func NewFitter(opts FitterOptions) *Fitter {
	def := DefaultFitterOptions()
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = def.MaxIterations
	}
	if opts.FTol <= 0 {
		opts.FTol = def.FTol
	}
	if opts.XTol <= 0 {
		opts.XTol = def.XTol
	}
	return &Fitter{opts: opts}
}

func (f *Fitter) Options() FitterOptions {
	return f.opts
}

// InitialGuess 返回固定种子 (max(power), 0.1)。
func InitialGuess(samples SampleSet) [2]float64 {
	p0 := math.Inf(-1)
	for _, s := range samples {
		p0 = math.Max(p0, s.Power)
	}
	return [2]float64{p0, initialAlpha}
}

// Fit 执行拟合。样本数不足返回 *InsufficientDataError；
// 定义域错误、不收敛、奇异雅可比返回 *FitDivergenceError。
func (f *Fitter) Fit(samples SampleSet) (FitResult, error) {
	if len(samples) < MinSamples {
		return FitResult{}, &InsufficientDataError{Got: len(samples)}
	}
	if err := checkDomain(samples); err != nil {
		return FitResult{}, err
	}
	x, y := samples.Lengths(), samples.Powers()
	n := len(x)

	p := InitialGuess(samples)
	rss := residualSumSquares(x, y, p)
	if !isFinite(rss) {
		return FitResult{}, divergence(ReasonNonFinite, 0, "initial guess P0=%g alpha=%g", p[0], p[1])
	}
	sumSq := 0.0
	for _, v := range y {
		sumSq += v * v
	}
	floor := 1e-30 * sumSq

	jac := mat.NewDense(n, 2, nil)
	res := mat.NewVecDense(n, nil)
	lambda := initialLambda
	converged := false
	iter := 0
	for iter < f.opts.MaxIterations {
		iter++
		if rss <= floor {
			converged = true
			break
		}
		modelJacobian(jac, x, p)
		residuals(res, x, y, p)

		var jtj mat.SymDense
		jtj.SymOuterK(1, jac.T())
		var grad mat.VecDense
		grad.MulVec(jac.T(), res)

		next, nextRSS, step, ok := f.dampedStep(&jtj, &grad, &lambda, x, y, p, rss)
		if !ok {
			// 任何阻尼都无法继续降低 RSS，已处于数值极小点
			converged = true
			break
		}
		reduction := (rss - nextRSS) / rss
		paramNorm := math.Hypot(p[0], p[1])
		p, rss = next, nextRSS
		lambda = math.Max(lambda/10, minLambda)
		if reduction <= f.opts.FTol || step <= f.opts.XTol*(paramNorm+f.opts.XTol) {
			converged = true
			break
		}
	}
	if !converged {
		return FitResult{}, divergence(ReasonNotConverged, iter, "max_iterations=%d", f.opts.MaxIterations)
	}
	if !isFinite(p[0]) || !isFinite(p[1]) || !isFinite(rss) {
		return FitResult{}, divergence(ReasonNonFinite, iter, "P0=%g alpha=%g", p[0], p[1])
	}
	cov, err := covariance(x, p, rss)
	if err != nil {
		var de *FitDivergenceError
		if errors.As(err, &de) {
			de.Iterations = iter
		}
		return FitResult{}, err
	}
	return FitResult{
		P0:         p[0],
		Alpha:      p[1],
		Covariance: cov,
		N:          n,
		RSS:        rss,
		Iterations: iter,
	}, nil
}

// dampedStep 求解 (JᵀJ + λ·diag(JᵀJ))δ = Jᵀr，λ 逐步放大直到 RSS 下降。
func (f *Fitter) dampedStep(jtj *mat.SymDense, grad *mat.VecDense, lambda *float64, x, y []float64, p [2]float64, rss float64) ([2]float64, float64, float64, bool) {
	damped := mat.NewSymDense(2, nil)
	var delta mat.VecDense
	for ; *lambda <= maxLambda; *lambda *= 10 {
		damped.CopySym(jtj)
		for i := 0; i < 2; i++ {
			d := jtj.At(i, i)
			if d <= 0 {
				d = 1
			}
			damped.SetSym(i, i, jtj.At(i, i)+*lambda*d)
		}
		var chol mat.Cholesky
		if !chol.Factorize(damped) {
			continue
		}
		if err := chol.SolveVecTo(&delta, grad); err != nil {
			continue
		}
		next := [2]float64{p[0] + delta.AtVec(0), p[1] + delta.AtVec(1)}
		nextRSS := residualSumSquares(x, y, next)
		if isFinite(nextRSS) && nextRSS < rss {
			return next, nextRSS, math.Hypot(delta.AtVec(0), delta.AtVec(1)), true
		}
	}
	return p, rss, 0, false
}

func checkDomain(samples SampleSet) error {
	for i, s := range samples {
		if !isFinite(s.Length) || !isFinite(s.Power) {
			return divergence(ReasonDomain, 0, "sample %d is not finite (length=%g power=%g)", i, s.Length, s.Power)
		}
		if s.Length < 0 {
			return divergence(ReasonDomain, 0, "sample %d has negative length %g", i, s.Length)
		}
		if s.Power <= 0 {
			return divergence(ReasonDomain, 0, "sample %d has non-positive power %g", i, s.Power)
		}
	}
	return nil
}

// modelJacobian 写入模型对 (P0, alpha) 的偏导。
func modelJacobian(dst *mat.Dense, x []float64, p [2]float64) {
	for i, l := range x {
		e := math.Exp(-p[1] * l)
		dst.Set(i, 0, e)
		dst.Set(i, 1, -l*p[0]*e)
	}
}

func residuals(dst *mat.VecDense, x, y []float64, p [2]float64) {
	for i := range x {
		dst.SetVec(i, y[i]-Model(x[i], p[0], p[1]))
	}
}

func residualSumSquares(x, y []float64, p [2]float64) float64 {
	sum := 0.0
	for i := range x {
		r := y[i] - Model(x[i], p[0], p[1])
		sum += r * r
	}
	return sum
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
