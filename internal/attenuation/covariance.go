package attenuation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// covariance 计算 pinv(JᵀJ)·RSS/(n−2)。pinv 由 J 的 SVD 得到：
// pinv(JᵀJ) = V·S⁻²·Vᵀ。低于 eps·max(n,2)·s_max 的奇异值视为秩亏。
func covariance(x []float64, p [2]float64, rss float64) ([2][2]float64, error) {
	var cov [2][2]float64
	n := len(x)
	jac := mat.NewDense(n, 2, nil)
	modelJacobian(jac, x, p)

	var svd mat.SVD
	if !svd.Factorize(jac, mat.SVDThin) {
		return cov, divergence(ReasonSingular, 0, "svd factorization failed")
	}
	s := svd.Values(nil)
	tol := eps * float64(max(n, 2)) * s[0]
	rank := 0
	for _, sv := range s {
		if sv > tol {
			rank++
		}
	}
	// 长度全部相同时 J 的秩为 1，只用保留的奇异值求伪逆；其余秩亏无法恢复。
	if rank == 0 || (rank < 2 && !equalLengths(x)) {
		return cov, divergence(ReasonSingular, 0, "singular values %.3g, %.3g", s[0], s[1])
	}
	var v mat.Dense
	svd.VTo(&v)

	scale := rss / float64(n-2)
	for i := 0; i < 2; i++ {
		for j := 0; j < 2; j++ {
			sum := 0.0
			for k := 0; k < rank; k++ {
				sum += v.At(i, k) * v.At(j, k) / (s[k] * s[k])
			}
			cov[i][j] = scale * sum
		}
	}
	// 保持严格对称
	cov[0][1] = 0.5 * (cov[0][1] + cov[1][0])
	cov[1][0] = cov[0][1]
	return cov, nil
}

var eps = math.Nextafter(1, 2) - 1

func equalLengths(x []float64) bool {
	for _, l := range x[1:] {
		if l != x[0] {
			return false
		}
	}
	return len(x) > 0
}
