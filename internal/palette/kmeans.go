package palette

import (
	"math"
	"math/rand"
	"sort"
)

type rgb [3]float64

type cluster struct {
	center rgb
	count  int
}

type kmeans struct {
	k       int
	seed    int64
	inits   int
	maxIter int
	tol     float64
}

// fit runs k-means++ seeded Lloyd iterations several times and keeps the run
// with the lowest inertia. k is reduced to the number of distinct points.
// Empty clusters are dropped and the rest are ordered by population,
// largest first.
func (km kmeans) fit(points []rgb) []cluster {
	k := km.k
	if d := countDistinct(points, k); d < k {
		k = d
	}
	if k == 0 {
		return nil
	}

	rng := rand.New(rand.NewSource(km.seed))
	var best []cluster
	bestInertia := math.Inf(1)
	for i := 0; i < km.inits; i++ {
		clusters, inertia := km.run(points, k, rng)
		if inertia < bestInertia {
			best, bestInertia = clusters, inertia
		}
	}

	out := best[:0]
	for _, c := range best {
		if c.count > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].count > out[j].count })
	return out
}

func (km kmeans) run(points []rgb, k int, rng *rand.Rand) ([]cluster, float64) {
	centers := initPlusPlus(points, k, rng)
	labels := make([]int, len(points))

	var inertia float64
	for iter := 0; iter < km.maxIter; iter++ {
		inertia = 0
		for i, p := range points {
			idx, d := nearest(centers, p)
			labels[i] = idx
			inertia += d
		}

		sums := make([]rgb, k)
		counts := make([]int, k)
		for i, p := range points {
			l := labels[i]
			sums[l][0] += p[0]
			sums[l][1] += p[1]
			sums[l][2] += p[2]
			counts[l]++
		}

		var shift float64
		for c := range centers {
			if counts[c] == 0 {
				continue
			}
			n := float64(counts[c])
			next := rgb{sums[c][0] / n, sums[c][1] / n, sums[c][2] / n}
			shift += dist2(centers[c], next)
			centers[c] = next
		}
		if shift <= km.tol {
			break
		}
	}

	counts := make([]int, k)
	inertia = 0
	for _, p := range points {
		idx, d := nearest(centers, p)
		counts[idx]++
		inertia += d
	}

	clusters := make([]cluster, k)
	for c := range centers {
		clusters[c] = cluster{center: centers[c], count: counts[c]}
	}
	return clusters, inertia
}

func initPlusPlus(points []rgb, k int, rng *rand.Rand) []rgb {
	centers := make([]rgb, 0, k)
	centers = append(centers, points[rng.Intn(len(points))])

	d2 := make([]float64, len(points))
	for len(centers) < k {
		var total float64
		for i, p := range points {
			_, d := nearest(centers, p)
			d2[i] = d
			total += d
		}
		if total == 0 {
			break
		}
		target := rng.Float64() * total
		chosen := -1
		for i, d := range d2 {
			if d == 0 {
				continue
			}
			chosen = i
			target -= d
			if target <= 0 {
				break
			}
		}
		centers = append(centers, points[chosen])
	}
	for len(centers) < k {
		centers = append(centers, centers[len(centers)-1])
	}
	return centers
}

func nearest(centers []rgb, p rgb) (int, float64) {
	best, bestD := 0, math.Inf(1)
	for i, c := range centers {
		if d := dist2(c, p); d < bestD {
			best, bestD = i, d
		}
	}
	return best, bestD
}

func dist2(a, b rgb) float64 {
	dr, dg, db := a[0]-b[0], a[1]-b[1], a[2]-b[2]
	return dr*dr + dg*dg + db*db
}

func countDistinct(points []rgb, limit int) int {
	seen := make(map[rgb]struct{}, limit)
	for _, p := range points {
		seen[p] = struct{}{}
		if len(seen) >= limit {
			return len(seen)
		}
	}
	return len(seen)
}
