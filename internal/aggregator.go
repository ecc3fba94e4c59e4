package internal

// 合計・最小・最大を同時に集計する
type StatsAggregator[T int32 | int64] struct {
	sum      T
	min, max T
	n        uint64
}

func NewStatsAggregator[T int32 | int64]() *StatsAggregator[T] {
	return &StatsAggregator[T]{}
}

func (agg *StatsAggregator[T]) Aggregate(v T, repeated uint64) {
	if repeated == 0 {
		return
	}
	if agg.n == 0 || v < agg.min {
		agg.min = v
	}
	if agg.n == 0 || v > agg.max {
		agg.max = v
	}
	agg.sum += v * T(repeated)
	agg.n += repeated
}

func (agg *StatsAggregator[T]) Sum() T {
	return agg.sum
}

func (agg *StatsAggregator[T]) Min() T {
	return agg.min
}

func (agg *StatsAggregator[T]) Max() T {
	return agg.max
}

func (agg *StatsAggregator[T]) Count() uint64 {
	return agg.n
}
