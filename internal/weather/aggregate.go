package weather

import (
	"sort"
	"time"
)

// AggregateSamples combines samples from several providers that share the same
// timestamp. Numeric fields are averaged; the condition is selected by majority,
// falling back to the first provider's on ties.
func AggregateSamples(samples []Sample) Sample {
	if len(samples) == 0 {
		return Sample{Condition: ConditionUnknown}
	}

	var (
		sumTemp   float64
		sumFeels  float64
		sumPrecip float64
	)

	conditionCounts := make(map[Condition]int)
	bestCond := samples[0].Condition
	description := samples[0].Description

	for _, s := range samples {
		sumTemp += s.Temperature
		sumFeels += s.FeelsLike
		sumPrecip += s.PrecipMm
		conditionCounts[s.Condition]++
	}

	bestCount := conditionCounts[bestCond]
	for _, s := range samples {
		if count := conditionCounts[s.Condition]; count > bestCount {
			bestCount = count
			bestCond = s.Condition
			description = s.Description
		}
	}

	n := float64(len(samples))
	return Sample{
		Time:        samples[0].Time,
		Temperature: sumTemp / n,
		FeelsLike:   sumFeels / n,
		Condition:   bestCond,
		Description: description,
		PrecipMm:    sumPrecip / n,
	}
}

// MergeSeries buckets samples from all providers by key and aggregates each
// bucket. The result is ordered by time ascending.
func MergeSeries(series [][]Sample, key func(time.Time) time.Time) []Sample {
	buckets := make(map[time.Time][]Sample)
	for _, s := range series {
		for _, sample := range s {
			k := key(sample.Time.UTC())
			sample.Time = k
			buckets[k] = append(buckets[k], sample)
		}
	}

	out := make([]Sample, 0, len(buckets))
	for _, samples := range buckets {
		out = append(out, AggregateSamples(samples))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// DailyFromHourly derives one sample per UTC day. Temperatures take the day's
// maximum, precipitation is summed and the condition is the majority one.
func DailyFromHourly(hourly []Sample) []Sample {
	days := make(map[time.Time][]Sample)
	for _, h := range hourly {
		days[truncateDay(h.Time)] = append(days[truncateDay(h.Time)], h)
	}

	out := make([]Sample, 0, len(days))
	for day, samples := range days {
		agg := AggregateSamples(samples)
		agg.Time = day
		agg.PrecipMm = 0
		for i, s := range samples {
			if i == 0 || s.Temperature > agg.Temperature {
				agg.Temperature = s.Temperature
			}
			if i == 0 || s.FeelsLike > agg.FeelsLike {
				agg.FeelsLike = s.FeelsLike
			}
			agg.PrecipMm += s.PrecipMm
		}
		out = append(out, agg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

func truncateDay(ts time.Time) time.Time {
	ts = ts.UTC()
	return time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateHour(ts time.Time) time.Time {
	return ts.UTC().Truncate(time.Hour)
}
